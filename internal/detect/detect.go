// Package detect finds API keys exported in the environment and imports them
// into the key store.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/keydash/internal/classify"
	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/store"
)

// EnvKey is a secret found in an environment variable.
type EnvKey struct {
	EnvVar         string
	Name           string
	Secret         string `json:"-"`
	Classification core.Classification
}

func (k EnvKey) Masked() string { return core.MaskSecret(k.Secret) }

// envVars lists the variables scanned, in scan order.
var envVars = []string{
	"OPENAI_API_KEY",
	"OPENAI_ADMIN_KEY",
	"ANTHROPIC_API_KEY",
	"DEEPSEEK_API_KEY",
	"BRAVE_API_KEY",
	"BRAVE_SEARCH_API_KEY",
	"NEWSDATA_API_KEY",
	"GROQ_API_KEY",
	"PERPLEXITY_API_KEY",
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
	"AWS_ACCESS_KEY_ID",
	"HF_TOKEN",
	"HUGGINGFACE_API_KEY",
	"XAI_API_KEY",
	"REPLICATE_API_TOKEN",
	"NEWSAPI_KEY",
	"SERPAPI_API_KEY",
	"AZURE_OPENAI_API_KEY",
}

// FromEnv scans the known variables through lookup, which is os.LookupEnv
// when nil. Values are trimmed; empty values are skipped.
func FromEnv(lookup func(string) (string, bool)) []EnvKey {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var keys []EnvKey
	for _, name := range envVars {
		val, ok := lookup(name)
		val = strings.TrimSpace(val)
		if !ok || val == "" {
			continue
		}
		keys = append(keys, EnvKey{
			EnvVar:         name,
			Name:           keyName(name),
			Secret:         val,
			Classification: classify.Classify(val),
		})
	}
	// OPENAI_API_KEY and OPENAI_ADMIN_KEY often hold the same value.
	return lo.UniqBy(keys, func(k EnvKey) string { return k.Secret })
}

// keyName derives a stored key name: OPENAI_API_KEY becomes "openai-env".
func keyName(envVar string) string {
	base := envVar
	for _, suffix := range []string{"_API_KEY", "_API_TOKEN", "_KEY", "_TOKEN"} {
		if trimmed := strings.TrimSuffix(base, suffix); trimmed != base {
			base = trimmed
			break
		}
	}
	return strings.ToLower(strings.ReplaceAll(base, "_", "-")) + "-env"
}

// Store is the subset of the key store the importer writes through.
type Store interface {
	NameExists(ctx context.Context, name string, accountID, excludeID int64) (bool, error)
	AddKey(ctx context.Context, in store.NewKey) (core.KeyRecord, error)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Added   []core.KeyRecord
	Skipped []EnvKey
}

// Import stores each key under accountID. Keys whose name is already taken in
// the account are skipped, so repeated imports are idempotent.
func Import(ctx context.Context, st Store, accountID int64, keys []EnvKey, logger *slog.Logger) (ImportResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var result ImportResult
	for _, k := range keys {
		exists, err := st.NameExists(ctx, k.Name, accountID, 0)
		if err != nil {
			return result, fmt.Errorf("detect: checking %s: %w", k.Name, err)
		}
		if exists {
			logger.Debug("env key skipped", "event", "env_import", "env", k.EnvVar, "name", k.Name, "reason", "name exists")
			result.Skipped = append(result.Skipped, k)
			continue
		}
		rec, err := st.AddKey(ctx, store.NewKey{
			Name:      k.Name,
			Secret:    k.Secret,
			AccountID: accountID,
		})
		if err != nil {
			return result, fmt.Errorf("detect: importing %s: %w", k.EnvVar, err)
		}
		logger.Info("env key imported", "event", "env_import",
			"env", k.EnvVar, "name", k.Name, "provider", rec.Provider, "key_type", rec.KeyType, "key_preview", k.Masked())
		result.Added = append(result.Added, rec)
	}
	return result, nil
}

// Summary returns a human-readable summary of the import.
func (r ImportResult) Summary() string {
	var sb strings.Builder
	if len(r.Added) > 0 {
		fmt.Fprintf(&sb, "Imported %d key(s):\n", len(r.Added))
		for _, k := range r.Added {
			fmt.Fprintf(&sb, "  • %s (%s/%s) %s\n", k.Name, k.Provider, k.KeyType, k.MaskedKey)
		}
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&sb, "Skipped %d key(s) already stored:\n", len(r.Skipped))
		for _, k := range r.Skipped {
			fmt.Fprintf(&sb, "  • %s from %s\n", k.Name, k.EnvVar)
		}
	}
	if len(r.Added) == 0 && len(r.Skipped) == 0 {
		sb.WriteString("No API keys found in the environment.\n")
	}
	return sb.String()
}
