package detect

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/store"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromEnv_ClassifiesKnownVariables(t *testing.T) {
	keys := FromEnv(mapLookup(map[string]string{
		"OPENAI_API_KEY":    "sk-proj-abc123def456",
		"ANTHROPIC_API_KEY": "  sk-ant-api03-xyz  ",
		"GROQ_API_KEY":      "",
		"UNRELATED":         "sk-proj-ignored",
	}))

	if len(keys) != 2 {
		t.Fatalf("keys = %+v, want 2", keys)
	}
	if keys[0].Name != "openai-env" || keys[0].Classification.Provider != core.ProviderOpenAI || keys[0].Classification.KeyType != core.KeyTypeProject {
		t.Errorf("openai = %+v", keys[0])
	}
	if keys[1].Secret != "sk-ant-api03-xyz" || keys[1].Classification.Provider != core.ProviderAnthropic {
		t.Errorf("anthropic = %+v", keys[1])
	}
}

func TestFromEnv_DeduplicatesSecrets(t *testing.T) {
	keys := FromEnv(mapLookup(map[string]string{
		"OPENAI_API_KEY":   "sk-admin-same",
		"OPENAI_ADMIN_KEY": "sk-admin-same",
	}))
	if len(keys) != 1 || keys[0].EnvVar != "OPENAI_API_KEY" {
		t.Fatalf("keys = %+v", keys)
	}
}

func TestKeyName(t *testing.T) {
	tests := map[string]string{
		"OPENAI_API_KEY":      "openai-env",
		"REPLICATE_API_TOKEN": "replicate-env",
		"HF_TOKEN":            "hf-env",
		"NEWSAPI_KEY":         "newsapi-env",
		"AWS_ACCESS_KEY_ID":   "aws-access-key-id-env",
	}
	for in, want := range tests {
		if got := keyName(in); got != want {
			t.Errorf("keyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImport_SkipsExistingNames(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "detect.db"), store.Options{})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	account, err := st.AddAccount(ctx, store.AccountInput{Email: "me@example.com"})
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	keys := FromEnv(mapLookup(map[string]string{
		"OPENAI_API_KEY": "sk-proj-SECRETPART-0123456789",
		"GROQ_API_KEY":   "gsk_SECRETPART0123456789",
	}))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	first, err := Import(ctx, st, account.ID, keys, logger)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(first.Added) != 2 || len(first.Skipped) != 0 {
		t.Fatalf("first import = %+v", first)
	}

	second, err := Import(ctx, st, account.ID, keys, logger)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if len(second.Added) != 0 || len(second.Skipped) != 2 {
		t.Fatalf("second import = %+v", second)
	}

	stored, err := st.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored = %d keys", len(stored))
	}
	if strings.Contains(logs.String(), "SECRETPART") {
		t.Fatalf("import logged a secret:\n%s", logs.String())
	}
	if !strings.Contains(second.Summary(), "Skipped 2") {
		t.Fatalf("summary = %q", second.Summary())
	}
}

func TestImportResultSummary_Empty(t *testing.T) {
	if got := (ImportResult{}).Summary(); !strings.Contains(got, "No API keys found") {
		t.Fatalf("Summary = %q", got)
	}
}
