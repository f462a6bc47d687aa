package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/keydash/internal/config"
	"github.com/janekbaraniewski/keydash/internal/probe"
	"github.com/janekbaraniewski/keydash/internal/store"
)

// app holds what every subcommand shares: the loaded config, a logger and a
// lazily opened store.
type app struct {
	configPath string
	dbPath     string
	jsonOut    bool

	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	store  *store.Store
}

func (a *app) init(cmd *cobra.Command) error {
	if a.configPath == "" {
		a.configPath = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", a.configPath, err)
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
	return nil
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore opens the configured database on first use. KEYDASH_PASSPHRASE
// enables sealing of secrets at rest.
func (a *app) openStore(cmd *cobra.Command) (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := store.Open(cmd.Context(), a.cfg.Database.Path, store.Options{
		Passphrase: os.Getenv(config.EnvPassphrase),
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.store = st
	return st, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func newProbeService(cfg config.Config, logger *slog.Logger) *probe.Service {
	return probe.New(probe.Options{
		Timeout:  cfg.Probe.Timeout(),
		BaseURLs: cfg.Probe.ProviderBaseURLs(),
		Logger:   logger,
	})
}

func (a *app) probes() *probe.Service {
	return newProbeService(a.cfg, a.logger)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readSecret resolves a secret from, in order, --env, a positional argument,
// or stdin when the argument is "-".
func readSecret(cmd *cobra.Command, args []string, envVar string) (string, error) {
	if envVar != "" {
		v := strings.TrimSpace(os.Getenv(envVar))
		if v == "" {
			return "", fmt.Errorf("environment variable %s is empty", envVar)
		}
		return v, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("a key argument, '-' for stdin, or --env is required")
	}
	if args[0] != "-" {
		return strings.TrimSpace(args[0]), nil
	}
	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64<<10))
	if err != nil {
		return "", fmt.Errorf("reading key from stdin: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("no key on stdin")
	}
	return v, nil
}
