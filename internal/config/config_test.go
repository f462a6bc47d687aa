package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/janekbaraniewski/keydash/internal/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Probe.TimeoutSeconds != 10 {
		t.Errorf("default timeout = %d, want 10", cfg.Probe.TimeoutSeconds)
	}
	if cfg.Probe.LookbackDays != 30 {
		t.Errorf("default lookback = %d, want 30", cfg.Probe.LookbackDays)
	}
	if cfg.Probe.Delay() != 500*time.Millisecond {
		t.Errorf("default delay = %s, want 500ms", cfg.Probe.Delay())
	}
	if cfg.Server.Listen == "" || cfg.Database.Path == "" {
		t.Error("server listen and database path must default")
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Probe.TimeoutSeconds != 10 {
		t.Error("should return defaults for missing file")
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{
  "server": {"listen": ":8080", "allowed_origins": ["https://dash.example.com"]},
  "database": {"path": "/var/lib/keydash/keys.db"},
  "probe": {"timeout_seconds": 20, "lookback_days": 7, "delay_ms": 0, "base_urls": {"OpenAI": "http://localhost:9999"}},
  "log": {"level": "debug", "format": "json"}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if cfg.Server.Listen != ":8080" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Probe.Timeout() != 20*time.Second || cfg.Probe.LookbackDays != 7 {
		t.Errorf("probe = %+v", cfg.Probe)
	}
	if cfg.Probe.Delay() != 0 {
		t.Errorf("delay = %s, want 0 (explicitly disabled)", cfg.Probe.Delay())
	}
	if got := cfg.Probe.ProviderBaseURLs()[core.ProviderOpenAI]; got != "http://localhost:9999" {
		t.Errorf("openai base URL = %q", got)
	}
	if cfg.Log.Format != "json" || cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadFrom_InvalidValuesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{"probe": {"timeout_seconds": -1, "lookback_days": 0, "delay_ms": -5}, "log": {"level": "loud", "format": "xml"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Probe.TimeoutSeconds != 10 || cfg.Probe.LookbackDays != 30 || cfg.Probe.DelayMillis != 500 {
		t.Errorf("probe = %+v", cfg.Probe)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadFrom_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.Probe.TimeoutSeconds != 10 {
		t.Error("should return defaults alongside the error")
	}
}

func TestConfigPath_EnvOverride(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/keydash.json")
	if got := ConfigPath(); got != "/etc/keydash.json" {
		t.Fatalf("ConfigPath() = %q", got)
	}
}

func TestSlogLevel_DebugEnv(t *testing.T) {
	t.Setenv(EnvDebug, "1")
	if got := (LogConfig{Level: "error"}).SlogLevel(); got != slog.LevelDebug {
		t.Fatalf("SlogLevel() = %s, want DEBUG", got)
	}
}

func TestUpdateTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	_, err := UpdateTo(path, func(c *Config) { c.Probe.LookbackDays = 14 })
	if err != nil {
		t.Fatalf("UpdateTo: %v", err)
	}
	_, err = UpdateTo(path, func(c *Config) { c.Server.Listen = ":9000" })
	if err != nil {
		t.Fatalf("UpdateTo: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Probe.LookbackDays != 14 || cfg.Server.Listen != ":9000" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := SaveTo(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 4)
	if err := Watch(ctx, path, nil, func(c Config) { changes <- c }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Probe.TimeoutSeconds = 25
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	select {
	case got := <-changes:
		if got.Probe.TimeoutSeconds != 25 {
			t.Fatalf("reloaded timeout = %d, want 25", got.Probe.TimeoutSeconds)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}
