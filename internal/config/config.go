package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/janekbaraniewski/keydash/internal/core"
)

const (
	EnvConfigPath = "KEYDASH_CONFIG"
	EnvDebug      = "KEYDASH_DEBUG"
	EnvPassphrase = "KEYDASH_PASSPHRASE"
)

type ServerConfig struct {
	Listen         string   `json:"listen"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type ProbeConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	LookbackDays   int `json:"lookback_days"`

	// DelayMillis separates consecutive probes in a usage rollup.
	DelayMillis int               `json:"delay_ms"`
	BaseURLs    map[string]string `json:"base_urls,omitempty"` // provider → base URL
}

type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
}

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Probe    ProbeConfig    `json:"probe"`
	Log      LogConfig      `json:"log"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen:         "127.0.0.1:5000",
			AllowedOrigins: []string{"http://localhost:5000", "http://127.0.0.1:5000"},
		},
		Database: DatabaseConfig{Path: filepath.Join(ConfigDir(), "keydash.db")},
		Probe: ProbeConfig{
			TimeoutSeconds: int(core.DefaultProbeTimeout / time.Second),
			LookbackDays:   core.DefaultLookbackDays,
			DelayMillis:    500,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "keydash")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "keydash")
}

// ConfigPath honours KEYDASH_CONFIG before the default location.
func ConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "settings.json")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = defaults.Server.Listen
	}
	if strings.TrimSpace(cfg.Database.Path) == "" {
		cfg.Database.Path = defaults.Database.Path
	}
	if cfg.Probe.TimeoutSeconds <= 0 {
		cfg.Probe.TimeoutSeconds = defaults.Probe.TimeoutSeconds
	}
	if cfg.Probe.LookbackDays <= 0 {
		cfg.Probe.LookbackDays = defaults.Probe.LookbackDays
	}
	if cfg.Probe.DelayMillis < 0 {
		cfg.Probe.DelayMillis = defaults.Probe.DelayMillis
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format != "json" {
		cfg.Log.Format = "text"
	}

	return cfg, nil
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// UpdateTo applies fn to the config stored at path (read-modify-write).
func UpdateTo(path string, fn func(*Config)) (Config, error) {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		return cfg, err
	}
	fn(&cfg)
	return cfg, SaveTo(path, cfg)
}

// Timeout is the per-call probe timeout. Clamping to the allowed range is
// left to the probe service.
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (p ProbeConfig) Delay() time.Duration {
	return time.Duration(p.DelayMillis) * time.Millisecond
}

func (p ProbeConfig) ProviderBaseURLs() map[core.Provider]string {
	out := make(map[core.Provider]string, len(p.BaseURLs))
	for k, v := range p.BaseURLs {
		if v = strings.TrimSpace(v); v != "" {
			out[core.ParseProvider(k)] = v
		}
	}
	return out
}

// SlogLevel resolves the configured level; KEYDASH_DEBUG forces debug.
func (l LogConfig) SlogLevel() slog.Level {
	if os.Getenv(EnvDebug) != "" {
		return slog.LevelDebug
	}
	level, err := parseLevel(l.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	return level, err
}
