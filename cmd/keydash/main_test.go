package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janekbaraniewski/keydash/internal/config"
	"github.com/janekbaraniewski/keydash/internal/core"
)

// run executes the CLI against a private config and database.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvPassphrase, "")
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{
		"--config", filepath.Join(dir, "settings.json"),
		"--db", filepath.Join(dir, "keydash.db"),
	}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_AccountAndKeyLifecycle(t *testing.T) {
	dir := t.TempDir()
	const secret = "sk-admin-abcdefHIDDENPARTghijklmnop"

	if _, err := run(t, dir, "accounts", "add", "ops@example.com", "--org", "Acme"); err != nil {
		t.Fatalf("accounts add: %v", err)
	}
	out, err := run(t, dir, "keys", "add", "prod", secret, "--account", "1")
	if err != nil {
		t.Fatalf("keys add: %v", err)
	}
	if !strings.Contains(out, "openai/admin") || strings.Contains(out, "HIDDENPART") {
		t.Fatalf("keys add output = %q", out)
	}

	out, err = run(t, dir, "--json", "keys", "list")
	if err != nil {
		t.Fatalf("keys list: %v", err)
	}
	if strings.Contains(out, "HIDDENPART") {
		t.Fatalf("list leaked the secret: %s", out)
	}
	var keys []core.KeyRecord
	if err := json.Unmarshal([]byte(out), &keys); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(keys) != 1 || keys[0].AccountEmail != "ops@example.com" {
		t.Fatalf("keys = %+v", keys)
	}

	out, err = run(t, dir, "keys", "reveal", "1")
	if err != nil {
		t.Fatalf("keys reveal: %v", err)
	}
	if strings.TrimSpace(out) != secret {
		t.Fatalf("reveal = %q", out)
	}

	if _, err := run(t, dir, "keys", "update", "1", "--name", "renamed"); err != nil {
		t.Fatalf("keys update: %v", err)
	}
	if _, err := run(t, dir, "accounts", "delete", "1"); err != nil {
		t.Fatalf("accounts delete: %v", err)
	}
	out, _ = run(t, dir, "keys", "list")
	if !strings.Contains(out, "No API keys") {
		t.Fatalf("keys survived account delete: %q", out)
	}
}

func TestCLI_ClassifyFromEnv(t *testing.T) {
	t.Setenv("SOME_KEY", "gsk_abcdefghijklmnopqrstuvwxyz")
	out, err := run(t, t.TempDir(), "--json", "classify", "--env", "SOME_KEY")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["provider"] != "groq" || got["probeable"] != true {
		t.Fatalf("classify = %v", got)
	}
	if strings.Contains(out, "klmnopqrst") {
		t.Fatalf("classify echoed the secret: %s", out)
	}
}

func TestCLI_ConfigSet(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "config", "set", "lookback", "7"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, err := run(t, dir, "config", "set", "base-url.openai", "http://localhost:9999"); err != nil {
		t.Fatalf("config set base-url: %v", err)
	}
	cfg, err := config.LoadFrom(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Probe.LookbackDays != 7 || cfg.Probe.BaseURLs["openai"] != "http://localhost:9999" {
		t.Fatalf("config = %+v", cfg.Probe)
	}
	if _, err := run(t, dir, "config", "set", "timeout", "soon"); err == nil {
		t.Fatal("expected invalid timeout to fail")
	}
	if _, err := run(t, dir, "config", "set", "nope", "1"); err == nil {
		t.Fatal("expected unknown key to fail")
	}
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		flag, secret string
		want         core.Provider
	}{
		{"", "sk-ant-api03-x", core.ProviderAnthropic},
		{"Groq", "whatever", core.ProviderGroq},
		{"", "pplx-abc", core.ProviderPerplexity},
	}
	for _, tt := range tests {
		if got := resolveProvider(tt.flag, tt.secret); got != tt.want {
			t.Errorf("resolveProvider(%q, %q) = %s, want %s", tt.flag, tt.secret, got, tt.want)
		}
	}
}

func TestReadSecret_Stdin(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetIn(strings.NewReader("  sk-proj-fromstdin\n"))
	got, err := readSecret(cmd, []string{"-"}, "")
	if err != nil {
		t.Fatalf("readSecret: %v", err)
	}
	if got != "sk-proj-fromstdin" {
		t.Fatalf("readSecret = %q", got)
	}
	if _, err := readSecret(cmd, nil, ""); err == nil {
		t.Fatal("expected error without a key")
	}
}
