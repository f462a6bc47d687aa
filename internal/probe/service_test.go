package probe

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/janekbaraniewski/keydash/internal/core"
)

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls++
	return nil, http.ErrUseLastResponse
}

func TestProbe_UnsupportedMakesNoNetworkCall(t *testing.T) {
	transport := &countingTransport{}
	svc := New(Options{Client: &http.Client{Transport: transport}})

	for _, provider := range []core.Provider{core.ProviderDeepSeek, core.ProviderUnknown, "made-up"} {
		res := svc.Probe(context.Background(), "secret-value", provider, 30)
		if res.Status != core.StatusUnsupported {
			t.Fatalf("%s: Status = %s, want unsupported", provider, res.Status)
		}
		if !strings.Contains(res.Message, "'"+string(provider)+"'") {
			t.Fatalf("%s: Message = %q, want provider named", provider, res.Message)
		}
		if res.Status.IsFailure() {
			t.Fatalf("%s: unsupported must not be a failure", provider)
		}
	}
	if transport.calls != 0 {
		t.Fatalf("transport calls = %d, want 0", transport.calls)
	}
}

func TestProbe_EmptyProviderIsUnknown(t *testing.T) {
	res := New(Options{}).Probe(context.Background(), "x", "", 0)
	if res.Provider != core.ProviderUnknown || res.Status != core.StatusUnsupported {
		t.Fatalf("result = %s/%s", res.Provider, res.Status)
	}
}

func TestProbe_UsesBaseURLOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	svc := New(Options{BaseURLs: map[core.Provider]string{core.ProviderOpenAI: server.URL}})
	res := svc.Probe(context.Background(), "sk-admin-abc", core.ProviderOpenAI, 7)
	if res.Status != core.StatusSuccess {
		t.Fatalf("Status = %s, want success", res.Status)
	}

	check := svc.Check(context.Background(), "sk-admin-abc", "OpenAI")
	if check.Status != core.StatusSuccess || check.Provider != core.ProviderOpenAI {
		t.Fatalf("Check = %s/%s", check.Provider, check.Status)
	}
}

func TestProbe_LogsMaskedPreviewOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	secret := "gsk_abcdefghijSECRETMIDDLEklmnopqrstuv"
	svc := New(Options{
		Logger:   logger,
		BaseURLs: map[core.Provider]string{core.ProviderGroq: server.URL},
	})
	res := svc.Probe(context.Background(), secret, core.ProviderGroq, 30)

	if res.Status != core.StatusError {
		t.Fatalf("Status = %s, want error", res.Status)
	}
	out := buf.String()
	if strings.Contains(out, "SECRETMIDDLE") {
		t.Fatalf("log leaked the secret:\n%s", out)
	}
	if !strings.Contains(out, core.MaskSecret(secret)) {
		t.Fatalf("log missing masked preview:\n%s", out)
	}
	if !strings.Contains(out, "event=probe_done") {
		t.Fatalf("log missing probe_done event:\n%s", out)
	}
}

func TestClampTimeout(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, 10 * time.Second},
		{-time.Second, 10 * time.Second},
		{time.Second, 10 * time.Second},
		{15 * time.Second, 15 * time.Second},
		{time.Minute, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := ClampTimeout(tt.in); got != tt.want {
			t.Errorf("ClampTimeout(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNew_BoundsClientWithoutTimeout(t *testing.T) {
	injected := &http.Client{Transport: &countingTransport{}}
	svc := New(Options{Client: injected, Timeout: 12 * time.Second})
	if svc.client.Timeout != 12*time.Second {
		t.Fatalf("client timeout = %s, want 12s", svc.client.Timeout)
	}
	if svc.client.Transport != injected.Transport {
		t.Fatal("injected transport was dropped")
	}
	if injected.Timeout != 0 {
		t.Fatalf("caller's client was mutated: %s", injected.Timeout)
	}

	own := &http.Client{Timeout: 2 * time.Second}
	if got := New(Options{Client: own}).client; got != own {
		t.Fatal("client with its own timeout should be used as is")
	}
}

type stubProber struct {
	id    core.Provider
	calls int
}

func (s *stubProber) ID() core.Provider { return s.id }

func (s *stubProber) Describe() core.ProviderInfo { return core.ProviderInfo{Name: "Stub"} }

func (s *stubProber) Probe(_ context.Context, req core.ProbeRequest) core.ProbeResult {
	s.calls++
	res := core.NewProbeResult(s.id, req.CurrentTime())
	res.Status = core.StatusSuccess
	res.Message = req.Secret
	return res
}

func (s *stubProber) Check(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	return s.Probe(ctx, req)
}

func TestProbe_CustomProbersAndSupports(t *testing.T) {
	stub := &stubProber{id: core.ProviderGemini}
	svc := New(Options{Probers: []core.Prober{stub}})

	if !svc.Supports(core.ProviderGemini) || svc.Supports(core.ProviderOpenAI) {
		t.Fatal("Supports should reflect the configured probers only")
	}
	res := svc.Probe(context.Background(), "  AIzaSyKey  ", core.ProviderGemini, 0)
	if res.Message != "AIzaSyKey" {
		t.Fatalf("secret not trimmed: %q", res.Message)
	}
	if stub.calls != 1 {
		t.Fatalf("stub calls = %d", stub.calls)
	}
	if infos := svc.Providers(); len(infos) != 1 || infos[0].Name != "Stub" {
		t.Fatalf("Providers() = %+v", infos)
	}
}

func TestHolder_Swap(t *testing.T) {
	a, b := New(Options{}), New(Options{Timeout: 20 * time.Second})
	h := NewHolder(a)
	if h.Load() != a {
		t.Fatal("Load() should return the initial service")
	}
	h.Store(b)
	if h.Load().Timeout() != 20*time.Second {
		t.Fatalf("Timeout() = %s after swap", h.Load().Timeout())
	}
}
