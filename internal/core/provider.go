package core

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Provider identifies the service a secret belongs to. The set is closed:
// every value the classifier can emit is listed here.
type Provider string

const (
	ProviderOpenAI      Provider = "openai"
	ProviderAnthropic   Provider = "anthropic"
	ProviderDeepSeek    Provider = "deepseek"
	ProviderBrave       Provider = "brave"
	ProviderNewsData    Provider = "newsdata"
	ProviderGroq        Provider = "groq"
	ProviderPerplexity  Provider = "perplexity"
	ProviderGemini      Provider = "gemini"
	ProviderAWS         Provider = "aws"
	ProviderHuggingFace Provider = "huggingface"
	ProviderXAI         Provider = "xai"
	ProviderReplicate   Provider = "replicate"
	ProviderGoogleCloud Provider = "google_cloud"
	ProviderNewsAPIOrg  Provider = "newsapi_org"
	ProviderNewsAPIAI   Provider = "newsapi_ai"
	ProviderSerpAPI     Provider = "serpapi"
	ProviderGoogleCSE   Provider = "google_cse"
	ProviderAzure       Provider = "azure"
	ProviderMicrosoft   Provider = "microsoft"
	ProviderUnknown     Provider = "unknown"
)

// ParseProvider normalizes free-form input (CLI flags, stored columns).
// Anything empty maps to ProviderUnknown; other values pass through lowercased
// so that unsupported-but-named providers keep their name in messages.
func ParseProvider(s string) Provider {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ProviderUnknown
	}
	return Provider(s)
}

func (p Provider) String() string { return string(p) }

type ProviderInfo struct {
	Name   string // e.g. "OpenAI", "Brave Search"
	DocURL string
	// UsageAPI reports whether the provider exposes any usage or cost data.
	UsageAPI bool
}

// ProbeRequest carries everything a provider needs for one probe. Providers
// must not retain it.
type ProbeRequest struct {
	Secret       string
	LookbackDays int
	BaseURL      string
	Client       *http.Client
	Logger       *slog.Logger
	Now          func() time.Time
}

func (r ProbeRequest) CurrentTime() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Days returns the lookback window, defaulting non-positive values.
func (r ProbeRequest) Days() int {
	if r.LookbackDays <= 0 {
		return DefaultLookbackDays
	}
	return r.LookbackDays
}

func (r ProbeRequest) HTTPClient() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return &http.Client{Timeout: DefaultProbeTimeout}
}

func (r ProbeRequest) Log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Prober is implemented by every provider package. Probe runs the full
// provider sequence, Check only the liveness step. Neither may fail: every
// outcome is folded into the returned ProbeResult.
type Prober interface {
	ID() Provider
	Describe() ProviderInfo
	Probe(ctx context.Context, req ProbeRequest) ProbeResult
	Check(ctx context.Context, req ProbeRequest) ProbeResult
}
