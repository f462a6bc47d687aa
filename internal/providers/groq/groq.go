package groq

import (
	"context"
	"net/http"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/parsers"
	"github.com/janekbaraniewski/keydash/internal/providers/providerbase"
	"github.com/janekbaraniewski/keydash/internal/providers/shared"
)

const (
	defaultBaseURL = "https://api.groq.com"
	modelsPath     = "/openai/v1/models"
)

type Provider struct {
	providerbase.Base
}

func New() *Provider {
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: core.ProviderGroq,
			Info: core.ProviderInfo{
				Name:   "Groq",
				DocURL: "https://console.groq.com/docs/rate-limits",
			},
			Auth:           core.ProviderAuthSpec{Header: "Authorization", Scheme: "Bearer ", EnvVar: "GROQ_API_KEY"},
			DefaultBaseURL: defaultBaseURL,
		}),
	}
}

func (p *Provider) Probe(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	return p.Check(ctx, req)
}

func (p *Provider) Check(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	return shared.Liveness(ctx, req, p.ID(), "Models API", shared.Call{
		Step:    "models",
		Method:  http.MethodGet,
		URL:     p.BaseURL(req) + modelsPath,
		Headers: p.AuthHeaders(req.Secret, nil),
	}, "API key is valid. Groq does not expose a usage API.", applyRateLimits)
}

// Groq adds daily windows next to the OpenAI-style per-minute headers.
func applyRateLimits(h http.Header, res *core.ProbeResult) {
	parsers.ApplyStandardRateLimits(h, res)
	parsers.ApplyRateLimitGroup(h, res, "rpd", "requests", "1d",
		"x-ratelimit-limit-requests-day", "x-ratelimit-remaining-requests-day", "x-ratelimit-reset-requests-day")
	parsers.ApplyRateLimitGroup(h, res, "tpd", "tokens", "1d",
		"x-ratelimit-limit-tokens-day", "x-ratelimit-remaining-tokens-day", "x-ratelimit-reset-tokens-day")
}
