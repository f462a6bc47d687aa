package perplexity

import (
	"context"
	"net/http"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/providers/providerbase"
	"github.com/janekbaraniewski/keydash/internal/providers/shared"
)

const (
	defaultBaseURL  = "https://api.perplexity.ai"
	completionsPath = "/chat/completions"
	probeModel      = "sonar"
)

// Provider checks Perplexity keys with a 1-token chat completion; the API
// has no models listing and no usage endpoint.
type Provider struct {
	providerbase.Base
}

func New() *Provider {
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: core.ProviderPerplexity,
			Info: core.ProviderInfo{
				Name:   "Perplexity",
				DocURL: "https://docs.perplexity.ai/guides/rate-limits",
			},
			Auth:           core.ProviderAuthSpec{Header: "Authorization", Scheme: "Bearer ", EnvVar: "PERPLEXITY_API_KEY"},
			DefaultBaseURL: defaultBaseURL,
		}),
	}
}

func (p *Provider) Probe(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	return p.Check(ctx, req)
}

func (p *Provider) Check(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	return shared.Liveness(ctx, req, p.ID(), "Chat Completions API", shared.Call{
		Step:    "completion",
		Method:  http.MethodPost,
		URL:     p.BaseURL(req) + completionsPath,
		Headers: p.AuthHeaders(req.Secret, nil),
		Body: map[string]any{
			"model":      probeModel,
			"max_tokens": 1,
			"messages":   []map[string]string{{"role": "user", "content": "Hi"}},
		},
	}, "API key is valid. Perplexity does not expose a usage API.")
}
