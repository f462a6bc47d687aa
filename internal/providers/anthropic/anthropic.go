package anthropic

import (
	"context"
	"net/http"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/parsers"
	"github.com/janekbaraniewski/keydash/internal/providers/providerbase"
	"github.com/janekbaraniewski/keydash/internal/providers/shared"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	messagesPath   = "/v1/messages"
	apiVersion     = "2023-06-01"
	probeModel     = "claude-3-haiku-20240307"
)

// Provider checks Anthropic keys. Anthropic has no usage API reachable with a
// regular key, so a 1-token message is the whole probe.
type Provider struct {
	providerbase.Base
}

func New() *Provider {
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: core.ProviderAnthropic,
			Info: core.ProviderInfo{
				Name:   "Anthropic",
				DocURL: "https://docs.anthropic.com/en/api/rate-limits",
			},
			Auth:           core.ProviderAuthSpec{Header: "x-api-key", EnvVar: "ANTHROPIC_API_KEY"},
			DefaultBaseURL: defaultBaseURL,
		}),
	}
}

func (p *Provider) Probe(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	return p.Check(ctx, req)
}

func (p *Provider) Check(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	call := shared.Call{
		Step:    "message",
		Method:  http.MethodPost,
		URL:     p.BaseURL(req) + messagesPath,
		Headers: p.AuthHeaders(req.Secret, map[string]string{"anthropic-version": apiVersion}),
		Body: map[string]any{
			"model":      probeModel,
			"max_tokens": 1,
			"messages":   []map[string]string{{"role": "user", "content": "Hi"}},
		},
	}
	return shared.Liveness(ctx, req, p.ID(), "Messages API", call,
		"API key is valid. Anthropic does not expose a usage API for regular keys.",
		applyRateLimits)
}

func applyRateLimits(h http.Header, res *core.ProbeResult) {
	parsers.ApplyRateLimitGroup(h, res, "rpm", "requests", "1m",
		"anthropic-ratelimit-requests-limit",
		"anthropic-ratelimit-requests-remaining",
		"anthropic-ratelimit-requests-reset")
	parsers.ApplyRateLimitGroup(h, res, "tpm", "tokens", "1m",
		"anthropic-ratelimit-tokens-limit",
		"anthropic-ratelimit-tokens-remaining",
		"anthropic-ratelimit-tokens-reset")
}
