package xai

import (
	"context"
	"net/http"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/providers/providerbase"
	"github.com/janekbaraniewski/keydash/internal/providers/shared"
)

const (
	defaultBaseURL = "https://api.x.ai"
	modelsPath     = "/v1/models"
)

type Provider struct {
	providerbase.Base
}

func New() *Provider {
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: core.ProviderXAI,
			Info: core.ProviderInfo{
				Name:   "xAI",
				DocURL: "https://docs.x.ai/docs",
			},
			Auth:           core.ProviderAuthSpec{Header: "Authorization", Scheme: "Bearer ", EnvVar: "XAI_API_KEY"},
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
	}, "API key is valid. xAI does not expose a usage API.")
}
