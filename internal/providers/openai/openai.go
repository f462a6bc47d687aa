package openai

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/parsers"
	"github.com/janekbaraniewski/keydash/internal/providers/providerbase"
	"github.com/janekbaraniewski/keydash/internal/providers/shared"
)

const (
	defaultBaseURL = "https://api.openai.com"

	usagePath  = "/v1/organization/usage/completions"
	costsPath  = "/v1/organization/costs"
	modelsPath = "/v1/models"

	noAccessMessage = "API key cannot access the Usage or Costs APIs (this is normal for most keys)"
)

// Provider probes the OpenAI organization Usage and Costs APIs. Both require
// an admin key; project keys are expected to end in no_usage_access.
type Provider struct {
	providerbase.Base
}

func New() *Provider {
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: core.ProviderOpenAI,
			Info: core.ProviderInfo{
				Name:     "OpenAI",
				DocURL:   "https://platform.openai.com/docs/api-reference/usage",
				UsageAPI: true,
			},
			Auth:           core.ProviderAuthSpec{Header: "Authorization", Scheme: "Bearer ", EnvVar: "OPENAI_API_KEY"},
			DefaultBaseURL: defaultBaseURL,
		}),
	}
}

// Probe fetches usage and costs for the lookback window. The two calls are
// independent: a failure of one is recorded and the other still runs.
func (p *Provider) Probe(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	res := core.NewProbeResult(p.ID(), req.CurrentTime())
	query := windowQuery(req)
	headers := p.AuthHeaders(req.Secret, nil)
	base := p.BaseURL(req)

	usage, err := shared.Do(ctx, req, shared.Call{
		Step: "usage", Method: http.MethodGet, URL: base + usagePath, Query: query, Headers: headers,
	})
	if err == nil && usage.OK() {
		res.Usage = shared.RawJSON(usage.Body)
		parsers.ApplyStandardRateLimits(usage.Header, &res)
	} else {
		res.UsageError = shared.StepFailure("Usage API", usage, err)
	}

	costs, err := shared.Do(ctx, req, shared.Call{
		Step: "costs", Method: http.MethodGet, URL: base + costsPath, Query: query, Headers: headers,
	})
	if err == nil && costs.OK() {
		res.Costs = shared.RawJSON(costs.Body)
	} else {
		res.CostsError = shared.StepFailure("Costs API", costs, err)
	}

	switch {
	case res.Usage != nil && res.Costs != nil:
		res.Status = core.StatusSuccess
	case res.Usage != nil || res.Costs != nil:
		res.Status = core.StatusPartial
	default:
		res.Status = core.StatusNoUsageAccess
		res.Message = noAccessMessage
	}
	return res
}

// Check lists models, the cheapest authenticated call OpenAI offers.
func (p *Provider) Check(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	return shared.Liveness(ctx, req, p.ID(), "Models API", shared.Call{
		Step:    "models",
		Method:  http.MethodGet,
		URL:     p.BaseURL(req) + modelsPath,
		Headers: p.AuthHeaders(req.Secret, nil),
	}, "API key is valid and working")
}

func windowQuery(req core.ProbeRequest) url.Values {
	days := req.Days()
	start := req.CurrentTime().Unix() - int64(days)*86400
	return url.Values{
		"start_time":   {strconv.FormatInt(start, 10)},
		"bucket_width": {"1d"},
		"limit":        {strconv.Itoa(days)},
	}
}
