package brave

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/parsers"
	"github.com/janekbaraniewski/keydash/internal/providers/providerbase"
	"github.com/janekbaraniewski/keydash/internal/providers/shared"
)

const (
	defaultBaseURL = "https://api.search.brave.com"
	searchPath     = "/res/v1/web/search"
	usagePath      = "/res/v1/usage"
)

// Provider probes Brave Search. The search call proves the key; the usage
// endpoint is best-effort and only enriches the result.
type Provider struct {
	providerbase.Base
}

func New() *Provider {
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: core.ProviderBrave,
			Info: core.ProviderInfo{
				Name:     "Brave Search",
				DocURL:   "https://api-dashboard.search.brave.com/app/documentation",
				UsageAPI: true,
			},
			Auth:           core.ProviderAuthSpec{Header: "X-Subscription-Token", EnvVar: "BRAVE_API_KEY"},
			DefaultBaseURL: defaultBaseURL,
		}),
	}
}

func (p *Provider) Probe(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	res := p.Check(ctx, req)
	if res.Status != core.StatusSuccess {
		return res
	}

	resp, err := shared.Do(ctx, req, shared.Call{
		Step:    "usage",
		Method:  http.MethodGet,
		URL:     p.BaseURL(req) + usagePath,
		Headers: p.headers(req.Secret),
	})
	if err == nil && resp.OK() {
		res.Usage = shared.RawJSON(resp.Body)
		res.Message = "API key is valid. Usage data retrieved."
	}
	return res
}

// Check runs a single-result web search.
func (p *Provider) Check(ctx context.Context, req core.ProbeRequest) core.ProbeResult {
	call := shared.Call{
		Step:    "search",
		Method:  http.MethodGet,
		URL:     p.BaseURL(req) + searchPath,
		Query:   url.Values{"q": {"test"}, "count": {"1"}},
		Headers: p.headers(req.Secret),
	}
	return shared.Liveness(ctx, req, p.ID(), "Search API", call, "API key is valid.",
		func(h http.Header, res *core.ProbeResult) { applyRateLimits(h, res, req.CurrentTime()) })
}

func (p *Provider) headers(secret string) map[string]string {
	return p.AuthHeaders(secret, map[string]string{"Accept": "application/json"})
}

// Brave reports two windows per header as "per-second, per-month", with
// resets given in seconds from now.
var windows = []struct {
	key, window string
}{
	{key: "rps", window: "1s"},
	{key: "monthly", window: "1mo"},
}

func applyRateLimits(h http.Header, res *core.ProbeResult, now time.Time) {
	limits := splitList(h.Get("X-RateLimit-Limit"))
	remaining := splitList(h.Get("X-RateLimit-Remaining"))
	resets := splitList(h.Get("X-RateLimit-Reset"))

	for i, w := range windows {
		limit := parsers.ParseFloat(at(limits, i))
		left := parsers.ParseFloat(at(remaining, i))
		if limit == nil && left == nil {
			continue
		}
		rl := core.RateLimit{Limit: limit, Remaining: left, Unit: "requests", Window: w.window}
		if secs, err := strconv.ParseInt(at(resets, i), 10, 64); err == nil {
			t := now.Add(time.Duration(secs) * time.Second)
			rl.ResetsAt = &t
		}
		if res.RateLimits == nil {
			res.RateLimits = make(map[string]core.RateLimit)
		}
		res.RateLimits[w.key] = rl
	}
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func at(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}
