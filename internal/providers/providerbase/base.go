package providerbase

import (
	"strings"

	"github.com/janekbaraniewski/keydash/internal/core"
)

// Base centralizes provider metadata and auth wiring.
// Provider-specific packages embed this and implement only Probe() and Check().
type Base struct {
	spec core.ProviderSpec
}

func New(spec core.ProviderSpec) Base {
	normalized := spec
	if normalized.ID == "" {
		normalized.ID = core.ProviderUnknown
	}
	if normalized.Info.Name == "" {
		normalized.Info.Name = string(normalized.ID)
	}
	if normalized.Auth.Header == "" {
		normalized.Auth.Header = "Authorization"
		normalized.Auth.Scheme = "Bearer "
	}
	normalized.DefaultBaseURL = strings.TrimRight(normalized.DefaultBaseURL, "/")

	return Base{spec: normalized}
}

func (b Base) ID() core.Provider {
	return b.spec.ID
}

func (b Base) Describe() core.ProviderInfo {
	return b.spec.Info
}

func (b Base) Spec() core.ProviderSpec {
	return b.spec
}

// BaseURL prefers the per-request override (config, tests) over the default.
func (b Base) BaseURL(req core.ProbeRequest) string {
	if u := strings.TrimSpace(req.BaseURL); u != "" {
		return strings.TrimRight(u, "/")
	}
	return b.spec.DefaultBaseURL
}

// AuthHeaders returns the headers carrying the secret, merged with extra.
func (b Base) AuthHeaders(secret string, extra map[string]string) map[string]string {
	headers := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		headers[k] = v
	}
	headers[b.spec.Auth.Header] = b.spec.Auth.Scheme + secret
	return headers
}
