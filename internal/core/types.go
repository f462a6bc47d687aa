package core

import (
	"encoding/json"
	"time"
)

const (
	DefaultProbeTimeout = 10 * time.Second
	MinProbeTimeout     = 10 * time.Second
	MaxProbeTimeout     = 30 * time.Second
	DefaultLookbackDays = 30
)

type ProbeStatus string

const (
	StatusSuccess       ProbeStatus = "success"
	StatusPartial       ProbeStatus = "partial"
	StatusBasicOnly     ProbeStatus = "basic_only"
	StatusNoUsageAccess ProbeStatus = "no_usage_access"
	StatusUnsupported   ProbeStatus = "unsupported"
	StatusError         ProbeStatus = "error"
)

// IsFailure reports whether the status represents a real error. Missing
// usage access is an expected outcome, not a failure.
func (s ProbeStatus) IsFailure() bool {
	return s == StatusError
}

type ErrorKind string

const (
	ErrorAuthenticationFailed ErrorKind = "auth_failed"
	ErrorPermissionDenied     ErrorKind = "permission_denied"
	ErrorNotFound             ErrorKind = "not_found"
	ErrorRateLimited          ErrorKind = "rate_limited"
	ErrorProviderServer       ErrorKind = "provider_server_error"
	ErrorInsufficientScopes   ErrorKind = "insufficient_scopes"
	ErrorNetworkFailure       ErrorKind = "network_failure"
	ErrorUnknown              ErrorKind = "unknown"
)

// ErrorExplanation is the operator-facing description of a failed call.
type ErrorExplanation struct {
	Kind        ErrorKind `json:"kind"`
	Icon        string    `json:"icon"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Solutions   []string  `json:"solutions"`
}

// StepError records the failure of one non-terminal step of a probe.
type StepError struct {
	Error        string           `json:"error"`
	StatusCode   int              `json:"status_code,omitempty"`
	ErrorDetails ErrorExplanation `json:"error_details"`
}

type RateLimit struct {
	Limit     *float64   `json:"limit,omitempty"`
	Remaining *float64   `json:"remaining,omitempty"`
	Unit      string     `json:"unit"`   // "requests", "tokens"
	Window    string     `json:"window"` // "1m", "1d"
	ResetsAt  *time.Time `json:"resets_at,omitempty"`
}

// ProbeResult is the normalized outcome of probing one secret against one
// provider.
type ProbeResult struct {
	Provider     Provider             `json:"provider"`
	Status       ProbeStatus          `json:"status"`
	Usage        json.RawMessage      `json:"usage,omitempty"`
	Costs        json.RawMessage      `json:"costs,omitempty"`
	Error        string               `json:"error,omitempty"`
	StatusCode   int                  `json:"status_code,omitempty"`
	ErrorDetails *ErrorExplanation    `json:"error_details,omitempty"`
	UsageError   *StepError           `json:"usage_error,omitempty"`
	CostsError   *StepError           `json:"costs_error,omitempty"`
	Message      string               `json:"message,omitempty"`
	RateLimits   map[string]RateLimit `json:"rate_limits,omitempty"`
	CheckedAt    time.Time            `json:"checked_at"`
}

func NewProbeResult(provider Provider, at time.Time) ProbeResult {
	return ProbeResult{Provider: provider, CheckedAt: at}
}

// UnsupportedResult is returned without any network activity.
func UnsupportedResult(provider Provider, at time.Time) ProbeResult {
	res := NewProbeResult(provider, at)
	res.Status = StatusUnsupported
	res.Message = "Usage probing is not supported for provider '" + string(provider) + "'"
	return res
}
