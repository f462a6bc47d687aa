package parsers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/janekbaraniewski/keydash/internal/core"
)

type RateLimitGroup struct {
	Limit     *float64
	Remaining *float64
	ResetTime *time.Time
}

func ParseFloat(val string) *float64 {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &f
}

func ParseResetTime(val string) *time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}

	if ts, err := strconv.ParseFloat(val, 64); err == nil && ts > 1_000_000_000 {
		t := time.Unix(int64(ts), 0)
		return &t
	}

	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t
	}

	if d, err := time.ParseDuration(val); err == nil {
		t := time.Now().Add(d)
		return &t
	}

	return nil
}

func ParseRateLimitGroup(h http.Header, limitHeader, remainingHeader, resetHeader string) *RateLimitGroup {
	limit := ParseFloat(h.Get(limitHeader))
	remaining := ParseFloat(h.Get(remainingHeader))
	if limit == nil && remaining == nil {
		return nil
	}
	return &RateLimitGroup{
		Limit:     limit,
		Remaining: remaining,
		ResetTime: ParseResetTime(h.Get(resetHeader)),
	}
}

// ApplyRateLimitGroup records one header family on the result under key,
// leaving the result untouched when the headers are absent.
func ApplyRateLimitGroup(h http.Header, res *core.ProbeResult, key, unit, window, limitH, remainH, resetH string) {
	rlg := ParseRateLimitGroup(h, limitH, remainH, resetH)
	if rlg == nil {
		return
	}
	if res.RateLimits == nil {
		res.RateLimits = make(map[string]core.RateLimit)
	}
	res.RateLimits[key] = core.RateLimit{
		Limit:     rlg.Limit,
		Remaining: rlg.Remaining,
		Unit:      unit,
		Window:    window,
		ResetsAt:  rlg.ResetTime,
	}
}

// ApplyStandardRateLimits handles the OpenAI-style x-ratelimit-* headers
// shared by OpenAI, Groq, xAI and Perplexity.
func ApplyStandardRateLimits(h http.Header, res *core.ProbeResult) {
	ApplyRateLimitGroup(h, res, "rpm", "requests", "1m",
		"x-ratelimit-limit-requests", "x-ratelimit-remaining-requests", "x-ratelimit-reset-requests")
	ApplyRateLimitGroup(h, res, "tpm", "tokens", "1m",
		"x-ratelimit-limit-tokens", "x-ratelimit-remaining-tokens", "x-ratelimit-reset-tokens")
}

func RedactHeaders(headers http.Header, sensitiveKeys ...string) map[string]string {
	sensitive := map[string]bool{
		"authorization":        true,
		"x-api-key":            true,
		"x-subscription-token": true,
		"cookie":               true,
		"set-cookie":           true,
	}
	for _, k := range sensitiveKeys {
		sensitive[strings.ToLower(k)] = true
	}

	out := make(map[string]string)
	for k, vals := range headers {
		key := strings.ToLower(k)
		val := strings.Join(vals, ", ")
		if sensitive[key] {
			val = core.MaskSecret(val)
		}
		out[k] = val
	}
	return out
}
