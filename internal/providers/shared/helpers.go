package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/explain"
	"github.com/janekbaraniewski/keydash/internal/parsers"
)

const (
	maxBodyBytes    = 1 << 20
	maxErrorExcerpt = 512
)

// Call describes one outbound step of a probe.
type Call struct {
	Step    string // short name used in logs, e.g. "usage"
	Method  string
	URL     string
	Query   url.Values
	Headers map[string]string
	Body    any // JSON-encoded when non-nil
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Do performs a single attempt of call. A non-nil error means no HTTP response
// was received; any status code, including failures, comes back in Response.
func Do(ctx context.Context, req core.ProbeRequest, call Call) (Response, error) {
	target := call.URL
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	var body io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encoding %s request: %w", call.Step, err)
		}
		body = bytes.NewReader(payload)
	}

	method := call.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Response{}, fmt.Errorf("creating %s request: %w", call.Step, err)
	}
	for k, v := range call.Headers {
		httpReq.Header.Set(k, v)
	}
	if call.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	log := req.Log()
	started := time.Now()
	resp, err := req.HTTPClient().Do(httpReq)
	if err != nil {
		log.Debug("probe step failed", "event", "probe_step", "step", call.Step, "error", err, "elapsed", time.Since(started))
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Debug("probe step body read failed", "event", "probe_step", "step", call.Step, "error", err)
		return Response{}, fmt.Errorf("reading %s response: %w", call.Step, err)
	}

	log.Debug("probe step",
		"event", "probe_step",
		"step", call.Step,
		"status_code", resp.StatusCode,
		"elapsed", time.Since(started),
		"headers", parsers.RedactHeaders(resp.Header),
	)

	return Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// StepFailure builds the per-step error record for a failed call. label names
// the endpoint in operator terms, e.g. "Usage API".
func StepFailure(label string, resp Response, err error) *core.StepError {
	if err != nil {
		msg := err.Error()
		return &core.StepError{
			Error:        fmt.Sprintf("%s network error: %s", label, msg),
			ErrorDetails: explain.Explain(msg, 0),
		}
	}
	text := excerpt(resp.Body)
	return &core.StepError{
		Error:        fmt.Sprintf("%s failed: %d - %s", label, resp.StatusCode, text),
		StatusCode:   resp.StatusCode,
		ErrorDetails: explain.Explain(text, resp.StatusCode),
	}
}

// Fail marks res as a terminal error caused by the given step.
func Fail(res *core.ProbeResult, label string, resp Response, err error) {
	step := StepFailure(label, resp, err)
	details := step.ErrorDetails
	res.Status = core.StatusError
	res.Error = step.Error
	res.StatusCode = step.StatusCode
	res.ErrorDetails = &details
}

// RawJSON passes a provider payload through untouched when it is valid JSON
// and wraps it as a JSON string otherwise, so results always re-encode.
func RawJSON(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(body))
	return json.RawMessage(quoted)
}

// HeaderHook extracts provider-specific data, typically rate limits, from a
// successful response.
type HeaderHook func(h http.Header, res *core.ProbeResult)

// Liveness runs a single authenticated call and folds the outcome into a
// success/error result. It backs every provider without a usage API. Without
// hooks the standard x-ratelimit-* headers are parsed.
func Liveness(ctx context.Context, req core.ProbeRequest, provider core.Provider, label string, call Call, successMessage string, hooks ...HeaderHook) core.ProbeResult {
	res := core.NewProbeResult(provider, req.CurrentTime())

	resp, err := Do(ctx, req, call)
	if err != nil || !resp.OK() {
		Fail(&res, label, resp, err)
		return res
	}

	if len(hooks) == 0 {
		hooks = []HeaderHook{parsers.ApplyStandardRateLimits}
	}
	for _, hook := range hooks {
		hook(resp.Header, &res)
	}
	res.Status = core.StatusSuccess
	res.Message = successMessage
	return res
}

func excerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorExcerpt {
		text = strings.ToValidUTF8(text[:maxErrorExcerpt], "") + "..."
	}
	return text
}
