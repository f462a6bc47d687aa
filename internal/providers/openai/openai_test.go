package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/janekbaraniewski/keydash/internal/core"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func newServer(t *testing.T, usageStatus, costsStatus int) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if got := r.Header.Get("Authorization"); got != "Bearer sk-admin-test" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case usagePath:
			w.WriteHeader(usageStatus)
			if usageStatus == http.StatusOK {
				w.Write([]byte(`{"object":"page","data":[]}`))
			} else {
				w.Write([]byte(`{"error":{"message":"Missing scopes: api.usage.read"}}`))
			}
		case costsPath:
			w.WriteHeader(costsStatus)
			if costsStatus == http.StatusOK {
				w.Write([]byte(`{"object":"page","data":[{"amount":1.5}]}`))
			} else {
				w.Write([]byte(`{"error":"forbidden"}`))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &paths
}

func probeRequest(baseURL string) core.ProbeRequest {
	return core.ProbeRequest{
		Secret:       "sk-admin-test",
		LookbackDays: 7,
		BaseURL:      baseURL,
		Now:          func() time.Time { return fixedNow },
	}
}

func TestProbe_StatusMatrix(t *testing.T) {
	tests := []struct {
		name        string
		usage       int
		costs       int
		want        core.ProbeStatus
		wantUsage   bool
		wantCosts   bool
		wantMessage bool
	}{
		{name: "both available", usage: 200, costs: 200, want: core.StatusSuccess, wantUsage: true, wantCosts: true},
		{name: "usage only", usage: 200, costs: 403, want: core.StatusPartial, wantUsage: true},
		{name: "costs only", usage: 401, costs: 200, want: core.StatusPartial, wantCosts: true},
		{name: "neither", usage: 403, costs: 403, want: core.StatusNoUsageAccess, wantMessage: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, paths := newServer(t, tt.usage, tt.costs)
			res := New().Probe(context.Background(), probeRequest(server.URL))

			if res.Status != tt.want {
				t.Fatalf("Status = %s, want %s", res.Status, tt.want)
			}
			if res.Status.IsFailure() {
				t.Fatal("usage access outcomes must not be failures")
			}
			if (res.Usage != nil) != tt.wantUsage {
				t.Errorf("usage present = %v, want %v", res.Usage != nil, tt.wantUsage)
			}
			if (res.UsageError != nil) == tt.wantUsage {
				t.Errorf("usage_error = %+v", res.UsageError)
			}
			if (res.Costs != nil) != tt.wantCosts {
				t.Errorf("costs present = %v, want %v", res.Costs != nil, tt.wantCosts)
			}
			if (res.CostsError != nil) == tt.wantCosts {
				t.Errorf("costs_error = %+v", res.CostsError)
			}
			if (res.Message != "") != tt.wantMessage {
				t.Errorf("Message = %q", res.Message)
			}
			if len(*paths) != 2 || (*paths)[0] != usagePath || (*paths)[1] != costsPath {
				t.Errorf("calls = %v, want usage then costs", *paths)
			}
		})
	}
}

func TestProbe_WindowQuery(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == usagePath {
			query = r.URL.RawQuery
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	New().Probe(context.Background(), probeRequest(server.URL))

	wantStart := "start_time=1699395200"
	for _, part := range []string{"bucket_width=1d", "limit=7", wantStart} {
		if !strings.Contains(query, part) {
			t.Errorf("query %q missing %q", query, part)
		}
	}
}

func TestProbe_DefaultsLookback(t *testing.T) {
	var limit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit = r.URL.Query().Get("limit")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req := probeRequest(server.URL)
	req.LookbackDays = 0
	New().Probe(context.Background(), req)

	if limit != "30" {
		t.Fatalf("limit = %q, want 30", limit)
	}
}

func TestProbe_ScopesErrorExplained(t *testing.T) {
	server, _ := newServer(t, 403, 200)
	res := New().Probe(context.Background(), probeRequest(server.URL))

	if res.UsageError == nil {
		t.Fatal("expected usage_error")
	}
	if res.UsageError.StatusCode != 403 {
		t.Errorf("usage_error status = %d, want 403", res.UsageError.StatusCode)
	}
	if res.UsageError.ErrorDetails.Kind != core.ErrorInsufficientScopes {
		t.Errorf("kind = %s, want insufficient_scopes", res.UsageError.ErrorDetails.Kind)
	}
	if !strings.HasPrefix(res.UsageError.Error, "Usage API failed: 403 - ") {
		t.Errorf("error = %q", res.UsageError.Error)
	}
}

func TestProbe_NetworkFailureIsNoUsageAccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	res := New().Probe(context.Background(), probeRequest(url))

	if res.Status != core.StatusNoUsageAccess {
		t.Fatalf("Status = %s, want no_usage_access", res.Status)
	}
	if res.UsageError == nil || res.UsageError.ErrorDetails.Kind != core.ErrorNetworkFailure {
		t.Fatalf("usage_error = %+v", res.UsageError)
	}
	if res.CostsError == nil || !strings.HasPrefix(res.CostsError.Error, "Costs API network error: ") {
		t.Fatalf("costs_error = %+v", res.CostsError)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   core.ProbeStatus
	}{
		{name: "valid", status: 200, want: core.StatusSuccess},
		{name: "revoked", status: 401, want: core.StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != modelsPath {
					t.Errorf("path = %s, want %s", r.URL.Path, modelsPath)
				}
				w.Header().Set("x-ratelimit-limit-requests", "500")
				w.Header().Set("x-ratelimit-remaining-requests", "499")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"data":[]}`))
			}))
			defer server.Close()

			res := New().Check(context.Background(), probeRequest(server.URL))
			if res.Status != tt.want {
				t.Fatalf("Status = %s, want %s", res.Status, tt.want)
			}
			if tt.want == core.StatusSuccess {
				if rpm, ok := res.RateLimits["rpm"]; !ok || rpm.Limit == nil || *rpm.Limit != 500 {
					t.Errorf("rpm = %+v", res.RateLimits["rpm"])
				}
			} else if res.ErrorDetails == nil || res.ErrorDetails.Kind != core.ErrorAuthenticationFailed {
				t.Errorf("error details = %+v", res.ErrorDetails)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	p := New()
	if p.ID() != core.ProviderOpenAI {
		t.Fatalf("ID = %s", p.ID())
	}
	if !p.Describe().UsageAPI {
		t.Fatal("OpenAI exposes a usage API")
	}
}
