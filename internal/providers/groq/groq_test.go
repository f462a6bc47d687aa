package groq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/janekbaraniewski/keydash/internal/core"
)

func TestProbe_ParsesMinuteAndDailyLimits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != modelsPath {
			t.Errorf("path = %s, want %s", r.URL.Path, modelsPath)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gsk_test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("x-ratelimit-limit-requests", "30")
		w.Header().Set("x-ratelimit-remaining-requests", "29")
		w.Header().Set("x-ratelimit-limit-requests-day", "14400")
		w.Header().Set("x-ratelimit-remaining-requests-day", "14000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	res := New().Probe(context.Background(), core.ProbeRequest{Secret: "gsk_test", BaseURL: server.URL})

	if res.Status != core.StatusSuccess {
		t.Fatalf("Status = %s, want success", res.Status)
	}
	if res.Usage != nil {
		t.Error("Groq probe must not attach usage")
	}
	if rpm := res.RateLimits["rpm"]; rpm.Limit == nil || *rpm.Limit != 30 {
		t.Errorf("rpm = %+v", rpm)
	}
	rpd, ok := res.RateLimits["rpd"]
	if !ok || *rpd.Remaining != 14000 || rpd.Window != "1d" {
		t.Errorf("rpd = %+v", rpd)
	}
}

func TestProbe_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid API Key"}}`))
	}))
	defer server.Close()

	res := New().Probe(context.Background(), core.ProbeRequest{Secret: "gsk_bad", BaseURL: server.URL})
	if res.Status != core.StatusError || res.ErrorDetails == nil || res.ErrorDetails.Kind != core.ErrorAuthenticationFailed {
		t.Fatalf("result = %s %+v", res.Status, res.ErrorDetails)
	}
}
