package explain

import (
	"net/http"
	"testing"

	"github.com/janekbaraniewski/keydash/internal/core"
)

func TestExplain_StatusTable(t *testing.T) {
	tests := []struct {
		status int
		kind   core.ErrorKind
		title  string
	}{
		{http.StatusUnauthorized, core.ErrorAuthenticationFailed, "Authentication Failed"},
		{http.StatusForbidden, core.ErrorPermissionDenied, "Permission Denied"},
		{http.StatusNotFound, core.ErrorNotFound, "Endpoint Not Found"},
		{http.StatusTooManyRequests, core.ErrorRateLimited, "Rate Limited"},
		{http.StatusInternalServerError, core.ErrorProviderServer, "OpenAI Server Error"},
	}

	for _, tt := range tests {
		got := Explain(`{"error":"nope"}`, tt.status)
		if got.Kind != tt.kind {
			t.Errorf("status %d: kind = %s, want %s", tt.status, got.Kind, tt.kind)
		}
		if got.Title != tt.title {
			t.Errorf("status %d: title = %q, want %q", tt.status, got.Title, tt.title)
		}
		if len(got.Solutions) == 0 {
			t.Errorf("status %d: expected solutions", tt.status)
		}
	}
}

func TestExplain_MissingScopesOverridesStatus(t *testing.T) {
	body := `{"error":{"message":"You have insufficient permissions for this operation. Missing scopes: api.usage.read"}}`
	for _, status := range []int{http.StatusForbidden, http.StatusUnauthorized, 0, 418} {
		got := Explain(body, status)
		if got.Kind != core.ErrorInsufficientScopes {
			t.Errorf("status %d: kind = %s, want insufficient_scopes", status, got.Kind)
		}
		if got.Title != "Insufficient API Key Scopes" {
			t.Errorf("status %d: title = %q", status, got.Title)
		}
	}

	got := Explain("requires api.model.read", http.StatusForbidden)
	if got.Kind != core.ErrorInsufficientScopes {
		t.Fatalf("kind = %s, want insufficient_scopes", got.Kind)
	}
}

func TestExplain_RateLimitedIgnoresBody(t *testing.T) {
	got := Explain("anything at all", http.StatusTooManyRequests)
	if got.Kind != core.ErrorRateLimited {
		t.Fatalf("kind = %s, want rate_limited", got.Kind)
	}
}

func TestExplain_UnmappedStatusCarriesRawMessage(t *testing.T) {
	got := Explain("I'm a teapot", 418)
	if got.Kind != core.ErrorUnknown {
		t.Fatalf("kind = %s, want unknown", got.Kind)
	}
	if got.Title != "Unknown Error" {
		t.Fatalf("title = %q, want Unknown Error", got.Title)
	}
	if got.Description != "I'm a teapot" {
		t.Fatalf("description = %q, want raw message", got.Description)
	}
}

func TestExplain_NoStatusIsNetworkFailure(t *testing.T) {
	got := Explain("dial tcp: connection refused", 0)
	if got.Kind != core.ErrorNetworkFailure {
		t.Fatalf("kind = %s, want network_failure", got.Kind)
	}
	if got.Title != "Unknown Error" || got.Description != "dial tcp: connection refused" {
		t.Fatalf("unexpected explanation: %+v", got)
	}
}

func TestExplain_ResultsAreIndependent(t *testing.T) {
	a := Explain("", http.StatusUnauthorized)
	a.Solutions[0] = "mutated"
	b := Explain("", http.StatusUnauthorized)
	if b.Solutions[0] == "mutated" {
		t.Fatal("mutating one explanation leaked into the shared table")
	}
}
