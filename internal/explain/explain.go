// Package explain maps failed provider calls to operator-facing explanations.
package explain

import (
	"net/http"
	"slices"
	"strings"

	"github.com/janekbaraniewski/keydash/internal/core"
)

// scopeMarkers indicate a key that authenticates but lacks the permission
// scope for the endpoint. They win over the status-code table.
var scopeMarkers = []string{"Missing scopes", "api.model.read"}

var insufficientScopes = core.ErrorExplanation{
	Kind:        core.ErrorInsufficientScopes,
	Icon:        "🔐",
	Title:       "Insufficient API Key Scopes",
	Description: "Your API key doesn't have the required permissions (scopes) for this operation.",
	Solutions: []string{
		"Create a new API key with 'All' permissions in OpenAI dashboard",
		"Ensure your role is 'Owner' or 'Admin' in the organization",
		"Check that the key isn't restricted to specific models/endpoints",
		"For Usage API: Contact OpenAI support to enable usage monitoring permissions",
	},
}

var byStatus = map[int]core.ErrorExplanation{
	http.StatusUnauthorized: {
		Kind:        core.ErrorAuthenticationFailed,
		Icon:        "🔑",
		Title:       "Authentication Failed",
		Description: "Your API key is invalid, expired, or doesn't have proper permissions.",
		Solutions: []string{
			"Check if the API key is correctly copied (no extra spaces)",
			"Verify the key hasn't been revoked in OpenAI dashboard",
			"Ensure the key has billing enabled on your OpenAI account",
			"Check if the key belongs to the correct organization",
			"Try creating a new API key with 'All' permissions",
		},
	},
	http.StatusForbidden: {
		Kind:        core.ErrorPermissionDenied,
		Icon:        "🚫",
		Title:       "Permission Denied",
		Description: "Your API key doesn't have access to the Usage API. This is common - most OpenAI keys can't access usage data.",
		Solutions: []string{
			"Usage API access is restricted - most API keys cannot access it",
			"Contact OpenAI support specifically requesting Usage API access",
			"Consider using OpenAI's web dashboard for usage monitoring instead",
			"For now, use this dashboard to test key validity and organize your keys",
			"Note: Even 'admin' keys often don't have Usage API access",
		},
	},
	http.StatusTooManyRequests: {
		Kind:        core.ErrorRateLimited,
		Icon:        "⏱️",
		Title:       "Rate Limited",
		Description: "You're making too many requests. OpenAI has temporarily blocked further calls.",
		Solutions: []string{
			"Wait a few minutes before trying again",
			"Reduce the frequency of dashboard refreshes",
			"Consider upgrading your OpenAI plan for higher limits",
			"Implement exponential backoff in your requests",
		},
	},
	http.StatusInternalServerError: {
		Kind:        core.ErrorProviderServer,
		Icon:        "🔧",
		Title:       "OpenAI Server Error",
		Description: "OpenAI's servers are experiencing issues. This is not your fault.",
		Solutions: []string{
			"Wait a few minutes and try again",
			"Check OpenAI's status page (status.openai.com)",
			"Try again during off-peak hours",
			"Contact OpenAI support if the issue persists",
		},
	},
	http.StatusNotFound: {
		Kind:        core.ErrorNotFound,
		Icon:        "❓",
		Title:       "Endpoint Not Found",
		Description: "The Usage API endpoint doesn't exist or has changed.",
		Solutions: []string{
			"Usage API access is highly restricted by OpenAI",
			"Most API keys cannot access usage endpoints",
			"Use OpenAI's web dashboard for usage monitoring",
			"This dashboard can still help organize and test your keys",
		},
	},
}

var unknownSolutions = []string{
	"Check your internet connection",
	"Verify the API key is correct",
	"Try refreshing the page",
	"Contact support if the issue persists",
}

// Explain returns the explanation for a failed call. statusCode 0 means no
// HTTP response was received (connection error, timeout).
func Explain(rawMessage string, statusCode int) core.ErrorExplanation {
	for _, marker := range scopeMarkers {
		if strings.Contains(rawMessage, marker) {
			return clone(insufficientScopes)
		}
	}

	if e, ok := byStatus[statusCode]; ok {
		return clone(e)
	}

	kind := core.ErrorUnknown
	if statusCode == 0 {
		kind = core.ErrorNetworkFailure
	}
	return core.ErrorExplanation{
		Kind:        kind,
		Icon:        "⚠️",
		Title:       "Unknown Error",
		Description: rawMessage,
		Solutions:   slices.Clone(unknownSolutions),
	}
}

// clone keeps callers from mutating the shared tables through Solutions.
func clone(e core.ErrorExplanation) core.ErrorExplanation {
	e.Solutions = slices.Clone(e.Solutions)
	return e
}
