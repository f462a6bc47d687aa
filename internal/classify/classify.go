// Package classify infers the provider and subtype of a raw API key from its
// shape alone. It performs no I/O.
package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/janekbaraniewski/keydash/internal/core"
)

type rule struct {
	name  string
	match func(s string) bool
	out   core.Classification
}

// rules is evaluated top to bottom and the first match wins. Several
// providers share prefixes (sk-admin-, sk-proj- and sk-ant- are all sk-),
// so the order below is part of the contract and must not be re-sorted.
var rules = []rule{
	{"openai-admin", hasPrefix("sk-admin-"), out(core.ProviderOpenAI, core.KeyTypeAdmin)},
	{"openai-project", hasPrefix("sk-proj-"), out(core.ProviderOpenAI, core.KeyTypeProject)},
	{"anthropic", hasPrefix("sk-ant-"), out(core.ProviderAnthropic, core.KeyTypeProject)},
	{"deepseek", func(s string) bool { return strings.HasPrefix(s, "sk-") && length(s) > 60 }, out(core.ProviderDeepSeek, core.KeyTypeAPI)},
	{"openai-legacy", hasPrefix("sk-"), out(core.ProviderOpenAI, core.KeyTypeProject)},
	{"brave", hasPrefix("BSA"), out(core.ProviderBrave, core.KeyTypeSearch)},
	{"newsdata", hasPrefix("pub_"), out(core.ProviderNewsData, core.KeyTypeNews)},
	{"groq", hasPrefix("gsk_"), out(core.ProviderGroq, core.KeyTypeAI)},
	{"perplexity", hasPrefix("pplx-"), out(core.ProviderPerplexity, core.KeyTypeAI)},
	{"gemini-ai", hasPrefix("AIzaSy"), out(core.ProviderGemini, core.KeyTypeAI)},
	{"aws", hasPrefix("AKIA", "ASIA"), out(core.ProviderAWS, core.KeyTypeAccessKey)},
	{"anthropic-claude", hasPrefix("claude-"), out(core.ProviderAnthropic, core.KeyTypeClaude)},
	{"huggingface", hasPrefix("hf_"), out(core.ProviderHuggingFace, core.KeyTypeToken)},
	{"xai", hasPrefix("xai-"), out(core.ProviderXAI, core.KeyTypeAPI)},
	{"replicate", hasPrefix("rplx-"), out(core.ProviderReplicate, core.KeyTypeAPI)},
	{"google-cloud", hasPrefix("gcp_"), out(core.ProviderGoogleCloud, core.KeyTypeServiceAccount)},
	{"newsapi-org", func(s string) bool { return len(s) == 32 && isLowerHex(s) }, out(core.ProviderNewsAPIOrg, core.KeyTypeNews)},
	{"newsapi-ai", isUUIDShape, out(core.ProviderNewsAPIAI, core.KeyTypeNews)},
	{"serpapi", func(s string) bool { return len(s) == 64 && isLowerHex(s) }, out(core.ProviderSerpAPI, core.KeyTypeSearch)},
	{"google-cse", func(s string) bool { return strings.Contains(s, ":") && length(s) > 10 }, out(core.ProviderGoogleCSE, core.KeyTypeSearch)},
	{"gemini-api", func(s string) bool { return len(s) == 39 && isAlnum(s) }, out(core.ProviderGemini, core.KeyTypeAPI)},
	{"azure", isAzure, out(core.ProviderAzure, core.KeyTypeCognitiveServices)},
	// Unreachable: every UUID-shaped input already matched newsapi-ai.
	{"microsoft", func(s string) bool { return isUUIDShape(s) && isLowerHex(strings.ReplaceAll(s, "-", "")) }, out(core.ProviderMicrosoft, core.KeyTypeSubscriptionID)},
}

var unknown = out(core.ProviderUnknown, core.KeyTypeUnknown)

// Classify maps a raw secret to its provider and key subtype. It is total:
// input nothing recognizes yields unknown/unknown.
func Classify(secret string) core.Classification {
	c, _ := Explain(secret)
	return c
}

// Explain is Classify plus the name of the rule that matched ("" for none).
func Explain(secret string) (core.Classification, string) {
	for _, r := range rules {
		if r.match(secret) {
			return r.out, r.name
		}
	}
	return unknown, ""
}

func out(p core.Provider, t core.KeyType) core.Classification {
	return core.Classification{Provider: p, KeyType: t}
}

// length counts characters, not bytes.
func length(s string) int {
	return utf8.RuneCountInString(s)
}

func hasPrefix(prefixes ...string) func(string) bool {
	return func(s string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(s, p) {
				return true
			}
		}
		return false
	}
}

func isLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func isUUIDShape(s string) bool {
	return length(s) == 36 && strings.Count(s, "-") == 4
}

func isAzure(s string) bool {
	if len(s) < 20 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && c != '-' && !isAlnum(s[i:i+1]) {
			return false
		}
	}
	return strings.Contains(strings.ToLower(s), "azure")
}
