package providers

import (
	"testing"

	"github.com/janekbaraniewski/keydash/internal/core"
)

func TestAllProbers_UniqueIDs(t *testing.T) {
	seen := map[core.Provider]bool{}
	for _, p := range AllProbers() {
		if seen[p.ID()] {
			t.Fatalf("duplicate prober %q", p.ID())
		}
		seen[p.ID()] = true
		if p.Describe().Name == "" {
			t.Errorf("prober %q has no display name", p.ID())
		}
	}
}

func TestByID_SupportedSet(t *testing.T) {
	byID := ByID(AllProbers())
	for _, want := range []core.Provider{
		core.ProviderOpenAI, core.ProviderAnthropic, core.ProviderBrave,
		core.ProviderGroq, core.ProviderPerplexity, core.ProviderXAI,
	} {
		p, ok := byID[want]
		if !ok {
			t.Fatalf("missing prober for %q", want)
		}
		if p.ID() != want {
			t.Fatalf("byID[%q].ID() = %q", want, p.ID())
		}
	}
	for _, unsupported := range []core.Provider{core.ProviderDeepSeek, core.ProviderGemini, core.ProviderUnknown} {
		if _, ok := byID[unsupported]; ok {
			t.Errorf("unexpected prober for %q", unsupported)
		}
	}
}

func TestUsageAPIProviders(t *testing.T) {
	byID := ByID(AllProbers())
	if !byID[core.ProviderOpenAI].Describe().UsageAPI || !byID[core.ProviderBrave].Describe().UsageAPI {
		t.Fatal("OpenAI and Brave expose usage data")
	}
	if byID[core.ProviderGroq].Describe().UsageAPI {
		t.Fatal("Groq has no usage API")
	}
}
