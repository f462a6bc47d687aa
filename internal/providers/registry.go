package providers

import (
	"github.com/samber/lo"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/providers/anthropic"
	"github.com/janekbaraniewski/keydash/internal/providers/brave"
	"github.com/janekbaraniewski/keydash/internal/providers/groq"
	"github.com/janekbaraniewski/keydash/internal/providers/openai"
	"github.com/janekbaraniewski/keydash/internal/providers/perplexity"
	"github.com/janekbaraniewski/keydash/internal/providers/xai"
)

// AllProbers returns one prober per provider with probe support, in display
// order.
func AllProbers() []core.Prober {
	return []core.Prober{
		openai.New(),
		anthropic.New(),
		brave.New(),
		groq.New(),
		perplexity.New(),
		xai.New(),
	}
}

// ByID indexes probers by provider tag. Classified providers missing from the
// map are unsupported.
func ByID(probers []core.Prober) map[core.Provider]core.Prober {
	return lo.KeyBy(probers, func(p core.Prober) core.Provider { return p.ID() })
}
