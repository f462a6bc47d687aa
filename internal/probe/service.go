// Package probe dispatches a secret to its provider's probe sequence and
// normalizes every outcome into a core.ProbeResult.
package probe

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/providers"
)

type Options struct {
	// Timeout bounds every outbound call; clamped to [MinProbeTimeout, MaxProbeTimeout].
	Timeout time.Duration
	// BaseURLs overrides provider endpoints, keyed by provider tag.
	BaseURLs map[core.Provider]string
	// Client replaces the default HTTP client. A client without a Timeout is
	// copied and given the clamped timeout.
	Client *http.Client
	Logger *slog.Logger
	Now    func() time.Time
	// Probers replaces the built-in registry.
	Probers []core.Prober
}

type Service struct {
	probers  map[core.Provider]core.Prober
	order    []core.Provider
	baseURLs map[core.Provider]string
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func New(opts Options) *Service {
	probers := opts.Probers
	if probers == nil {
		probers = providers.AllProbers()
	}
	timeout := ClampTimeout(opts.Timeout)
	client := opts.Client
	switch {
	case client == nil:
		client = &http.Client{Timeout: timeout}
	case client.Timeout == 0:
		bounded := *client
		bounded.Timeout = timeout
		client = &bounded
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		probers:  providers.ByID(probers),
		order:    lo.Map(probers, func(p core.Prober, _ int) core.Provider { return p.ID() }),
		baseURLs: lo.Assign(opts.BaseURLs),
		client:   client,
		timeout:  timeout,
		logger:   logger,
		now:      now,
	}
}

// ClampTimeout applies the default to unset values and keeps the rest within
// the allowed range.
func ClampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return core.DefaultProbeTimeout
	case d < core.MinProbeTimeout:
		return core.MinProbeTimeout
	case d > core.MaxProbeTimeout:
		return core.MaxProbeTimeout
	default:
		return d
	}
}

func (s *Service) Timeout() time.Duration { return s.timeout }

// Supports reports whether provider has a probe sequence.
func (s *Service) Supports(provider core.Provider) bool {
	_, ok := s.probers[provider]
	return ok
}

// Providers lists the supported providers in registry order.
func (s *Service) Providers() []core.ProviderInfo {
	return lo.Map(s.order, func(id core.Provider, _ int) core.ProviderInfo {
		return s.probers[id].Describe()
	})
}

// Probe runs the provider's full sequence. It never fails: transport and
// provider errors come back inside the result. Unsupported providers make no
// network call.
func (s *Service) Probe(ctx context.Context, secret string, provider core.Provider, lookbackDays int) core.ProbeResult {
	return s.run(ctx, "probe", secret, provider, lookbackDays, core.Prober.Probe)
}

// Check runs only the provider's liveness call.
func (s *Service) Check(ctx context.Context, secret string, provider core.Provider) core.ProbeResult {
	return s.run(ctx, "check", secret, provider, 0, core.Prober.Check)
}

func (s *Service) run(ctx context.Context, mode, secret string, provider core.Provider, days int,
	call func(core.Prober, context.Context, core.ProbeRequest) core.ProbeResult,
) core.ProbeResult {
	provider = core.ParseProvider(string(provider))
	log := s.logger.With("provider", string(provider), "key_preview", core.MaskSecret(secret), "mode", mode)

	p, ok := s.probers[provider]
	if !ok {
		log.Debug("provider not supported", "event", "probe_done", "status", core.StatusUnsupported)
		return core.UnsupportedResult(provider, s.now())
	}

	if days <= 0 {
		days = core.DefaultLookbackDays
	}
	req := core.ProbeRequest{
		Secret:       strings.TrimSpace(secret),
		LookbackDays: days,
		BaseURL:      s.baseURLs[provider],
		Client:       s.client,
		Logger:       log,
		Now:          s.now,
	}

	started := time.Now()
	res := call(p, ctx, req)
	res.Provider = provider

	attrs := []any{"event", "probe_done", "status", res.Status, "elapsed", time.Since(started)}
	if res.StatusCode != 0 {
		attrs = append(attrs, "status_code", res.StatusCode)
	}
	if res.Status.IsFailure() {
		log.Warn("probe failed", attrs...)
	} else {
		log.Info("probe finished", attrs...)
	}
	return res
}

// Holder publishes the current Service to concurrent readers while a config
// reload swaps in a new one.
type Holder struct {
	current atomic.Pointer[Service]
}

func NewHolder(s *Service) *Holder {
	h := &Holder{}
	h.current.Store(s)
	return h
}

func (h *Holder) Load() *Service { return h.current.Load() }

func (h *Holder) Store(s *Service) { h.current.Store(s) }
