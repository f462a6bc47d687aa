// Package usage runs the dashboard-wide usage pass over every stored key.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/keydash/internal/core"
)

const DefaultDelay = 500 * time.Millisecond

const (
	SourceAdmin    = "admin key direct access"
	SourceOrphaned = "orphaned project key (limited access)"
	SourceProvider = "provider probe"

	orphanNote       = "Project key without admin association - consider linking to an admin key for usage data"
	basicOnlyMessage = "API key works for basic calls but not Usage/Costs APIs (this is normal)"
)

type KeySource interface {
	ListKeysWithSecrets(ctx context.Context) ([]core.KeyRecord, error)
}

type Prober interface {
	Probe(ctx context.Context, secret string, provider core.Provider, lookbackDays int) core.ProbeResult
	Check(ctx context.Context, secret string, provider core.Provider) core.ProbeResult
	Supports(provider core.Provider) bool
}

type ProjectKeyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// KeyUsage is one row of the rollup: key metadata merged with its probe
// result.
type KeyUsage struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Key              string       `json:"key"`
	KeyType          core.KeyType `json:"key_type"`
	AccountEmail     string       `json:"account_email"`
	AccountName      string       `json:"account_name"`
	OrganizationName string       `json:"organization_name"`
	AdminName        *string      `json:"admin_name"`

	UsageKeySource        string          `json:"usage_key_source"`
	AssociatedProjectKeys []ProjectKeyRef `json:"associated_project_keys"`
	ProjectKeyCount       int             `json:"project_key_count"`
	Note                  string          `json:"note,omitempty"`

	core.ProbeResult
}

// Report maps a display name, normally the key name, to its row.
type Report map[string]KeyUsage

type Rollup struct {
	keys   KeySource
	prober Prober
	delay  time.Duration
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

type Option func(*Rollup)

func WithDelay(d time.Duration) Option {
	return func(r *Rollup) {
		if d >= 0 {
			r.delay = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Rollup) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRollup(keys KeySource, prober Prober, opts ...Option) *Rollup {
	r := &Rollup{
		keys:   keys,
		prober: prober,
		delay:  DefaultDelay,
		logger: slog.New(slog.DiscardHandler),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run probes every key that can report usage, one at a time with a fixed
// delay after each outbound probe. OpenAI admin keys get the full probe plus
// their linked project keys as inventory; orphaned OpenAI project keys get a
// liveness check only; linked project keys are not probed; keys of other
// providers get their provider probe.
func (r *Rollup) Run(ctx context.Context, lookbackDays int) (Report, error) {
	if lookbackDays <= 0 {
		lookbackDays = core.DefaultLookbackDays
	}
	keys, err := r.keys.ListKeysWithSecrets(ctx)
	if err != nil {
		return nil, fmt.Errorf("usage: loading keys: %w", err)
	}

	// OpenAI keys outside the admin/project grouping, such as provider
	// overrides stored as "api", get the plain provider probe.
	openAI, others := lo.FilterReject(keys, func(k core.KeyRecord, _ int) bool {
		return k.Provider == core.ProviderOpenAI && (k.KeyType == core.KeyTypeAdmin || k.KeyType == core.KeyTypeProject)
	})
	admins := lo.Filter(openAI, func(k core.KeyRecord, _ int) bool { return k.IsAdmin() })
	orphans := lo.Filter(openAI, func(k core.KeyRecord, _ int) bool { return k.IsOrphanedProject() })
	linked := lo.GroupBy(
		lo.Filter(openAI, func(k core.KeyRecord, _ int) bool { return k.KeyType == core.KeyTypeProject && k.AdminKeyID != nil }),
		func(k core.KeyRecord) int64 { return *k.AdminKeyID },
	)

	r.logger.Info("usage rollup started", "event", "usage_rollup",
		"admin_keys", len(admins), "orphaned_keys", len(orphans), "other_keys", len(others), "days", lookbackDays)

	report := Report{}
	for _, k := range admins {
		res := r.prober.Probe(ctx, k.Secret, k.Provider, lookbackDays)
		row := newRow(k, res, SourceAdmin)
		row.AssociatedProjectKeys = lo.Map(linked[k.ID], func(p core.KeyRecord, _ int) ProjectKeyRef {
			return ProjectKeyRef{ID: strconv.FormatInt(p.ID, 10), Name: p.Name, Key: p.MaskedKey}
		})
		row.ProjectKeyCount = len(row.AssociatedProjectKeys)
		report.add(row, k)
		if err := r.pause(ctx); err != nil {
			return report, err
		}
	}

	for _, k := range orphans {
		res := r.prober.Check(ctx, k.Secret, k.Provider)
		if res.Status == core.StatusSuccess {
			res.Status = core.StatusBasicOnly
			res.Message = basicOnlyMessage
		}
		row := newRow(k, res, SourceOrphaned)
		row.Note = orphanNote
		report.add(row, k)
		if err := r.pause(ctx); err != nil {
			return report, err
		}
	}

	for _, k := range others {
		res := r.prober.Probe(ctx, k.Secret, k.Provider, lookbackDays)
		report.add(newRow(k, res, SourceProvider), k)
		if !r.prober.Supports(k.Provider) {
			continue
		}
		if err := r.pause(ctx); err != nil {
			return report, err
		}
	}

	counts := lo.CountValuesBy(lo.Values(report), func(u KeyUsage) core.ProbeStatus { return u.Status })
	r.logger.Info("usage rollup finished", "event", "usage_rollup", "keys", len(report), "statuses", counts)
	return report, nil
}

func newRow(k core.KeyRecord, res core.ProbeResult, source string) KeyUsage {
	var adminName *string
	if k.AdminName != "" {
		adminName = lo.ToPtr(k.AdminName)
	}
	return KeyUsage{
		ID:                    strconv.FormatInt(k.ID, 10),
		Name:                  k.Name,
		Key:                   k.MaskedKey,
		KeyType:               k.KeyType,
		AccountEmail:          k.AccountEmail,
		AccountName:           k.AccountName,
		OrganizationName:      k.OrganizationName,
		AdminName:             adminName,
		UsageKeySource:        source,
		AssociatedProjectKeys: []ProjectKeyRef{},
		ProbeResult:           res,
	}
}

// add keys the row by key name. Names are only unique per account, so a
// clash is disambiguated with the account email.
func (rep Report) add(row KeyUsage, k core.KeyRecord) {
	name := k.Name
	if _, taken := rep[name]; taken {
		name = fmt.Sprintf("%s (%s)", k.Name, k.AccountEmail)
	}
	rep[name] = row
}

func (r *Rollup) pause(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}
	return r.sleep(ctx, r.delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
