package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/usage"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Keys prints stored keys. Only masked previews are ever shown.
func Keys(w io.Writer, keys []core.KeyRecord) error {
	if len(keys) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No API keys stored."))
		return err
	}
	t := newTable("ID", "NAME", "PROVIDER", "TYPE", "KEY", "ACCOUNT", "ADMIN")
	for _, k := range keys {
		t.Row(
			strconv.FormatInt(k.ID, 10),
			k.Name,
			string(k.Provider),
			string(k.KeyType),
			k.MaskedKey,
			orDash(k.AccountEmail),
			orDash(k.AdminName),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func Accounts(w io.Writer, accounts []core.Account) error {
	if len(accounts) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No accounts."))
		return err
	}
	t := newTable("ID", "EMAIL", "NAME", "ORGANIZATION")
	for _, a := range accounts {
		t.Row(strconv.FormatInt(a.ID, 10), a.Email, orDash(a.Name), orDash(a.OrganizationName))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Classification prints what a secret was recognized as.
func Classification(w io.Writer, masked string, c core.Classification, rule string, probeable bool) error {
	lines := []string{
		titleStyle.Render(masked),
		field("Provider", string(c.Provider)),
		field("Key type", string(c.KeyType)),
		field("Rule", orDash(rule)),
		field("Probeable", lo.Ternary(probeable, "yes", "no")),
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("  %-12s", label)) + valueStyle.Render(value)
}

// ProbeResult prints one probe outcome: status, message, rate limits, and
// the explanation of any failed call.
func ProbeResult(w io.Writer, res core.ProbeResult) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(string(res.Provider)) + "  " + StatusBadge(res.Status) + "\n")
	if res.Message != "" {
		b.WriteString(field("Message", res.Message) + "\n")
	}
	if res.Error != "" {
		b.WriteString(field("Error", res.Error) + "\n")
	}
	if res.StatusCode != 0 {
		b.WriteString(field("HTTP", strconv.Itoa(res.StatusCode)) + "\n")
	}
	if res.ErrorDetails != nil {
		b.WriteString(explanation(*res.ErrorDetails))
	}
	for _, step := range []struct {
		name string
		err  *core.StepError
	}{{"Usage API", res.UsageError}, {"Costs API", res.CostsError}} {
		if step.err == nil {
			continue
		}
		b.WriteString(sectionStyle.Render(step.name) + "\n")
		b.WriteString(explanation(step.err.ErrorDetails))
	}
	if len(res.RateLimits) > 0 {
		b.WriteString(sectionStyle.Render("Rate limits") + "\n")
		b.WriteString(rateLimits(res.RateLimits) + "\n")
	}
	if len(res.Usage) > 0 {
		b.WriteString(field("Usage data", fmt.Sprintf("%d bytes", len(res.Usage))) + "\n")
	}
	if len(res.Costs) > 0 {
		b.WriteString(field("Costs data", fmt.Sprintf("%d bytes", len(res.Costs))) + "\n")
	}
	_, err := fmt.Fprint(w, b.String())
	return err
}

func explanation(e core.ErrorExplanation) string {
	var b strings.Builder
	b.WriteString("  " + errorKindStyle(e.Kind).Render(e.Icon+" "+e.Title) + "\n")
	if e.Description != "" {
		b.WriteString("  " + valueStyle.Render(e.Description) + "\n")
	}
	for _, s := range e.Solutions {
		if strings.HasPrefix(s, "http") {
			b.WriteString("    " + linkStyle.Render(s) + "\n")
			continue
		}
		b.WriteString("    " + dimStyle.Render("• ") + valueStyle.Render(s) + "\n")
	}
	return b.String()
}

func rateLimits(limits map[string]core.RateLimit) string {
	t := newTable("NAME", "REMAINING", "LIMIT", "WINDOW", "RESETS")
	names := lo.Keys(limits)
	sort.Strings(names)
	for _, name := range names {
		rl := limits[name]
		resets := "-"
		if rl.ResetsAt != nil {
			resets = rl.ResetsAt.Local().Format("15:04:05")
		}
		t.Row(name, number(rl.Remaining), number(rl.Limit), rl.Window+" "+rl.Unit, resets)
	}
	return t.Render()
}

func number(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Usage prints a rollup report sorted by row name.
func Usage(w io.Writer, report usage.Report) error {
	if len(report) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No keys to report."))
		return err
	}
	t := newTable("NAME", "PROVIDER", "TYPE", "KEY", "STATUS", "SOURCE", "PROJECT KEYS", "DETAIL")
	names := lo.Keys(report)
	sort.Strings(names)
	for _, name := range names {
		row := report[name]
		detail := row.Message
		if row.ErrorDetails != nil {
			detail = row.ErrorDetails.Title
		}
		t.Row(
			name,
			string(row.Provider),
			string(row.KeyType),
			row.Key,
			StatusBadge(row.Status),
			row.UsageKeySource,
			lo.Ternary(row.ProjectKeyCount > 0, strconv.Itoa(row.ProjectKeyCount), "-"),
			orDash(detail),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Providers lists the probeable providers.
func Providers(w io.Writer, infos []core.ProviderInfo) error {
	t := newTable("PROVIDER", "USAGE API", "DOCS")
	for _, p := range infos {
		t.Row(p.Name, lo.Ternary(p.UsageAPI, "yes", "no"), p.DocURL)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
