// Package render formats dashboard data for the terminal.
package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/keydash/internal/core"
)

// Catppuccin Mocha.
var (
	colorText     = lipgloss.Color("#CDD6F4")
	colorSubtext  = lipgloss.Color("#A6ADC8")
	colorDim      = lipgloss.Color("#585B70")
	colorLavender = lipgloss.Color("#B4BEFE")
	colorBlue     = lipgloss.Color("#89B4FA")
	colorSapphire = lipgloss.Color("#74C7EC")
	colorGreen    = lipgloss.Color("#A6E3A1")
	colorYellow   = lipgloss.Color("#F9E2AF")
	colorRed      = lipgloss.Color("#F38BA8")
	colorPeach    = lipgloss.Color("#FAB387")
	colorTeal     = lipgloss.Color("#94E2D5")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	linkStyle = lipgloss.NewStyle().
			Foreground(colorSapphire)

	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	badgeOKStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	badgeInfoStyle = lipgloss.NewStyle().
			Foreground(colorTeal).
			Bold(true)

	badgeWarnStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	badgeCritStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	badgeAuthStyle = lipgloss.NewStyle().
			Foreground(colorPeach).
			Bold(true)
)

// StatusBadge colors a probe status the way the dashboard does: green for
// data, teal for a working key without usage access, red for errors.
func StatusBadge(status core.ProbeStatus) string {
	switch status {
	case core.StatusSuccess:
		return badgeOKStyle.Render("● " + string(status))
	case core.StatusPartial:
		return badgeWarnStyle.Render("◐ " + string(status))
	case core.StatusBasicOnly, core.StatusNoUsageAccess:
		return badgeInfoStyle.Render("○ " + string(status))
	case core.StatusError:
		return badgeCritStyle.Render("✗ " + string(status))
	default:
		return dimStyle.Render("- " + string(status))
	}
}

func errorKindStyle(kind core.ErrorKind) lipgloss.Style {
	switch kind {
	case core.ErrorAuthenticationFailed, core.ErrorPermissionDenied, core.ErrorInsufficientScopes:
		return badgeAuthStyle
	case core.ErrorRateLimited:
		return badgeWarnStyle
	default:
		return badgeCritStyle
	}
}
