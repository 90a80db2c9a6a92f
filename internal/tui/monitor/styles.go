package monitor

import "github.com/charmbracelet/lipgloss"

var (
	// Base colors
	primaryColor   = lipgloss.Color("212")
	secondaryColor = lipgloss.Color("141")
	mutedColor     = lipgloss.Color("241")
	successColor   = lipgloss.Color("42")
	warningColor   = lipgloss.Color("214")
	errorColor     = lipgloss.Color("196")

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	// Step styles
	stepStyles = map[string]lipgloss.Style{
		"design":    lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		"analyze":   lipgloss.NewStyle().Foreground(secondaryColor),
		"implement": lipgloss.NewStyle().Foreground(warningColor),
		"verify":    lipgloss.NewStyle().Foreground(successColor),
	}

	// Execution status styles
	statusStyles = map[string]lipgloss.Style{
		"pending":           lipgloss.NewStyle().Foreground(mutedColor),
		"running":           lipgloss.NewStyle().Foreground(successColor),
		"waiting_for_input": lipgloss.NewStyle().Foreground(warningColor).Bold(true),
		"completed":         lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		"failed":            lipgloss.NewStyle().Foreground(errorColor),
		"cancelled":         lipgloss.NewStyle().Foreground(mutedColor),
		"detached":          lipgloss.NewStyle().Foreground(warningColor),
	}

	// Activity kind badges
	msgBadge   = lipgloss.NewStyle().Foreground(successColor)
	askBadge   = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	endBadge   = lipgloss.NewStyle().Foreground(mutedColor)
	execBadge  = lipgloss.NewStyle().Foreground(secondaryColor)
	phaseBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
)

// formatStep renders a workflow step with color
func formatStep(step string) string {
	style, ok := stepStyles[step]
	if !ok {
		return step
	}
	return style.Render(step)
}

// formatStatus renders an execution status with color
func formatStatus(status string) string {
	style, ok := statusStyles[status]
	if !ok {
		return status
	}
	return style.Render(status)
}

// formatActivityBadge renders an activity kind badge
func formatActivityBadge(kind string) string {
	switch kind {
	case "msg":
		return msgBadge.Render("[MSG]")
	case "ask":
		return askBadge.Render("[ASK]")
	case "end":
		return endBadge.Render("[END]")
	case "exec":
		return execBadge.Render("[EXE]")
	case "phase":
		return phaseBadge.Render("[PHS]")
	default:
		return subtleStyle.Render("[???]")
	}
}
