package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return m.Spinner.View() + " connecting..."
	}

	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}

	if m.ShowHelp {
		return m.renderHelp()
	}

	availableHeight := m.Height - 2 // leave room for the footer
	panelHeight := availableHeight / 3

	panels := lipgloss.JoinVertical(lipgloss.Left,
		m.renderProjectsPanel(panelHeight),
		m.renderActivityPanel(panelHeight),
		m.renderHistoryPanel(panelHeight),
	)

	return lipgloss.JoinVertical(lipgloss.Left, panels, m.renderFooter())
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder

	s.WriteString("stride monitor (resize for full view)\n\n")
	for _, p := range m.Projects {
		s.WriteString(fmt.Sprintf("%s: %s/%s %d/%d\n",
			p.Name, p.Step, p.Status, p.TasksDone, p.TasksTotal))
	}
	s.WriteString("\nq:quit ?:help")

	return s.String()
}

// renderProjectsPanel renders per-project workflow state (Panel 1)
func (m Model) renderProjectsPanel(height int) string {
	var content strings.Builder

	if len(m.Projects) == 0 {
		content.WriteString(subtleStyle.Render("No projects registered"))
		content.WriteString("\n")
		return m.wrapPanel("PROJECTS", content.String(), height, PanelProjects)
	}

	for _, p := range m.visibleRows(PanelProjects, len(m.Projects), height) {
		row := m.Projects[p]
		line := fmt.Sprintf("%-20s %s %s  tasks %d/%d  roadmap %d/%d",
			row.Name, formatStep(row.Step), row.Status,
			row.TasksDone, row.TasksTotal, row.RoadmapDone, row.RoadmapTotal)
		if row.ActiveSession != "" {
			line += subtleStyle.Render("  session " + row.ActiveSession)
		}
		content.WriteString(line)
		content.WriteString("\n")
	}

	return m.wrapPanel("PROJECTS", content.String(), height, PanelProjects)
}

// renderActivityPanel renders the live event feed (Panel 2)
func (m Model) renderActivityPanel(height int) string {
	var content strings.Builder

	if len(m.Activity) == 0 {
		content.WriteString(subtleStyle.Render("Waiting for events "))
		content.WriteString(m.Spinner.View())
		content.WriteString("\n")
		return m.wrapPanel("ACTIVITY", content.String(), height, PanelActivity)
	}

	for _, i := range m.visibleRows(PanelActivity, len(m.Activity), height) {
		item := m.Activity[i]
		content.WriteString(timestampStyle.Render(item.Timestamp.Format("15:04:05")))
		content.WriteString(" ")
		content.WriteString(formatActivityBadge(item.Kind))
		content.WriteString(" ")
		content.WriteString(item.Project)
		if item.SessionID != "" {
			content.WriteString(subtleStyle.Render("/" + item.SessionID))
		}
		content.WriteString(" ")
		content.WriteString(truncate(item.Text, m.Width-30))
		content.WriteString("\n")
	}

	return m.wrapPanel("ACTIVITY", content.String(), height, PanelActivity)
}

// renderHistoryPanel renders the execution history (Panel 3)
func (m Model) renderHistoryPanel(height int) string {
	var content strings.Builder

	if len(m.History) == 0 {
		content.WriteString(subtleStyle.Render("No executions yet"))
		content.WriteString("\n")
		return m.wrapPanel("HISTORY", content.String(), height, PanelHistory)
	}

	for _, i := range m.visibleRows(PanelHistory, len(m.History), height) {
		row := m.History[i]
		line := fmt.Sprintf("%-12s %-10s %-18s %s",
			row.Project, row.Skill, formatStatus(row.Status),
			timestampStyle.Render(row.Updated.Format("15:04:05")))
		if row.CostUSD > 0 {
			line += subtleStyle.Render(fmt.Sprintf("  $%.2f", row.CostUSD))
		}
		content.WriteString(line)
		content.WriteString("\n")
	}

	return m.wrapPanel("HISTORY", content.String(), height, PanelHistory)
}

func (m Model) renderFooter() string {
	parts := []string{"q:quit", "tab:panel", "j/k:scroll", "?:help"}
	if m.Resyncs > 0 {
		parts = append(parts, fmt.Sprintf("resyncs:%d", m.Resyncs))
	}
	return helpStyle.Render(strings.Join(parts, "  "))
}

func (m Model) renderHelp() string {
	help := `stride monitor

  q, ctrl+c   quit
  tab         next panel
  shift+tab   previous panel
  1 / 2 / 3   jump to panel
  j / down    scroll down
  k / up      scroll up
  ?           toggle this help

A falling-behind monitor is dropped by the hub and resyncs
automatically from a fresh snapshot.`
	return panelStyle.Render(help)
}

// wrapPanel draws the bordered panel with a title, highlighting the
// active one.
func (m Model) wrapPanel(title, content string, height int, panel Panel) string {
	style := panelStyle
	if panel == m.ActivePanel {
		style = activePanelStyle
	}
	style = style.Width(m.Width - 4).Height(height - 2)

	header := panelTitleStyle.Render(title)
	return lipgloss.JoinVertical(lipgloss.Left, header, style.Render(strings.TrimRight(content, "\n")))
}

// visibleRows applies the panel's scroll offset and returns the indices
// of the rows that fit.
func (m Model) visibleRows(panel Panel, total, height int) []int {
	capacity := height - 3
	if capacity < 1 {
		capacity = 1
	}

	offset := m.ScrollOffset[panel]
	if offset > total-1 {
		offset = total - 1
	}
	if offset < 0 {
		offset = 0
	}

	var rows []int
	for i := offset; i < total && len(rows) < capacity; i++ {
		rows = append(rows, i)
	}
	return rows
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
