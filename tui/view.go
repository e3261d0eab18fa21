package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	processingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := fmt.Sprintf(" Session Orchestrator │ %s │ Tasks: %d │ Active sessions: %d ",
		m.baseURL, len(m.tasks), len(m.sessions))
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	if m.fetchErr != "" {
		b.WriteString(failedStyle.Render("  server unreachable: " + m.fetchErr))
		b.WriteString("\n")
	}

	b.WriteString(m.renderTasks())
	b.WriteString("\n")
	b.WriteString(m.renderSessions())
	b.WriteString("\n")

	statusBar := " q quit │ r refresh │ j/k select "
	if !m.lastRefresh.IsZero() {
		statusBar += "│ updated " + humanize.Time(m.lastRefresh) + " "
	}
	b.WriteString(statusBarStyle.Width(m.width).Render(statusBar))

	return b.String()
}

func (m Model) renderTasks() string {
	var b strings.Builder
	b.WriteString(" Tasks\n")

	if len(m.tasks) == 0 {
		b.WriteString(dimmedStyle.Render("  no tasks yet"))
		return sectionStyle.Width(m.width - 2).Render(b.String())
	}

	for i, t := range m.tasks {
		style := statusStyle(t.Status)
		line := fmt.Sprintf("%-8s %-15s %-10s %3d/%-3d ok:%-3d fail:%-3d %s",
			shortID(t.ID), t.Kind, t.Status, t.Processed, t.Total,
			t.Succeeded, t.Failed, age(t.CreatedAt))
		if t.Error != "" {
			line += "  " + t.Error
		}
		if i == m.selectedRow {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(style.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return sectionStyle.Width(m.width - 2).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(" Active sessions\n")

	if len(m.sessions) == 0 {
		b.WriteString(dimmedStyle.Render("  idle"))
		return sectionStyle.Width(m.width - 2).Render(b.String())
	}

	for _, s := range m.sessions {
		b.WriteString(processingStyle.Render(
			fmt.Sprintf("  account %-6d %-30s %s", s.AccountID, s.SessionToken, s.Kind)))
		b.WriteString("\n")
	}
	return sectionStyle.Width(m.width - 2).Render(strings.TrimRight(b.String(), "\n"))
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed":
		return completedStyle
	case "failed":
		return failedStyle
	case "processing":
		return processingStyle
	default:
		return dimmedStyle
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func age(created string) string {
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return created
	}
	return humanize.Time(t)
}
