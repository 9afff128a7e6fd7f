package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/voicedev/vox/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))
)

var tabNames = []string{"Sessions", "Detail", "Pipeline"}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := fmt.Sprintf(" vox │ Sessions: %d │ Providers: %s ",
		len(m.sessions), strings.Join(m.providers, ", "))
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	var content string
	switch m.activeTab {
	case 0:
		content = m.renderSessions()
	case 1:
		content = m.renderDetail()
	case 2:
		content = m.renderPipeline()
	}
	b.WriteString(sectionStyle.Width(m.width - 2).Render(content))
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(failStyle.Width(m.width).Render(" " + m.errMsg + " "))
		b.WriteString("\n")
	}

	help := " [tab] switch │ [j/k] move │ [enter] open │ [d] delete │ [r] refresh │ [q] quit "
	if !m.lastRefresh.IsZero() {
		help += dimStyle.Render(fmt.Sprintf("│ refreshed %s ", humanize.Time(m.lastRefresh)))
	}
	b.WriteString(statusBarStyle.Width(m.width).Render(help))

	return b.String()
}

func (m Model) renderTabs() string {
	var tabs []string
	for i, name := range tabNames {
		if i == m.activeTab {
			tabs = append(tabs, tabActiveStyle.Render(name))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(name))
		}
	}
	return " " + strings.Join(tabs, "  ")
}

func (m Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sessions"))
	b.WriteString("\n\n")

	if len(m.sessions) == 0 {
		b.WriteString(dimStyle.Render("No sessions yet"))
		return b.String()
	}

	end := m.scroll + m.visibleRows()
	if end > len(m.sessions) {
		end = len(m.sessions)
	}

	for i := m.scroll; i < end; i++ {
		s := m.sessions[i]
		line := fmt.Sprintf("%-38s %4d entries  created %s", s.ID, s.Entries, humanize.Time(s.CreatedAt))
		if i == m.selectedRow {
			b.WriteString(selectedStyle.Render("▶ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if end < len(m.sessions) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more", len(m.sessions)-end)))
	}
	return b.String()
}

func (m Model) renderDetail() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Session detail"))
	b.WriteString("\n\n")

	if m.detail == nil {
		b.WriteString(dimStyle.Render("Select a session and press enter"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("ID: %s\n", m.detail.ID))
	b.WriteString(fmt.Sprintf("Created: %s\n", humanize.Time(m.detail.CreatedAt)))
	if len(m.detail.Context) > 0 {
		b.WriteString("Context:\n")
		for _, e := range m.detail.Context {
			b.WriteString(fmt.Sprintf("  %s: %s\n", e.Key, e.Value))
		}
	}
	b.WriteString("\n")

	history := m.detail.History
	if m.scroll < len(history) {
		history = history[m.scroll:]
	}
	if len(history) > m.visibleRows() {
		history = history[:m.visibleRows()]
	}

	for _, e := range history {
		role := dimStyle.Render(e.Role + ":")
		if e.Role == "user" {
			role = okStyle.Render(e.Role + ":")
		}
		b.WriteString(fmt.Sprintf("%s %s\n", role, truncate(e.Content, m.width-12)))
	}
	return b.String()
}

func (m Model) renderPipeline() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Pipeline events"))
	b.WriteString("\n\n")

	if len(m.pipeline) == 0 {
		b.WriteString(dimStyle.Render("No pipeline activity"))
		return b.String()
	}

	events := m.pipeline
	if len(events) > m.visibleRows() {
		events = events[len(events)-m.visibleRows():]
	}

	for _, ev := range events {
		style := dimStyle
		switch ev.Status {
		case domain.PipelineCompleted:
			style = okStyle
		case domain.PipelinePartial:
			style = warnStyle
		case domain.PipelineFailed:
			style = failStyle
		}
		line := fmt.Sprintf("%-10s %-10s %s", shortID(ev.RunID), ev.Role, ev.Status)
		if ev.Error != "" {
			line += "  " + truncate(ev.Error, m.width-40)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if max < 10 {
		max = 10
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
