package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	hotPink   = lipgloss.Color("#FF6AC1")
	cyan      = lipgloss.Color("#00E5FF")
	sunset    = lipgloss.Color("#FFAB40")
	coral     = lipgloss.Color("#FF8A80")
	teal      = lipgloss.Color("#64FFDA")
	darkBg    = lipgloss.Color("#1A1A2E")
	softWhite = lipgloss.Color("#E0E0E0")
	dimmed    = lipgloss.Color("#666666")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(hotPink).Background(darkBg)
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(cyan).Padding(1, 2).Background(darkBg)
	labelStyle  = lipgloss.NewStyle().Foreground(cyan).Background(darkBg).Bold(true)
	bodyStyle   = lipgloss.NewStyle().Foreground(softWhite).Background(darkBg)
	quitStyle   = lipgloss.NewStyle().Foreground(dimmed).Background(darkBg)

	idleBadge       = lipgloss.NewStyle().Foreground(teal).Background(darkBg).Bold(true)
	recordingBadge  = lipgloss.NewStyle().Foreground(hotPink).Background(darkBg).Bold(true)
	cancellingBadge = lipgloss.NewStyle().Foreground(sunset).Background(darkBg).Bold(true)
	errorBadge      = lipgloss.NewStyle().Foreground(coral).Background(darkBg).Bold(true)

	visualizerStyle      = lipgloss.NewStyle().Foreground(hotPink).Background(darkBg)
	visualizerLabelStyle = lipgloss.NewStyle().Foreground(dimmed).Background(darkBg)

	debugTimeStyle     = lipgloss.NewStyle().Foreground(dimmed).Background(darkBg)
	debugCategoryStyle = lipgloss.NewStyle().Foreground(sunset).Background(darkBg)
	debugMsgStyle      = lipgloss.NewStyle().Foreground(dimmed).Background(darkBg)
	debugSepStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")).Background(darkBg)
)

const panelWidth = 72
const panelContentWidth = panelWidth - 6
const debugPanelMaxLines = 5

// View renders the current event-bus-derived state.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  CODICTATE  "))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Status:  "))
	b.WriteString(m.renderBadge())
	if m.State == StateRecording {
		b.WriteString(bodyStyle.Render("  "))
		b.WriteString(m.renderVisualizer())
		if m.MaxSeconds > 0 {
			b.WriteString(bodyStyle.Render(fmt.Sprintf("  %ds / %ds", m.Elapsed, m.MaxSeconds)))
		}
	}
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Last transcription:"))
	b.WriteString("\n")
	if m.LastTranscript != "" {
		b.WriteString(bodyStyle.Width(panelContentWidth).Render(fmt.Sprintf("%q", m.LastTranscript)))
	} else {
		b.WriteString(bodyStyle.Render("(none yet)"))
	}
	b.WriteString("\n\n")
	b.WriteString(quitStyle.Render("Press q to quit"))

	if len(m.DebugEntries) > 0 {
		b.WriteString("\n\n")
		b.WriteString(m.renderDebugPanel())
	}

	return borderStyle.Width(panelWidth - 2).Render(b.String())
}

func (m Model) renderBadge() string {
	switch m.State {
	case StateRecording:
		return recordingBadge.Render("● Recording...")
	case StateCancelling:
		return cancellingBadge.Render("● Cancelling...")
	case StateError:
		errText := m.LastError
		if len(errText) > 50 {
			errText = errText[:50] + "..."
		}
		return errorBadge.Render(fmt.Sprintf("● Error: %s", errText))
	default:
		return idleBadge.Render("● Idle")
	}
}

const visualizerWidth = 20

func (m Model) renderVisualizer() string {
	var peak float32
	for _, v := range m.MicBuckets {
		if v > peak {
			peak = v
		}
	}
	filled := int(peak * visualizerWidth)
	if filled > visualizerWidth {
		filled = visualizerWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", visualizerWidth-filled)
	return visualizerLabelStyle.Render("Mic  ") + visualizerStyle.Render(bar)
}

func (m Model) renderDebugPanel() string {
	sep := debugSepStyle.Render(" │ ")
	entries := m.DebugEntries
	if len(entries) > debugPanelMaxLines {
		entries = entries[len(entries)-debugPanelMaxLines:]
	}
	var db strings.Builder
	for i, entry := range entries {
		if i > 0 {
			db.WriteString("\n")
		}
		db.WriteString(debugTimeStyle.Render(entry.Time) + sep +
			debugCategoryStyle.Render(entry.Category) + sep +
			debugMsgStyle.Render(entry.Message))
	}
	return db.String()
}
