package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#1976d2")
	accent  = lipgloss.Color("#059669")
	muted   = lipgloss.Color("#6b7280")
	warn    = lipgloss.Color("#dc2626")
)

type styles struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	muted     lipgloss.Style
	chip      lipgloss.Style
	mapPane   lipgloss.Style
	input     lipgloss.Style
	status    lipgloss.Style
	errStatus lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(primary).Padding(0, 1),
		user:      lipgloss.NewStyle().Bold(true).Foreground(primary).MarginTop(1),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(accent).MarginTop(1),
		muted:     lipgloss.NewStyle().Foreground(muted),
		chip:      lipgloss.NewStyle().Foreground(primary).Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1),
		mapPane:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1),
		input:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
		status:    lipgloss.NewStyle().Foreground(muted),
		errStatus: lipgloss.NewStyle().Foreground(warn),
	}
}
