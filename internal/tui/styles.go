package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	source  lipgloss.Style
	help    lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	hint    lipgloss.Style
	success lipgloss.Style
	heading lipgloss.Style
	box     lipgloss.Style
	muted   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		label:   lipgloss.NewStyle().Bold(true),
		source:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Italic(true),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		heading: lipgloss.NewStyle().Bold(true).Underline(true),
		box:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
