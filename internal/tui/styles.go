package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	card     lipgloss.Style
	button   lipgloss.Style
	disabled lipgloss.Style
	response lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).MarginBottom(1),
		label: lipgloss.NewStyle().Faint(true),
		card: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
		button:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1),
		disabled: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Background(lipgloss.Color("237")).Padding(0, 1),
		response: lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Background(lipgloss.Color("22")).Padding(0, 1),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Background(lipgloss.Color("52")).Padding(0, 1),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}
