package ui

import "github.com/charmbracelet/lipgloss"

var (
	cPurple    = lipgloss.Color("99")
	cCyan      = lipgloss.Color("39")
	cNeonGreen = lipgloss.Color("118")
	cRed       = lipgloss.Color("203")
	cGold      = lipgloss.Color("220")
	cGray      = lipgloss.Color("240")
	cLightGray = lipgloss.Color("250")
	cWhite     = lipgloss.Color("255")
	cHighlight = lipgloss.Color("57")

	styleAppHeader = lipgloss.NewStyle().
			Foreground(cWhite).
			Background(cPurple).
			Bold(true).
			Padding(0, 1)

	styleTitle   = lipgloss.NewStyle().Foreground(cGold).Bold(true)
	styleLabel   = lipgloss.NewStyle().Foreground(cLightGray)
	styleHint    = lipgloss.NewStyle().Foreground(cGray)
	styleOnline  = lipgloss.NewStyle().Foreground(cNeonGreen)
	styleOffline = lipgloss.NewStyle().Foreground(cRed)
	styleBusy    = lipgloss.NewStyle().Foreground(cCyan).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(cRed).Bold(true)

	styleSelected = lipgloss.NewStyle().
			Background(cHighlight).
			Foreground(cWhite).
			Bold(true)

	stylePane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cGray).
			Padding(1, 2)

	styleDialog = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cPurple).
			Padding(1, 2).
			Width(60)

	styleErrorDialog = styleDialog.BorderForeground(cRed)
)
