package ui

import "github.com/charmbracelet/lipgloss"

// UI styles for the TUI interface
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1a1a1a")).
			Background(lipgloss.Color("#7DCFFF"))

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c0c0"))

	targetRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	targetMarker   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Render("●")
	noTargetMarker = " "

	pidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ECE6A")).
			Width(8)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BB9AF7"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#737373"))

	pathDetailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565656")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	confirmStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ECE6A")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7768E"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#626262")).
			MarginBottom(0)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Italic(true).
			MarginTop(2)

	barLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	barValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7DCFFF"))

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E0AF68"))

	captureStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E0AF68")).
			MarginTop(1)

	searchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7DCFFF"))

	searchFilterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#9ECE6A"))
)
