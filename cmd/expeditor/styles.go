package main

import (
	"github.com/charmbracelet/lipgloss"

	"expeditor/internal/kitchen"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9E9E9E")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD60A"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	selectedCardStyle = cardStyle.Copy().
				BorderForeground(lipgloss.Color("#7D56F4"))
)

// One badge style per urgency tier; the card border picks up the same color.
var tierStyles = map[kitchen.Tier]lipgloss.Style{
	kitchen.TierNormal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#30d158")).
		Padding(0, 1),
	kitchen.TierWarning: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(lipgloss.Color("#FFD60A")).
		Padding(0, 1),
	kitchen.TierUrgent: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF9F0A")).
		Padding(0, 1),
	kitchen.TierCritical: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#ff453a")).
		Padding(0, 1),
}

var tierBorders = map[kitchen.Tier]lipgloss.Color{
	kitchen.TierNormal:   lipgloss.Color("#30d158"),
	kitchen.TierWarning:  lipgloss.Color("#FFD60A"),
	kitchen.TierUrgent:   lipgloss.Color("#FF9F0A"),
	kitchen.TierCritical: lipgloss.Color("#ff453a"),
}
