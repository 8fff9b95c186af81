package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Priority badge colors indexed by priority level (0-4).
// P0=red, P1=orange, P2=yellow, P3=blue, P4=gray.
var priorityColors = [5]lipgloss.AdaptiveColor{
	{Light: "1", Dark: "9"},     // P0: red
	{Light: "208", Dark: "208"}, // P1: orange
	{Light: "3", Dark: "11"},    // P2: yellow
	{Light: "4", Dark: "12"},    // P3: blue
	{Light: "240", Dark: "245"}, // P4: gray
}

var dimColor = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}

// PriorityBadge returns a styled priority label like "P0", "P2", etc.
func PriorityBadge(priority int) string {
	label := fmt.Sprintf("P%d", priority)
	if priority < 0 || priority > 4 {
		return lipgloss.NewStyle().Foreground(dimColor).Render(label)
	}
	return lipgloss.NewStyle().
		Foreground(priorityColors[priority]).
		Render(label)
}

// StatusIcon returns the indicator for an item status.
func StatusIcon(status string) string {
	switch strings.ToLower(status) {
	case "done", "closed":
		return lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "2", Dark: "10"}).Render("✓")
	case "blocked":
		return lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"}).Render("✗")
	case "active", "in_progress":
		return lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"}).Render("●")
	default:
		return lipgloss.NewStyle().Foreground(dimColor).Render("○")
	}
}

// cardBorder returns the rounded border used for card views.
func cardBorder(status string) lipgloss.Style {
	color := lipgloss.AdaptiveColor{Light: "240", Dark: "240"}
	if s := strings.ToLower(status); s == "active" || s == "in_progress" {
		color = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	tagStyle   = lipgloss.NewStyle().Foreground(dimColor)
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
)
