// Package tui provides the interactive terminal viewer for analyzed runs.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// Color palette
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#06B6D4") // Cyan
	successColor   = lipgloss.Color("#10B981") // Green
	errorColor     = lipgloss.Color("#EF4444") // Red
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	accentColor    = lipgloss.Color("#F472B6") // Pink
)

// Box styles
var (
	// BoxStyle is the main container style
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	// HeaderStyle for panel headers
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	// TitleStyle for main titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 2)

	// SectionHeaderStyle for detail view sections
	SectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(secondaryColor).
				Padding(0, 1).
				Margin(1, 0, 0, 0)
)

// Text styles
var (
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(secondaryColor)

	CursorStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	DurationStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	AttributeKeyStyle = lipgloss.NewStyle().
				Foreground(secondaryColor)

	AttributeValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF"))
)

// Help bar style
var (
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)
)

var nodeTypeStyles = map[trace.NodeType]lipgloss.Style{
	trace.NodeThought:     lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")), // Blue
	trace.NodeAction:      lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")), // Emerald
	trace.NodeObservation: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")), // Amber
	trace.NodeOutput:      lipgloss.NewStyle().Foreground(lipgloss.Color("#8B5CF6")), // Violet
	trace.NodeSystem:      lipgloss.NewStyle().Foreground(mutedColor),
}

// GetNodeStyle returns the style for a node type
func GetNodeStyle(t trace.NodeType) lipgloss.Style {
	if s, ok := nodeTypeStyles[t]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// RiskStyle returns the style for a risk level
func RiskStyle(level trace.RiskLevel) lipgloss.Style {
	switch level {
	case trace.RiskHigh:
		return ErrorStyle.Bold(true)
	case trace.RiskMedium:
		return WarningStyle.Bold(true)
	case trace.RiskLow:
		return SuccessStyle.Bold(true)
	default:
		return MutedStyle
	}
}

// SeverityStyle returns the style for an issue severity
func SeverityStyle(sev trace.Severity) lipgloss.Style {
	if sev == trace.SeverityError {
		return ErrorStyle
	}
	return WarningStyle
}
