package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary   = lipgloss.Color("205") // Pink/magenta
	ColorSuccess   = lipgloss.Color("35")  // Green
	ColorWarning   = lipgloss.Color("214") // Gold/yellow
	ColorError     = lipgloss.Color("196") // Red
	ColorDim       = lipgloss.Color("241") // Gray
	ColorAccent    = lipgloss.Color("39")  // Blue
	ColorHighlight = lipgloss.Color("212") // Light pink
	ColorBorder    = lipgloss.Color("62")  // Purple
)

const (
	SymbolPrompt  = "❯"
	SymbolArrow   = "▸"
	SymbolCheck   = "✓"
	SymbolCross   = "✗"
	SymbolPending = "◐"
	SymbolSkip    = "↷"
	SymbolTrophy  = "🏆"
	SymbolClaw    = "🦞"
	Rule          = "─────────────────────────────────────────────────────────"
)

var (
	PromptStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorDim).
			Width(16)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	AmountStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	HashStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	SelectorCursor = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	SelectorItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	SelectorDim = lipgloss.NewStyle().
			Foreground(ColorDim)

	SelectorActive = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorDim)
)

// StatusStyle colours a tournament status name.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "Active", "active":
		return SuccessStyle.Bold(true)
	case "Completed", "closed":
		return WarningStyle.Bold(true)
	default:
		return PromptStyle
	}
}

// StepStyle colours a sequence step status.
func StepStyle(status string) (string, lipgloss.Style) {
	switch status {
	case "mined":
		return SymbolCheck, SuccessStyle
	case "failed":
		return SymbolCross, ErrorStyle
	case "skipped":
		return SymbolSkip, DimStyle
	default:
		return SymbolPending, WarningStyle
	}
}
