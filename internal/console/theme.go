// Package console implements the interactive letsgo session: the input
// loop, the built-in command set, and the presentation layer.
package console

import "github.com/charmbracelet/lipgloss"

var (
	colorPrompt  = lipgloss.Color("#06B6D4") // Cyan
	colorError   = lipgloss.Color("#EF4444") // Red
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorMuted   = lipgloss.Color("#9CA3AF") // Medium gray
	colorBanner  = lipgloss.Color("#7C3AED") // Purple
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(colorPrompt).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	bannerStyle = lipgloss.NewStyle().Foreground(colorBanner).Bold(true)
)

// Theme renders console text, or passes it through untouched in plain mode
// (plain mode keeps the output machine-readable for oracle use).
type Theme struct {
	plain bool
}

// NewTheme creates a theme; plain disables all styling.
func NewTheme(plain bool) Theme {
	return Theme{plain: plain}
}

// Prompt styles the input prompt.
func (t Theme) Prompt(s string) string {
	if t.plain {
		return s
	}
	return promptStyle.Render(s)
}

// Error styles an error message.
func (t Theme) Error(s string) string {
	if t.plain {
		return s
	}
	return errorStyle.Render(s)
}

// Warn styles a warning message.
func (t Theme) Warn(s string) string {
	if t.plain {
		return s
	}
	return warnStyle.Render(s)
}

// Muted styles secondary information.
func (t Theme) Muted(s string) string {
	if t.plain {
		return s
	}
	return mutedStyle.Render(s)
}

// Banner styles the startup banner.
func (t Theme) Banner(s string) string {
	if t.plain {
		return s
	}
	return bannerStyle.Render(s)
}
