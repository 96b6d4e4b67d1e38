// Package tui provides a live terminal dashboard for the console session.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for
// styling. It displays session statistics, command latency percentiles, and
// the background job table, refreshed on a timer.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Colors based on a modern dark theme
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder).
				MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(20)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	valueGoodStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	valueBadStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	valueWarnStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	tableRowStyle = lipgloss.NewStyle().
			Foreground(colorText)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)
)

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}

// GetFailureStyle returns a style based on the command failure ratio.
func GetFailureStyle(failureRate float64) lipgloss.Style {
	switch {
	case failureRate == 0:
		return valueGoodStyle
	case failureRate < 0.25:
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// RenderFailureRate returns a styled failure ratio.
func RenderFailureRate(failed, total uint64) string {
	if total == 0 {
		return valueGoodStyle.Render("0.0%")
	}
	rate := float64(failed) / float64(total)
	return GetFailureStyle(rate).Render(fmt.Sprintf("%.1f%%", rate*100))
}
