// Package theme holds the styles used for CLI output.
package theme

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Vivid Purple
	Success = lipgloss.Color("#22C55E") // Green
	Warning = lipgloss.Color("#F97316") // Orange
	Error   = lipgloss.Color("#F43F5E") // Rose
	TextDim = lipgloss.Color("#94A3B8") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// States
var (
	Ok = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Warn = lipgloss.NewStyle().
		Foreground(Warning)

	Failed = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)

// Rule renders a horizontal separator of the given width.
func Rule(width int) string {
	return Label.Render(strings.Repeat("\u2500", width))
}

// Status renders a success or failure marker.
func Status(ok bool) string {
	if ok {
		return Ok.Render("✓")
	}
	return Failed.Render("✗")
}
