// Package tui renders the live batch progress bar and the styled
// authentication status report for the CLI.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette shared by the progress bar and the status report.
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#6366F1")
	colorSuccess   = lipgloss.Color("#22C55E")
	colorWarning   = lipgloss.Color("#EAB308")
	colorError     = lipgloss.Color("#EF4444")
	colorInfo      = lipgloss.Color("#3B82F6")
	colorMuted     = lipgloss.Color("#6B7280")
	colorHighlight = lipgloss.Color("#F5C2E7")
)

// Progress bar styles
var (
	progressLabelStyle = lipgloss.NewStyle().
				Bold(true)

	progressCountStyle = lipgloss.NewStyle().
				Foreground(colorInfo)

	elapsedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// Status report styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHighlight)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorInfo).
			Bold(true).
			Width(16)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)
