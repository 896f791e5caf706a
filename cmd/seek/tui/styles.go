// Package tui provides the interactive terminal interface of seek: a search
// box over the current catalog with live indexing status.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the TUI.
var (
	// Primary colors
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D9FF")

	// Status colors
	successColor = lipgloss.Color("#28A745")
	warningColor = lipgloss.Color("#FFC107")
	dangerColor  = lipgloss.Color("#DC3545")

	// Neutral colors
	mutedColor     = lipgloss.Color("#666666")
	borderColor    = lipgloss.Color("#333333")
	highlightColor = lipgloss.Color("#1A1A2E")
)

// Box styles for containers.
var (
	// outerBoxStyle frames the whole screen.
	outerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	// dividerStyle separates the header, results, log pane and status line.
	dividerStyle = lipgloss.NewStyle().
			Foreground(borderColor)
)

// Text styles.
var (
	// titleStyle for the SEEK title in the header.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// mutedTextStyle for catalog details, hints and debug log lines.
	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// errorTextStyle for search errors and error log lines.
	errorTextStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	// successTextStyle for the outcome of a completed session.
	successTextStyle = lipgloss.NewStyle().
				Foreground(successColor)

	// warningTextStyle for "no catalog" and warning log lines.
	warningTextStyle = lipgloss.NewStyle().
				Foreground(warningColor)
)

// Result list styles.
var (
	// selectedItemStyle for the file name under the cursor.
	selectedItemStyle = lipgloss.NewStyle().
				Background(highlightColor).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	// normalItemStyle for the other file names and info log lines.
	normalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	// fileSizeStyle right-aligns sizes in a fixed column.
	fileSizeStyle = lipgloss.NewStyle().
			Width(10).
			Align(lipgloss.Right).
			Foreground(accentColor)

	// dirStyle for the directory that holds a match.
	dirStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// cursorStyle for the "> " row pointer.
	cursorStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)
)

// Key hint styles.
var (
	// keyStyle for keyboard key hints.
	keyStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	// keyDescStyle for key descriptions.
	keyDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// renderDivider creates a horizontal divider line.
func renderDivider(width int) string {
	return dividerStyle.Render(repeatChar('─', width))
}

// repeatChar repeats a character n times.
func repeatChar(char rune, n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]rune, n)
	for i := range result {
		result[i] = char
	}
	return string(result)
}

// truncatePath shortens path to maxLen runes, keeping the end, which holds
// the most specific directories.
func truncatePath(path string, maxLen int) string {
	runes := []rune(path)
	if len(runes) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return string(runes[:max(maxLen, 0)])
	}
	return "..." + string(runes[len(runes)-(maxLen-3):])
}

// keyHint renders "[key] desc".
func keyHint(key, desc string) string {
	return keyStyle.Render("["+key+"]") + " " + keyDescStyle.Render(desc)
}
