package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/seek/pkg/seek/logging"
)

const logPaneHeight = 6

var levelStyles = map[logging.Level]lipgloss.Style{
	logging.LevelDebug: mutedTextStyle,
	logging.LevelInfo:  normalItemStyle,
	logging.LevelWarn:  warningTextStyle,
	logging.LevelError: errorTextStyle,
}

// renderLogPane renders the newest entries of the TUI log buffer.
func renderLogPane(width int) string {
	buf := logging.GetLogBuffer()
	if buf == nil || buf.Len() == 0 {
		return mutedTextStyle.Render("  (no log entries)")
	}

	entries := buf.Last(logPaneHeight)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		text := e.Time.Format("15:04:05") + " " + e.Component + ": " + e.Message
		style, ok := levelStyles[e.Level]
		if !ok {
			style = normalItemStyle
		}
		lines = append(lines, "  "+style.Render(truncatePath(text, max(width-2, 10))))
	}
	return strings.Join(lines, "\n")
}
