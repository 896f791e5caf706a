package output

import "github.com/charmbracelet/lipgloss"

// Color constants from the ANSI 256-color palette, shared by the table
// formatter's header box and result rows.
const (
	// ColorPrimary is used for the header border and file sizes (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorWarning is used for keyword matches and the truncation notice (orange).
	ColorWarning = lipgloss.Color("214")

	// ColorMuted is used for labels, directories and column headers (gray).
	ColorMuted = lipgloss.Color("245")
)

// HeaderBox frames the search summary above the result table.
var HeaderBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorPrimary).
	Padding(0, 1).
	MarginBottom(1)

// Text styles for the header box and notices.
var (
	// LabelStyle is used for field labels such as "Search:" and "Catalog:".
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// ValueStyle is used for field values next to a label.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	// WarningStyle is used for the notice shown when results were capped.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// MutedStyle is used for directories and the "No matches." line.
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// MatchStyle highlights the keyword inside file names.
	MatchStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	// SizeStyle is used for the SIZE column.
	SizeStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)
)

// Table styles for the result rows.
var (
	// TableHeaderStyle renders column headings.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMuted).
				PaddingRight(2)

	// TableRowStyle pads every cell of a result row.
	TableRowStyle = lipgloss.NewStyle().
			PaddingRight(2)
)
