package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/seek/pkg/seek/store"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

// TableFormatter renders a styled table with a header box for terminals.
type TableFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TableFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.header(r))
	w.WriteString("\n")

	if len(r.Files) == 0 {
		w.WriteString(MutedStyle.Render("No matches."))
		w.WriteString("\n")
		return nil
	}

	sizeWidth, nameWidth := len("SIZE"), len("NAME")
	for _, file := range r.Files {
		sizeWidth = max(sizeWidth, lipgloss.Width(file.SizeHuman))
		nameWidth = max(nameWidth, lipgloss.Width(file.Name))
	}

	w.WriteString(TableHeaderStyle.Width(sizeWidth + 2).Render("SIZE"))
	w.WriteString(TableHeaderStyle.Width(len(types.ModTimeFormat) + 2).Render("MODIFIED"))
	w.WriteString(TableHeaderStyle.Width(nameWidth + 2).Render("NAME"))
	w.WriteString(TableHeaderStyle.Render("DIRECTORY"))
	w.WriteString("\n")

	for _, file := range r.Files {
		w.WriteString(TableRowStyle.Width(sizeWidth + 2).Align(lipgloss.Right).Render(SizeStyle.Render(file.SizeHuman)))
		w.WriteString(TableRowStyle.Width(len(types.ModTimeFormat) + 2).Render(MutedStyle.Render(file.ModTime.Format(types.ModTimeFormat))))
		w.WriteString(TableRowStyle.Width(nameWidth + 2).Render(Highlight(file.Name, r.Keyword)))
		w.WriteString(file.Dir)
		w.WriteString("\n")
	}

	if r.Truncated() {
		w.WriteString("\n")
		w.WriteString(WarningStyle.Render(fmt.Sprintf("Showing the first %d matches; refine the keyword to narrow results.", r.Limit)))
		w.WriteString("\n")
	}
	return nil
}

func (f *TableFormatter) header(r *Result) string {
	catalog := r.Catalog
	if name := catalogName(catalog); name != "" {
		catalog = name
	}
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Search:"), ValueStyle.Render(r.Keyword)),
		fmt.Sprintf("%s %s  %s %s",
			LabelStyle.Render("Catalog:"), ValueStyle.Render(catalog),
			LabelStyle.Render("Matches:"), ValueStyle.Render(fmt.Sprintf("%d", len(r.Files)))),
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// catalogName returns the label and completion time of a snapshot path.
func catalogName(path string) string {
	if path == "" {
		return ""
	}
	parts := strings.Split(strings.ReplaceAll(path, "\\", "/"), "/")
	completed, label, ok := store.ParseSnapshotName(parts[len(parts)-1])
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s (%s)", label, completed.Format(types.ModTimeFormat))
}

// Highlight styles every case-insensitive occurrence of keyword in name.
func Highlight(name, keyword string) string {
	if keyword == "" {
		return name
	}
	folded, key := store.Fold(name), store.Fold(keyword)
	// Folding can change byte lengths; fall back to plain text then.
	if len(folded) != len(name) || key == "" {
		return name
	}

	var b strings.Builder
	for {
		i := strings.Index(folded, key)
		if i < 0 {
			b.WriteString(name)
			return b.String()
		}
		b.WriteString(name[:i])
		b.WriteString(MatchStyle.Render(name[i : i+len(key)]))
		name, folded = name[i+len(key):], folded[i+len(key):]
	}
}

func init() {
	Register("table", func() Formatter {
		return &TableFormatter{}
	})
}

var _ Formatter = (*TableFormatter)(nil)
