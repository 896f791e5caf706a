package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// ResultList is a scrollable list of search hits.
type ResultList struct {
	rows   []types.FileRecord
	cursor int
	offset int
	height int
}

// SetRows replaces the rows and resets the cursor.
func (l *ResultList) SetRows(rows []types.FileRecord) {
	l.rows = rows
	l.cursor = 0
	l.offset = 0
}

// SetHeight sets how many rows are visible.
func (l *ResultList) SetHeight(h int) {
	l.height = max(h, 1)
	l.scroll()
}

// Len returns the number of rows.
func (l *ResultList) Len() int {
	return len(l.rows)
}

// Selected returns the row under the cursor.
func (l *ResultList) Selected() (types.FileRecord, bool) {
	if l.cursor < 0 || l.cursor >= len(l.rows) {
		return types.FileRecord{}, false
	}
	return l.rows[l.cursor], true
}

// HandleKey moves the cursor. It reports whether the key was consumed.
func (l *ResultList) HandleKey(key string) bool {
	switch key {
	case "up", "ctrl+p":
		l.cursor--
	case "down", "ctrl+n":
		l.cursor++
	case "pgup":
		l.cursor -= l.height
	case "pgdown":
		l.cursor += l.height
	case "home":
		l.cursor = 0
	case "end":
		l.cursor = len(l.rows) - 1
	default:
		return false
	}
	l.cursor = min(max(l.cursor, 0), max(len(l.rows)-1, 0))
	l.scroll()
	return true
}

func (l *ResultList) scroll() {
	if l.height <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.height {
		l.offset = l.cursor - l.height + 1
	}
}

// View renders the visible rows within width.
func (l *ResultList) View(width int) string {
	if len(l.rows) == 0 {
		return ""
	}
	var b strings.Builder
	end := min(l.offset+max(l.height, 1), len(l.rows))
	for i := l.offset; i < end; i++ {
		r := l.rows[i]
		pointer := "  "
		nameStyle := normalItemStyle
		if i == l.cursor {
			pointer = cursorStyle.Render("> ")
			nameStyle = selectedItemStyle
		}
		dirWidth := max(width-lenRunes(r.Filename)-16, 10)
		line := fmt.Sprintf("%s%s  %s  %s", pointer,
			fileSizeStyle.Render(r.HumanSize()),
			nameStyle.Render(r.Filename),
			dirStyle.Render(truncatePath(filepath.Dir(r.Path), dirWidth)))
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func lenRunes(s string) int {
	return len([]rune(s))
}
