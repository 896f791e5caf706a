package tui

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		maxLen int
		want   string
	}{
		{"fits", `C:\docs`, 10, `C:\docs`},
		{"keeps the end", `C:\Users\me\projects\seek`, 12, `...ects\seek`},
		{"multibyte names", "/home/ümlaut/日本語/ファイル", 10, "...本語/ファイル"},
		{"tiny width", "/home/user", 2, "/h"},
		{"zero width", "/home/user", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncatePath(tt.path, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), max(tt.maxLen, 0))
		})
	}
}

func TestRepeatChar(t *testing.T) {
	assert.Equal(t, "───", repeatChar('─', 3))
	assert.Empty(t, repeatChar('─', -1))
}
