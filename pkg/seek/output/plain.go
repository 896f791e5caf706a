package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// PlainFormatter formats output as an aligned table without styling,
// suitable for scripting.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := fmt.Fprintln(tw, "SIZE\tMODIFIED\tPATH"); err != nil {
		return err
	}
	for _, file := range r.Files {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", file.SizeHuman, file.ModTime.Format(types.ModTimeFormat), file.Path); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// PathsFormatter writes one path per line.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, file := range r.Files {
		w.WriteString(file.Path)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

var (
	_ Formatter = (*PlainFormatter)(nil)
	_ Formatter = (*PathsFormatter)(nil)
)
