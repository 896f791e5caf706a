package output

import (
	"bytes"
	"encoding/json"
)

type jsonOutput struct {
	Files []FileInfo `json:"files"`
	Meta  jsonMeta   `json:"meta"`
}

type jsonMeta struct {
	Keyword   string `json:"keyword"`
	Catalog   string `json:"catalog"`
	Count     int    `json:"count"`
	Truncated bool   `json:"truncated"`
	Elapsed   string `json:"elapsed,omitempty"`
}

func buildMeta(r *Result) jsonMeta {
	m := jsonMeta{
		Keyword:   r.Keyword,
		Catalog:   r.Catalog,
		Count:     len(r.Files),
		Truncated: r.Truncated(),
	}
	if r.Elapsed > 0 {
		m.Elapsed = r.Elapsed.String()
	}
	return m
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	files := r.Files
	if files == nil {
		files = []FileInfo{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonOutput{Files: files, Meta: buildMeta(r)})
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)
