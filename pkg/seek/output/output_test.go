package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

var modTime = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func sampleResult() *Result {
	rows := []types.FileRecord{
		{Path: "/home/user/Report.pdf", Filename: "Report.pdf", Size: 2048, ModTime: modTime},
		{Path: "/home/user/docs/report-final.docx", Filename: "report-final.docx", Size: 1 << 20, ModTime: modTime},
	}
	return NewResult("report", "/cat/2024-06-15_10-30-00_Dir_user.db", rows, 100, 3*time.Millisecond)
}

func TestNewResult(t *testing.T) {
	r := sampleResult()
	require.Len(t, r.Files, 2)
	assert.Equal(t, "Report.pdf", r.Files[0].Name)
	assert.Equal(t, "/home/user", r.Files[0].Dir)
	assert.Equal(t, "2.0 KiB", r.Files[0].SizeHuman)
	assert.Equal(t, int64(2048+1<<20), r.TotalSize())
	assert.False(t, r.Truncated())
}

func TestTruncated(t *testing.T) {
	rows := make([]types.FileRecord, 3)
	r := NewResult("x", "", rows, 3, 0)
	assert.True(t, r.Truncated())
	r.Limit = 0
	assert.False(t, r.Truncated())
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"json", "paths", "plain", "table", "template", "yaml"}, Available())

	_, err := Get("nope")
	assert.Error(t, err)

	reg := NewRegistry()
	reg.Register("x", func() Formatter { return &PathsFormatter{} })
	f, err := reg.Get("x")
	require.NoError(t, err)
	assert.IsType(t, &PathsFormatter{}, f)
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleResult()))

	var out struct {
		Files []FileInfo `json:"files"`
		Meta  struct {
			Keyword   string `json:"keyword"`
			Count     int    `json:"count"`
			Truncated bool   `json:"truncated"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out.Files, 2)
	assert.Equal(t, "report", out.Meta.Keyword)
	assert.Equal(t, 2, out.Meta.Count)
}

func TestJSONFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, NewResult("", "", nil, 100, 0)))
	assert.Contains(t, buf.String(), `"files": []`)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, sampleResult()))

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out["files"], 2)
	assert.Contains(t, buf.String(), "keyword: report")
}

func TestPlainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, sampleResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SIZE"))
	assert.Contains(t, lines[1], "2024-06-15 10:30:00")
	assert.True(t, strings.HasSuffix(lines[2], "/home/user/docs/report-final.docx"))
}

func TestPathsFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PathsFormatter{}).Format(&buf, sampleResult()))
	assert.Equal(t, "/home/user/Report.pdf\n/home/user/docs/report-final.docx\n", buf.String())
}

func TestTemplateFormatter(t *testing.T) {
	f := NewTemplateFormatter(`{{range .Files}}{{bytes .Size}} {{date .ModTime "2006-01-02"}} {{.Name}}
{{end}}{{len .Files}} {{.Truncated}}`)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "2.0 KiB 2024-06-15 Report.pdf")
	assert.Contains(t, out, "1.0 MiB 2024-06-15 report-final.docx")
	assert.True(t, strings.HasSuffix(out, "2 false"))

	buf.Reset()
	f = NewTemplateFormatter(`{{.CatalogName}}: {{comma .Count}} of {{.Limit}}`)
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "Dir_user (2024-06-15 10:30:00): 2 of 100", buf.String())

	assert.Error(t, NewTemplateFormatter("{{.Broken").Format(&buf, sampleResult()))
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "Dir_user")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "/home/user/docs")

	buf.Reset()
	require.NoError(t, (&TableFormatter{}).Format(&buf, NewResult("zzz", "", nil, 100, 0)))
	assert.Contains(t, buf.String(), "No matches.")

	buf.Reset()
	rows := make([]types.FileRecord, 2)
	for i := range rows {
		rows[i] = types.FileRecord{Path: fmt.Sprintf("/a/f%d", i), Filename: fmt.Sprintf("f%d", i)}
	}
	require.NoError(t, (&TableFormatter{}).Format(&buf, NewResult("f", "", rows, 2, 0)))
	assert.Contains(t, buf.String(), "first 2 matches")
}

func TestHighlight(t *testing.T) {
	got := Highlight("Report-REPORT.txt", "report")
	assert.Contains(t, got, "Report")
	assert.Contains(t, got, "REPORT")
	assert.Contains(t, got, ".txt")
	assert.Equal(t, "plain.txt", Highlight("plain.txt", ""))
	assert.Equal(t, "plain.txt", Highlight("plain.txt", "zzz"))
}

func TestEncode(t *testing.T) {
	v := map[string]int{"a": 1}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "json", v))
	assert.JSONEq(t, `{"a":1}`, buf.String())

	buf.Reset()
	require.NoError(t, Encode(&buf, "yaml", v))
	assert.Equal(t, "a: 1\n", buf.String())

	assert.Error(t, Encode(&buf, "plain", v))
	assert.True(t, Structured("yaml"))
	assert.False(t, Structured("table"))
}
