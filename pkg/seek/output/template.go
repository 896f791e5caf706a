package output

import (
	"bytes"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// TemplateFormatter renders a search result through a user-supplied Go
// text/template. The template is parsed on first use and reused after that.
type TemplateFormatter struct {
	templateStr string

	mu       sync.Mutex
	template *template.Template
}

// templateData is what a template sees: the Result fields plus values that
// would otherwise need template logic to compute.
type templateData struct {
	*Result

	// CatalogName is the snapshot's label and completion time, e.g.
	// "Dir_docs (2024-06-15 10:30:00)". Empty for unrecognized names.
	CatalogName string
	Count       int
	TotalSize   int64
	Truncated   bool
}

// NewTemplateFormatter returns a formatter for templateStr. Parse errors
// are reported by the first Format call.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{templateStr: templateStr}
}

// templateFuncs are the helpers available inside templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// Usage: {{date .ModTime "2006-01-02"}}
		"date": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},
		// Usage: {{bytes .Size}}
		"bytes": func(size int64) string {
			return humanize.IBytes(uint64(size))
		},
		// Usage: {{ago .ModTime}}
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return humanize.Time(t)
		},
		// Usage: {{comma .Count}}
		"comma": func(n int) string {
			return humanize.Comma(int64(n))
		},
	}
}

// Format executes the template against r.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tmpl, err := template.New("output").Funcs(templateFuncs()).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}

	return f.template.Execute(w, templateData{
		Result:      r,
		CatalogName: catalogName(r.Catalog),
		Count:       len(r.Files),
		TotalSize:   r.TotalSize(),
		Truncated:   r.Truncated(),
	})
}

// defaultTemplate prints the name and path of each hit, tab separated.
const defaultTemplate = `{{range .Files}}{{.Name}}	{{.Path}}
{{end}}`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

var _ Formatter = (*TemplateFormatter)(nil)
