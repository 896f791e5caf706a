package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

type yamlOutput struct {
	Files []FileInfo `yaml:"files"`
	Meta  yamlMeta   `yaml:"meta"`
}

type yamlMeta struct {
	Keyword   string `yaml:"keyword"`
	Catalog   string `yaml:"catalog"`
	Count     int    `yaml:"count"`
	Truncated bool   `yaml:"truncated"`
	Elapsed   string `yaml:"elapsed,omitempty"`
}

// YAMLFormatter formats output as YAML with the same structure as JSONFormatter.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	m := buildMeta(r)
	out := yamlOutput{
		Files: r.Files,
		Meta:  yamlMeta(m),
	}
	if out.Files == nil {
		out.Files = []FileInfo{}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

var _ Formatter = (*YAMLFormatter)(nil)
