package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Encode writes v as "json" or "yaml". It serves listings that have no
// dedicated formatter, such as snapshots, history and volumes.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported structured format: %s", format)
	}
}

// Structured reports whether format is handled by Encode.
func Structured(format string) bool {
	return format == "json" || format == "yaml"
}
