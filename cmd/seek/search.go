package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/seek/pkg/seek/catalog"
	"github.com/jamesainslie/seek/pkg/seek/output"
	"github.com/jamesainslie/seek/pkg/seek/search"
	"github.com/jamesainslie/seek/pkg/seek/store"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

var (
	outputFormat string
	templateStr  string
	catalogName  string
)

var searchCmd = &cobra.Command{
	Use:   "search KEYWORD",
	Short: "Search the current catalog by file name",
	Long: `Search file names in the current catalog snapshot.

Matching is a case-insensitive substring match on the file name and
returns at most 100 rows. The current catalog is the one last opened, or
the newest snapshot when none has been chosen.

Examples:
  seek search invoice
  seek search .psd -o paths
  seek search report -o template --template '{{range .Files}}{{.Path}}{{"\n"}}{{end}}'`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", fmt.Sprintf("output format %v", output.Available()))
	searchCmd.Flags().StringVar(&templateStr, "template", "", "Go template for -o template")
	searchCmd.Flags().StringVarP(&catalogName, "catalog", "c", "", "search this snapshot instead of the current one")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	formatter, err := newFormatter(outputFormat, templateStr)
	if err != nil {
		return err
	}

	engine := search.New(search.Options{
		CatalogDir: cfg.DataDir,
		Limit:      cfg.Search.Limit,
		Preference: store.NewPreference(cfg.DataDir),
	})
	defer engine.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := openCatalog(ctx, engine, cfg.DataDir, catalogName); err != nil {
		return err
	}

	start := time.Now()
	rows, err := engine.Search(ctx, args[0])
	if err != nil {
		return err
	}
	result := output.NewResult(args[0], engine.Current(), rows, engine.Limit(), time.Since(start))

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func newFormatter(format, tmpl string) (output.Formatter, error) {
	if format == "template" && tmpl != "" {
		return output.NewTemplateFormatter(tmpl), nil
	}
	f, err := output.Get(format)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", format, output.Available())
	}
	return f, nil
}

// openCatalog opens name when given, otherwise the last used catalog.
func openCatalog(ctx context.Context, engine *search.Engine, dir, name string) error {
	if name != "" {
		path, err := catalog.Resolve(dir, name)
		if err != nil {
			return err
		}
		return engine.Open(ctx, path)
	}
	if _, err := engine.OpenLast(ctx); err != nil {
		if errors.Is(err, types.ErrNoCatalog) {
			return fmt.Errorf("%w; run 'seek index' first", err)
		}
		return err
	}
	return nil
}
