package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/seek/pkg/seek/catalog"
	"github.com/jamesainslie/seek/pkg/seek/output"
	"github.com/jamesainslie/seek/pkg/seek/store"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

var catalogsCmd = &cobra.Command{
	Use:     "catalogs",
	Aliases: []string{"catalog"},
	Short:   "List catalog snapshots",
	Long: `List the published catalog snapshots, newest first. The current
catalog, used by search and the UI, is marked with '*'.`,
	RunE: runCatalogs,
}

var catalogsUseCmd = &cobra.Command{
	Use:   "use NAME",
	Short: "Make a snapshot the current catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogsUse,
}

var catalogsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old snapshots",
	Long: `Delete all but the newest --keep snapshots. The current catalog is
never deleted and does not count towards --keep.`,
	RunE: runCatalogsPrune,
}

// Staging files older than this belong to sessions that died without
// cleaning up.
const staleStaging = 6 * time.Hour

var (
	catalogsFormat string
	pruneKeep      int
	pruneYes       bool
)

func init() {
	catalogsCmd.Flags().StringVarP(&catalogsFormat, "output", "o", "plain", "output format (plain, json, yaml)")
	catalogsPruneCmd.Flags().IntVar(&pruneKeep, "keep", 3, "number of snapshots to keep besides the current one")
	catalogsPruneCmd.Flags().BoolVarP(&pruneYes, "yes", "y", false, "do not ask for confirmation")

	catalogsCmd.AddCommand(catalogsUseCmd, catalogsPruneCmd)
	rootCmd.AddCommand(catalogsCmd)
}

// currentCatalog returns the remembered catalog path, or "".
func currentCatalog(dir string) string {
	path, err := store.NewPreference(dir).Load()
	if err != nil {
		printVerbose("Reading catalog preference: %v", err)
	}
	return path
}

func runCatalogs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	entries, err := catalog.List(cfg.DataDir, currentCatalog(cfg.DataDir))
	if err != nil {
		return err
	}
	if output.Structured(catalogsFormat) {
		return output.Encode(cmd.OutOrStdout(), catalogsFormat, entries)
	}

	if len(entries) == 0 {
		printInfo("No catalogs in %s.", cfg.DataDir)
		printInfo("Run 'seek index drives' or 'seek index dir PATH' to create one.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tLABEL\tCOMPLETED\tSIZE")
	for _, e := range entries {
		mark := ""
		if e.Current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, e.Name, e.Label,
			humanize.Time(e.Completed), types.FormatSize(e.Size))
	}
	return tw.Flush()
}

func runCatalogsUse(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	path, err := catalog.Resolve(cfg.DataDir, args[0])
	if err != nil {
		return err
	}
	if err := store.NewPreference(cfg.DataDir).Save(path); err != nil {
		return fmt.Errorf("saving catalog preference: %w", err)
	}
	printInfo("Current catalog: %s", path)
	return nil
}

func runCatalogsPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if !pruneYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
			fmt.Sprintf("Delete all but the newest %d snapshots in %s?", pruneKeep, cfg.DataDir))
		if err != nil {
			return err
		}
		if !ok {
			printInfo("Aborted.")
			return nil
		}
	}

	removed, err := catalog.Prune(cfg.DataDir, pruneKeep, currentCatalog(cfg.DataDir))
	for _, p := range removed {
		printInfo("Removed %s", p)
	}
	if err != nil {
		return err
	}

	if n, err := store.CleanStaging(cfg.DataDir, staleStaging); err != nil {
		printVerbose("Cleaning staging files: %v", err)
	} else if n > 0 {
		printInfo("Removed %d abandoned staging files", n)
	}
	if len(removed) == 0 {
		printInfo("Nothing to prune.")
	}
	return nil
}
