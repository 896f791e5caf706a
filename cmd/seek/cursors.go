package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/seek/pkg/seek/config"
	"github.com/jamesainslie/seek/pkg/seek/cursor"
	"github.com/jamesainslie/seek/pkg/seek/output"
)

var cursorsCmd = &cobra.Command{
	Use:   "cursors",
	Short: "List stored change journal positions",
	Long: `List the change journal position stored for each volume. A journal
session over the same volumes resumes from these positions when
journal.incremental is enabled.`,
	RunE: runCursors,
}

var cursorsResetCmd = &cobra.Command{
	Use:   "reset [VOLUME...]",
	Short: "Forget stored journal positions",
	Long: `Forget the stored position of the given volumes, or of every volume.
The next journal session over them reads the whole journal.`,
	RunE: runCursorsReset,
}

var (
	cursorsFormat string
	cursorsYes    bool
)

func init() {
	cursorsCmd.Flags().StringVarP(&cursorsFormat, "output", "o", "plain", "output format (plain, json, yaml)")
	cursorsResetCmd.Flags().BoolVarP(&cursorsYes, "yes", "y", false, "do not ask before forgetting every volume")

	cursorsCmd.AddCommand(cursorsResetCmd)
	rootCmd.AddCommand(cursorsCmd)
}

func openCursors() (*cursor.Store, error) {
	cs, err := cursor.Open(config.CursorDir())
	if err != nil {
		return nil, fmt.Errorf("%w (is another seek process indexing?)", err)
	}
	return cs, nil
}

func runCursors(cmd *cobra.Command, _ []string) error {
	cs, err := openCursors()
	if err != nil {
		return err
	}
	defer cs.Close()

	entries, err := cs.List()
	if err != nil {
		return fmt.Errorf("listing cursors: %w", err)
	}
	if output.Structured(cursorsFormat) {
		return output.Encode(cmd.OutOrStdout(), cursorsFormat, entries)
	}
	if len(entries) == 0 {
		printInfo("No journal positions stored.")
		return nil
	}
	return printCursors(cmd.OutOrStdout(), entries)
}

func printCursors(w io.Writer, entries []*cursor.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VOLUME\tJOURNAL\tNEXT USN\tSNAPSHOT\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%#x\t%d\t%s\t%s\n", e.Volume, e.JournalID, e.NextUSN, e.Snapshot, humanize.Time(e.UpdatedAt))
	}
	return tw.Flush()
}

func runCursorsReset(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !cursorsYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Forget the journal position of every volume?")
		if err != nil {
			return err
		}
		if !ok {
			printInfo("Aborted.")
			return nil
		}
	}

	cs, err := openCursors()
	if err != nil {
		return err
	}
	defer cs.Close()

	n, err := resetCursors(cs, args)
	if err != nil {
		return err
	}
	printInfo("Forgot %d journal positions.", n)
	return nil
}

// resetCursors deletes the cursors of volumes, or all cursors when volumes
// is empty. It returns how many were removed.
func resetCursors(cs *cursor.Store, volumes []string) (int, error) {
	if len(volumes) == 0 {
		entries, err := cs.List()
		if err != nil {
			return 0, err
		}
		return len(entries), cs.Reset()
	}

	n := 0
	for _, v := range volumes {
		if _, err := cs.Get(v); errors.Is(err, cursor.ErrNotFound) {
			printVerbose("No position stored for %s", v)
			continue
		} else if err != nil {
			return n, err
		}
		if err := cs.Delete(v); err != nil {
			return n, fmt.Errorf("forgetting %s: %w", v, err)
		}
		n++
	}
	return n, nil
}
