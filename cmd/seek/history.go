package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/seek/pkg/seek/config"
	"github.com/jamesainslie/seek/pkg/seek/history"
	"github.com/jamesainslie/seek/pkg/seek/output"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View indexing history",
	Long: `View past indexing sessions: what was indexed, how it ended, how many
records were written and which snapshot was published.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history entries",
	RunE:  runHistoryClear,
}

var (
	historyLimit  int
	historyFormat string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyCmd.Flags().StringVarP(&historyFormat, "output", "o", "plain", "output format (plain, json, yaml)")

	historyCmd.AddCommand(historyShowCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func getHistory() (*history.History, error) {
	cfg, err := loadConfig()
	if err != nil {
		return history.New(config.DefaultHistoryPath(), config.DefaultHistoryEntries)
	}
	return history.New(cfg.History.Path, cfg.History.MaxEntries)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	h, err := getHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	entries, err := h.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if output.Structured(historyFormat) {
		return output.Encode(cmd.OutOrStdout(), historyFormat, entries)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'seek index drives' or 'seek index dir PATH' to build a catalog.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%-36s  %-19s  %-8s  %-10s  %12s  %s\n", "ID", "WHEN", "STRATEGY", "STATE", "RECORDS", "TARGETS")
	fmt.Fprintln(out, strings.Repeat("-", 110))
	for _, e := range entries {
		fmt.Fprintf(out, "%-36s  %-19s  %-8s  %-10s  %12s  %s\n",
			e.ID,
			e.Timestamp.Format(types.ModTimeFormat),
			e.Strategy,
			e.State,
			types.FormatCount(e.Records),
			truncateString(strings.Join(e.Targets, ","), 30),
		)
	}
	fmt.Fprintln(out, strings.Repeat("-", 110))
	fmt.Fprintf(out, "\nShowing %d entries. Use 'seek history show <id>' for details.\n", len(entries))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, err := getHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	e, err := h.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nSession Details")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "ID:        %s\n", e.ID)
	fmt.Fprintf(out, "Timestamp: %s\n", e.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Strategy:  %s\n", e.Strategy)
	fmt.Fprintf(out, "Targets:   %s\n", strings.Join(e.Targets, ", "))
	fmt.Fprintf(out, "State:     %s\n", e.State)
	fmt.Fprintf(out, "Records:   %s\n", types.FormatCount(e.Records))
	fmt.Fprintf(out, "Elapsed:   %s\n", time.Duration(e.Elapsed*float64(time.Second)).Round(time.Millisecond))
	if e.Snapshot != "" {
		fmt.Fprintf(out, "Snapshot:  %s\n", e.Snapshot)
	}
	if e.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", e.Error)
	}
	if len(e.Skipped) > 0 {
		fmt.Fprintln(out, "\nSkipped:")
		for _, s := range e.Skipped {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
	return nil
}

func runHistoryClear(_ *cobra.Command, _ []string) error {
	h, err := getHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	if err := h.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	printInfo("History cleared.")
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
