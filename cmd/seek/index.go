package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/seek/pkg/seek/config"
	"github.com/jamesainslie/seek/pkg/seek/events"
	"github.com/jamesainslie/seek/pkg/seek/types"
	"github.com/jamesainslie/seek/pkg/seek/volume"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build a new catalog snapshot",
	Long: `Index drives or a directory into a new catalog snapshot.

Press Ctrl+C to cancel. With cancel_policy "publish" (the default) the
records written so far are still published; with "discard" nothing is.`,
}

var indexDrivesCmd = &cobra.Command{
	Use:   "drives [VOLUME...]",
	Short: "Index volumes through the NTFS change journal",
	Long: `Index every volume (or the given ones) by reading its NTFS change journal.

Volumes without a change journal are skipped and reported. With
journal.incremental enabled, a volume set indexed before resumes from the
stored journal position instead of reading the whole journal.`,
	RunE: runIndexDrives,
}

var indexWalkDrivesCmd = &cobra.Command{
	Use:   "walk-drives [VOLUME...]",
	Short: "Index volumes by walking their directory trees",
	RunE:  runIndexWalkDrives,
}

var indexDirCmd = &cobra.Command{
	Use:   "dir PATH",
	Short: "Index one directory by walking it",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexDir,
}

func init() {
	for _, c := range []*cobra.Command{indexDrivesCmd, indexWalkDrivesCmd} {
		c.Flags().BoolP("yes", "y", false, "do not ask before indexing all volumes")
	}
	indexCmd.PersistentFlags().String("cancel-policy", "", "on cancel: publish flushed records or discard them")
	indexCmd.PersistentFlags().Bool("full", false, "ignore stored journal positions and read every journal in full")
	indexCmd.PersistentFlags().IntP("workers", "w", 0, "override walk worker count (0=auto)")

	_ = viper.BindPFlag("cancel_policy", indexCmd.PersistentFlags().Lookup("cancel-policy"))
	_ = viper.BindPFlag("walk.workers", indexCmd.PersistentFlags().Lookup("workers"))

	indexCmd.AddCommand(indexDrivesCmd, indexWalkDrivesCmd, indexDirCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexDrives(cmd *cobra.Command, args []string) error {
	return indexVolumes(cmd, args, types.StrategyJournal)
}

func runIndexWalkDrives(cmd *cobra.Command, args []string) error {
	return indexVolumes(cmd, args, types.StrategyWalk)
}

func indexVolumes(cmd *cobra.Command, args []string, strategy types.Strategy) error {
	targets := args
	if len(targets) == 0 {
		vols, err := volume.List()
		if err != nil {
			return fmt.Errorf("listing volumes: %w", err)
		}
		if len(vols) == 0 {
			return errors.New("no volumes found")
		}
		targets = vols

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
				fmt.Sprintf("Index all volumes (%s)? This can take a while.", strings.Join(vols, ", ")))
			if err != nil {
				return err
			}
			if !ok {
				printInfo("Aborted.")
				return nil
			}
		}
	}

	return runIndex(cmd, types.ScanRequest{Targets: targets, Strategy: strategy, Scope: types.ScopeVolumes})
}

func runIndexDir(cmd *cobra.Command, args []string) error {
	expanded, err := config.ExpandPath(args[0])
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", abs)
		}
		return fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", abs)
	}

	return runIndex(cmd, types.ScanRequest{Targets: []string{abs}, Strategy: types.StrategyWalk, Scope: types.ScopeDirectory})
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// runIndex runs one session to completion, printing progress. SIGINT and
// SIGTERM request cooperative cancellation; the session still reports its
// outcome.
func runIndex(cmd *cobra.Command, req types.ScanRequest) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if full, _ := cmd.Flags().GetBool("full"); full {
		cfg.Journal.Incremental = false
	}

	c, err := newComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := c.manager.Subscribe("")
	defer c.manager.Unsubscribe(sub)

	h, err := c.manager.Start(ctx, req)
	if err != nil {
		return err
	}
	printInfo("Indexing %s (%s)...", strings.Join(req.Targets, ", "), req.Strategy)

	out := cmd.OutOrStdout()
	for ev := range sub.Events {
		if ev.SessionID != h.ID {
			continue
		}
		switch ev.Type {
		case events.EventProgress:
			if !getQuiet() {
				printProgress(out, ev.Progress)
			}
		case events.EventCompleted:
			return reportOutcome(out, ev.Outcome)
		}
	}
	// The subscription only closes when the manager shuts down.
	o, err := h.Wait(context.Background())
	if err != nil {
		return err
	}
	return reportOutcome(out, &o)
}

func printProgress(w io.Writer, p *types.Progress) {
	switch p.Kind {
	case types.ProgressTarget:
		fmt.Fprintf(w, "  %s\n", p.Target)
	case types.ProgressRecords:
		fmt.Fprintf(w, "\r    %s records", types.FormatCount(p.Records))
	case types.ProgressSkipped:
		fmt.Fprintf(w, "  skipped %s: %s\n", p.Target, p.Message)
	}
}

func reportOutcome(w io.Writer, o *types.Outcome) error {
	fmt.Fprintln(w)
	for _, s := range o.Skipped {
		fmt.Fprintf(w, "Skipped %s: %s\n", s.Volume, s.Reason)
	}

	switch o.State {
	case types.StateCompleted:
		fmt.Fprintf(w, "Indexed %s files in %.1fs\n", types.FormatCount(o.Records), o.ElapsedSeconds())
		fmt.Fprintf(w, "Snapshot: %s\n", o.SnapshotPath)
		return nil
	case types.StateCancelled:
		if o.Published() {
			fmt.Fprintf(w, "Cancelled after %s files; partial snapshot: %s\n", types.FormatCount(o.Records), o.SnapshotPath)
		} else {
			fmt.Fprintln(w, "Cancelled; no snapshot published")
		}
		return nil
	default:
		if o.Err != nil {
			return fmt.Errorf("indexing failed: %w", o.Err)
		}
		return errors.New("indexing failed")
	}
}
