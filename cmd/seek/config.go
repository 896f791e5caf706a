package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/seek/pkg/seek/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage seek configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/seek/config.yaml (if set)
  2. ~/.config/seek/config.yaml

Environment variables can override config file settings using the SEEK_ prefix:
  SEEK_DATA_DIR=/srv/catalogs
  SEEK_CANCEL_POLICY=discard
  SEEK_BATCH_JOURNAL=2000`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in $VISUAL, $EDITOR or vi, creating a
default one first if needed.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd, configEditCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", configFile)
	} else {
		fmt.Fprintf(out, "Config file: (using defaults, no file found)\n\n")
	}

	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	fmt.Fprintf(out, "data_dir:             %s\n", cfg.DataDir)
	fmt.Fprintf(out, "batch.journal:        %d\n", cfg.Batch.Journal)
	fmt.Fprintf(out, "batch.walk:           %d\n", cfg.Batch.Walk)
	fmt.Fprintf(out, "progress.every:       %d\n", cfg.Progress.Every)
	fmt.Fprintf(out, "walk.workers:         %d\n", cfg.Walk.Workers)
	fmt.Fprintf(out, "walk.skip_dirs:       %v\n", cfg.Walk.SkipDirs)
	fmt.Fprintf(out, "walk.reserved_prefix: %s\n", cfg.Walk.ReservedPrefix)
	fmt.Fprintf(out, "journal.incremental:  %t\n", cfg.Journal.Incremental)
	fmt.Fprintf(out, "cancel_policy:        %s\n", cfg.CancelPolicy)
	fmt.Fprintf(out, "search.limit:         %d\n", cfg.Search.Limit)
	fmt.Fprintf(out, "history.enabled:      %t\n", cfg.History.Enabled)
	fmt.Fprintf(out, "history.path:         %s\n", cfg.History.Path)
	fmt.Fprintf(out, "logging.level:        %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "api.addr:             %s\n", cfg.API.Addr)

	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	envVars := []string{
		"SEEK_DATA_DIR", "SEEK_BATCH_JOURNAL", "SEEK_BATCH_WALK", "SEEK_PROGRESS_EVERY",
		"SEEK_WALK_WORKERS", "SEEK_JOURNAL_INCREMENTAL", "SEEK_CANCEL_POLICY",
		"SEEK_HISTORY_PATH", "SEEK_LOGGING_LEVEL", "SEEK_API_ADDR",
	}
	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}
	return nil
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}
	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'seek config edit' to modify it.")
		return nil
	}
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo("Created default config file: %s", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
