package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "seek",
		Short: "Index file names and search them instantly",
		Long: `Seek builds catalogs of every file name on your drives or in a directory
and searches them instantly by keyword.

On NTFS volumes seek reads the change journal, which is far faster than
walking the tree. Elsewhere it walks directories in parallel. Each indexing
run publishes a new catalog snapshot; searches always run against a
complete snapshot.

Examples:
  seek index drives              # Index all NTFS drives via the change journal
  seek index dir ~/Projects      # Index one directory
  seek search report             # Search the current catalog
  seek catalogs                  # List catalog snapshots
  seek ui                        # Interactive search`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
		PersistentPostRun: func(*cobra.Command, []string) { closeLogging() },
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/seek/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "catalog directory (default: $XDG_DATA_HOME/seek/catalogs)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig points viper at an explicit config file. Search paths,
// environment binding and defaults are applied by config.LoadWith.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
