package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/seek/pkg/seek/output"
	"github.com/jamesainslie/seek/pkg/seek/types"
	"github.com/jamesainslie/seek/pkg/seek/volume"
)

var volumesFormat string

var volumesCmd = &cobra.Command{
	Use:   "volumes",
	Short: "List volumes and their change journal support",
	RunE:  runVolumes,
}

func init() {
	volumesCmd.Flags().StringVarP(&volumesFormat, "output", "o", "plain", "output format (plain, json, yaml)")
	rootCmd.AddCommand(volumesCmd)
}

func runVolumes(cmd *cobra.Command, _ []string) error {
	infos, err := volume.Describe()
	if err != nil {
		return fmt.Errorf("listing volumes: %w", err)
	}
	if output.Structured(volumesFormat) {
		return output.Encode(cmd.OutOrStdout(), volumesFormat, infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VOLUME\tKIND\tFS\tFREE\tTOTAL\tJOURNAL")
	for _, v := range infos {
		journal := "yes"
		if !v.Journal.Supported {
			journal = "no: " + v.Journal.Reason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", v.Root, v.Kind, v.Journal.FSType,
			types.FormatSize(int64(v.Free)), types.FormatSize(int64(v.Total)), journal)
	}
	return tw.Flush()
}
