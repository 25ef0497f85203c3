package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vistoriadocs/laudo/internal/housekeeping"
)

func newSweepCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove uploads and reports older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			sweeper := housekeeping.NewSweeper(
				cfg.Housekeeping.Retention,
				[]string{cfg.Paths.Uploads, cfg.Paths.Output},
				housekeeping.WithLogger(commandLogger(cmd.ErrOrStderr(), cfg)),
			)
			report := sweeper.Sweep()
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d files, removed %d\n", report.Scanned, len(report.Removed))
			return report.Err
		},
	}
}
