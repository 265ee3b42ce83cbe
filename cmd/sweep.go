package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newSweepCmd(paths *configPaths) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Permanently delete trash items older than their retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), paths)
			if err != nil {
				return err
			}
			defer app.Close()

			report := app.sweeper.Sweep(cmd.Context(), time.Now())
			cmd.Printf("Folders purged: %d, images purged: %d, skipped: %d, failures: %d\n",
				report.FoldersPurged, report.ImagesPurged, report.Skipped, report.Failures)
			return nil
		},
	}
}
