package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var exportPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a grading-system frame export into the annotation store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportPath == "" {
				return fmt.Errorf("--baselight is required")
			}
			a, err := ctx.openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.service.IngestFile(cmd.Context(), exportPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d frame records from %s (source %q)\n", n, exportPath, a.cfg.Review.AnnotationSource)
			return nil
		},
	}

	cmd.Flags().StringVar(&exportPath, "baselight", "", "Frame export file to ingest")
	return cmd
}
