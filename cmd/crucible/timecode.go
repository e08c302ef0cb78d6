package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heimdex/crucible/internal/timecode"
)

func newTimecodeCommand() *cobra.Command {
	var fps float64

	cmd := &cobra.Command{
		Use:         "timecode",
		Short:       "Convert between frames, timecodes and milliseconds",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.PersistentFlags().Float64Var(&fps, "fps", 24, "Frame rate")

	cmd.AddCommand(&cobra.Command{
		Use:   "frame FRAME",
		Short: "Print the timecode of a zero-based frame index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("frame must be an integer: %q", args[0])
			}
			tc, err := timecode.FrameToTimecode(frame, fps)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tc)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ms TIMECODE",
		Short: "Print the millisecond offset of an HH:MM:SS:FF timecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := timecode.TimecodeToMilliseconds(args[0], fps)
			if err != nil {
				return err
			}
			frame, err := timecode.MillisecondsToFrame(ms, fps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d ms (frame %d)\n", ms, frame)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "duration MILLISECONDS",
		Short: "Format a millisecond duration as HH:MM:SS.mmm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("milliseconds must be an integer: %q", args[0])
			}
			d, err := timecode.MillisecondsToTimecode(ms)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	})

	return cmd
}
