package main

import (
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-daq/dataset"
	"github.com/cwbudde/algo-daq/liveview"
)

func newReplayCommand(a *app) *cobra.Command {
	var window int

	cmd := &cobra.Command{
		Use:   "replay <archive>",
		Short: "Play a stored archive through the live view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.Load(args[0])
			if err != nil {
				return err
			}

			a.log.Info("replaying archive",
				"stage", "replay",
				"path", args[0],
				"samples", len(ds.Samples),
				"rate_hz", ds.Rate(),
				"duration_s", ds.Duration())

			src, err := liveview.NewReplaySource(ds, window)
			if err != nil {
				return err
			}

			return a.runView(cmd.Context(), src)
		},
	}

	cmd.Flags().IntVar(&window, "window", 0, "samples per frame; 0 uses the shallow burst depth")

	return cmd
}
