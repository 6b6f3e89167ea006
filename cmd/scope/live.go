package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-daq/liveview"
)

func newLiveCommand(a *app) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Show the input live in the terminal",
		Long:  `Streams shallow bursts and draws them as a terminal trace. Quit with q or Esc.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}

			ctrl, closeLink, err := a.openController()
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer closeLink()

			src := &liveview.LiveSource{
				Capturer: ctrl,
				Decoder:  a.decoder(),
				Mode:     m,
			}

			return a.runView(cmd.Context(), src)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "video", "capture depth: video or science")

	return cmd
}

// runView drives a source through the terminal renderer until the
// context is cancelled or a quit key is pressed, then reports the
// session's running statistics.
func (a *app) runView(parent context.Context, src liveview.Source) error {
	r, err := liveview.OpenTerminal()
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	go r.WatchQuitKeys(cancel)

	view, err := liveview.New(src, r)
	if err != nil {
		return err
	}

	runErr := view.Run(ctx)

	if s := view.Stats(); s.Length > 0 {
		a.log.Info("session statistics",
			"stage", "view",
			"samples", s.Length,
			"dc_v", s.DC,
			"rms_v", s.RMS,
			"min_v", s.Min,
			"max_v", s.Max)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	return nil
}
