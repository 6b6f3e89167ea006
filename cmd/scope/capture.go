package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-daq/daq"
	"github.com/cwbudde/algo-daq/dataset"
	"github.com/cwbudde/algo-daq/stats/frequency"
	stats "github.com/cwbudde/algo-daq/stats/time"
)

func newCaptureCommand(a *app) *cobra.Command {
	var (
		mode    string
		prefix  string
		notes   string
		wav     bool
		skipCal bool
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Trigger one burst and archive it",
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

			burst, err := ctrl.Trigger(cmd.Context(), m)
			if err != nil {
				return fmt.Errorf("capture: %w", err)
			}

			if !skipCal {
				rec, err := a.resolveRate(cmd.Context(), ctrl)
				if err != nil {
					return fmt.Errorf("calibrate: %w", err)
				}

				burst = burst.WithCalibratedRate(rec.MeasuredRate)
			}

			volts := a.decoder().Decode(burst.Samples)

			healthCfg := stats.DefaultHealthConfig()
			healthCfg.VRef = a.cfg.Capture.VRef
			healthCfg.VMid = a.cfg.Capture.VRef / 2

			health := stats.CheckHealth(volts, healthCfg)

			if health.Clipped {
				a.log.Warn("trace clipped at the rails",
					"stage", "health", "clipped_samples", health.ClippedSamples)
			}

			if health.Silent {
				a.log.Warn("trace is silent", "stage", "health",
					"range_v", health.Stats.Range)
			}

			if health.BiasDrifted {
				a.log.Warn("bias drifted from midpoint", "stage", "health",
					"dc_v", health.Stats.DC)
			}

			meta := dataset.Meta{
				Hardware:  "rp2040",
				Notes:     notes,
				VRef:      a.cfg.Capture.VRef,
				BiasVolts: health.Stats.DC,
				PeakVolts: health.Stats.Peak,
				DCOffset:  health.Stats.DC - healthCfg.VMid,
				Clipped:   health.Clipped,
			}

			if fd, err := frequency.Analyze(volts, burst.Rate()); err == nil {
				meta.DominantFreq = fd.Dominant
			}

			ds := dataset.FromBurst(burst, meta)

			path, err := ds.Save(a.cfg.DataDir, prefix)
			if err != nil {
				return fmt.Errorf("archive: %w", err)
			}

			a.log.Info("capture archived",
				"stage", "archive",
				"path", path,
				"samples", len(burst.Samples),
				"rate_hz", burst.Rate(),
				"duration_s", burst.Duration())

			if wav {
				wavPath := strings.TrimSuffix(path, dataset.Extension) + ".wav"
				if err := ds.ExportWAV(wavPath); err != nil {
					return fmt.Errorf("export wav: %w", err)
				}

				a.log.Info("wav exported", "stage", "archive", "path", wavPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "science", "capture depth: video or science")
	cmd.Flags().StringVar(&prefix, "prefix", "capture", "archive filename prefix")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form note stored in the archive header")
	cmd.Flags().BoolVar(&wav, "wav", false, "also export the trace as a 16-bit WAV")
	cmd.Flags().BoolVar(&skipCal, "no-calibration", false, "archive with the nominal rate only")

	return cmd
}

func parseMode(name string) (daq.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "video", "shallow":
		return daq.ModeVideo, nil
	case "science", "deep":
		return daq.ModeScience, nil
	default:
		return 0, fmt.Errorf("%w: %q", daq.ErrInvalidMode, name)
	}
}
