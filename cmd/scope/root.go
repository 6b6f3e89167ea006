package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-daq/config"
	"github.com/cwbudde/algo-daq/daq"
	"github.com/cwbudde/algo-daq/measure/calib"
)

// app carries the resolved configuration and logger into every
// subcommand.
type app struct {
	log *slog.Logger
	cfg config.Config

	cfgPath string
	dataDir string
}

func newRootCommand(logger *slog.Logger) *cobra.Command {
	a := &app{log: logger}

	root := &cobra.Command{
		Use:           "scope",
		Short:         "Storage oscilloscope capture and measurement tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			a.cfg = cfg
			if a.dataDir != "" {
				a.cfg.DataDir = a.dataDir
			}

			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "scope.yaml", "configuration file")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "override the archive directory")

	root.AddCommand(
		newCaptureCommand(a),
		newCalibrateCommand(a),
		newSweepCommand(a),
		newLiveCommand(a),
		newReplayCommand(a),
		newListCommand(a),
	)

	return root
}

// openController opens the serial link and wraps it in a burst
// controller. The returned func closes the link.
func (a *app) openController() (*daq.Controller, func(), error) {
	link, err := daq.OpenSerial(daq.SerialConfig{
		Port:        a.cfg.Serial.Port,
		BaudRate:    a.cfg.Serial.Baud,
		ReadTimeout: a.cfg.Serial.ReadTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", a.cfg.Serial.Port, err)
	}

	ctrl, err := daq.NewController(link, daq.ControllerConfig{
		VideoDepth:   a.cfg.Capture.VideoDepth,
		ScienceDepth: a.cfg.Capture.ScienceDepth,
		NominalRate:  a.cfg.Capture.NominalRate,
		ReplyTimeout: a.cfg.Capture.ReplyTimeout,
	})
	if err != nil {
		link.Close()
		return nil, nil, err
	}

	return ctrl, func() { link.Close() }, nil
}

func (a *app) decoder() daq.Decoder {
	return daq.NewDecoder(a.cfg.Capture.VRef)
}

// measureCalibration captures a deep burst with nothing but the ambient
// mains pickup on the input and locates the hum line.
func (a *app) measureCalibration(ctx context.Context, ctrl *daq.Controller) (calib.Record, error) {
	a.log.Info("measuring sample rate against mains reference",
		"stage", "calibrate",
		"reference_hz", a.cfg.Calibration.ReferenceFreq)

	burst, err := ctrl.Trigger(ctx, daq.ModeScience)
	if err != nil {
		return calib.Record{}, fmt.Errorf("calibration capture: %w", err)
	}

	volts := a.decoder().Decode(burst.Samples)

	engine := calib.New(a.cfg.Calibration.ReferenceFreq)

	rec, err := engine.Calibrate(volts, ctrl.NominalRate())
	if err != nil {
		return calib.Record{}, err
	}

	a.log.Info("calibration measured",
		"stage", "calibrate",
		"measured_rate_hz", rec.MeasuredRate,
		"correction_ppm", (rec.Correction-1)*1e6,
		"snr", rec.SNR)

	return rec, nil
}

// resolveRate returns the cached calibration, measuring a fresh one
// only when no cache exists.
func (a *app) resolveRate(ctx context.Context, ctrl *daq.Controller) (calib.Record, error) {
	store := calib.NewStore(a.cfg.Calibration.CachePath)

	return store.Resolve(func() (calib.Record, error) {
		return a.measureCalibration(ctx, ctrl)
	})
}
