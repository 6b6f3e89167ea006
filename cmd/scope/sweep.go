package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-daq/daq"
	"github.com/cwbudde/algo-daq/dsp/core"
	"github.com/cwbudde/algo-daq/dsp/spectrum"
	"github.com/cwbudde/algo-daq/measure/sweep"
	"github.com/cwbudde/algo-daq/measure/transfer"
	"github.com/cwbudde/algo-daq/stimulus"
)

func newSweepCommand(a *app) *cobra.Command {
	var (
		startFreq float64
		endFreq   float64
		duration  float64
		amplitude float64
		guard     float64
		length    float64
		harmonics int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Play a log sweep and deconvolve the impulse response",
		Long: `Arms a deep capture, plays an exponential sine sweep through the default
audio output, and deconvolves the captured response into an impulse
response. Reports the frequency response at octave points and the
distortion carried by the harmonic pre-echoes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, closeLink, err := a.openController()
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer closeLink()

			rec, err := a.resolveRate(cmd.Context(), ctrl)
			if err != nil {
				return fmt.Errorf("calibrate: %w", err)
			}

			if amplitude <= 0 {
				amplitude = a.cfg.Measurement.Amplitude
			}

			desc := &sweep.LogSweep{
				StartFreq:  startFreq,
				EndFreq:    endFreq,
				Duration:   duration,
				SampleRate: a.cfg.Measurement.AudioRate,
			}

			runner := &transfer.Runner{
				Capturer:      ctrl,
				Player:        &stimulus.MalgoPlayer{},
				Decoder:       a.decoder(),
				Sweep:         desc,
				Amplitude:     amplitude,
				Mode:          daq.ModeScience,
				CaptureRate:   rec.MeasuredRate,
				Settling:      a.cfg.Measurement.Settling,
				RateTolerance: a.cfg.Measurement.RateTolerance,
			}

			a.log.Info("running sweep",
				"stage", "sweep",
				"start_hz", startFreq,
				"end_hz", endFreq,
				"duration_s", duration,
				"amplitude", amplitude)

			res, err := runner.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}

			return reportSweep(cmd, res, guard, length, harmonics, startFreq, endFreq)
		},
	}

	cmd.Flags().Float64Var(&startFreq, "start", 20, "sweep start frequency in Hz")
	cmd.Flags().Float64Var(&endFreq, "end", 20000, "sweep end frequency in Hz")
	cmd.Flags().Float64Var(&duration, "duration", 1.0, "sweep duration in seconds")
	cmd.Flags().Float64Var(&amplitude, "amplitude", 0, "playback amplitude, (0, 1]; 0 uses the configured value")
	cmd.Flags().Float64Var(&guard, "guard", 0.001, "pre-peak guard window in seconds")
	cmd.Flags().Float64Var(&length, "length", 0.02, "causal window length in seconds")
	cmd.Flags().IntVar(&harmonics, "harmonics", 5, "highest harmonic order in the distortion report")

	return cmd
}

func reportSweep(cmd *cobra.Command, res *transfer.Result, guard, length float64, harmonics int, startFreq, endFreq float64) error {
	ir := res.IR

	bode, err := ir.Bode(guard, length)
	if err != nil {
		return fmt.Errorf("bode: %w", err)
	}

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "impulse response: %d samples at %.1f Hz, peak at %d\n\n",
		len(ir.Data), ir.SampleRate, ir.PeakIndex)

	points := octavePoints(startFreq, endFreq)

	mags, err := spectrum.InterpolateLinear(bode.Freqs, bode.MagDB, points)
	if err != nil {
		return fmt.Errorf("interpolate: %w", err)
	}

	phases, err := spectrum.InterpolateLinear(bode.Freqs, bode.Phase, points)
	if err != nil {
		return fmt.Errorf("interpolate: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "freq\tmagnitude\tphase")

	for i, f := range points {
		fmt.Fprintf(tw, "%.0f Hz\t%+.2f dB\t%+.2f rad\n", f, mags[i], phases[i])
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if harmonics >= 2 {
		thd, ratios, err := harmonicEnergy(ir, harmonics)
		if err != nil {
			return fmt.Errorf("harmonics: %w", err)
		}

		fmt.Fprintf(out, "\nTHD %.3f%% (%.1f dB)\n", thd*100, core.LinearToDB(thd))

		for k, r := range ratios {
			fmt.Fprintf(out, "  H%d  %.1f dB\n", k+2, core.LinearToDB(r))
		}
	}

	return nil
}

// octavePoints samples the band at octave steps from 1 kHz, clamped to
// the swept range.
func octavePoints(lo, hi float64) []float64 {
	var points []float64

	start := 1000.0
	for start/2 >= lo*1.1 {
		start /= 2
	}

	for f := start; f <= hi*0.9; f *= 2 {
		points = append(points, f)
	}

	return points
}

// harmonicEnergy sums the RMS of each harmonic pre-echo relative to the
// linear impulse response.
func harmonicEnergy(ir *sweep.ImpulseResponse, maxHarmonic int) (float64, []float64, error) {
	irs, err := ir.ExtractHarmonicIRs(maxHarmonic)
	if err != nil {
		return 0, nil, err
	}

	linear := rms(irs[0])
	if linear == 0 {
		return 0, nil, nil
	}

	ratios := make([]float64, 0, maxHarmonic-1)

	var sumSq float64

	for _, h := range irs[1:] {
		r := rms(h) / linear
		ratios = append(ratios, r)
		sumSq += r * r
	}

	return math.Sqrt(sumSq), ratios, nil
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	var sum float64
	for _, v := range x {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(x)))
}
