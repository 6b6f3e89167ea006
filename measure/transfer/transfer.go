package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-daq/daq"
	"github.com/cwbudde/algo-daq/measure/sweep"
	"github.com/cwbudde/algo-daq/stimulus"
)

// Errors returned by transfer runs.
var (
	ErrInsufficientCaptureWindow = errors.New("transfer: capture window shorter than stimulus plus settling")
	ErrRateMismatch              = errors.New("transfer: stimulus and response sample rates disagree")
	ErrMissingCapturer           = errors.New("transfer: capturer is nil")
	ErrMissingPlayer             = errors.New("transfer: player is nil")
	ErrMissingSweep              = errors.New("transfer: sweep descriptor is nil")
	ErrEmptyResponse             = errors.New("transfer: response burst is empty")
)

// Default run parameters.
const (
	DefaultSettling      = 0.25 // seconds of tail after the sweep ends
	DefaultRateTolerance = 0.005
	DefaultTriggerLead   = 5 * time.Millisecond
)

// Capturer is the acquisition side of a run, satisfied by
// daq.Controller.
type Capturer interface {
	Depth(mode daq.Mode) (int, error)
	Trigger(ctx context.Context, mode daq.Mode) (daq.Burst, error)
}

// Pair binds a sweep descriptor to the captured response it excited.
// The descriptor's sample rate must agree with the response's effective
// rate, because the inverse filter is built from the descriptor and
// convolved against the response on a shared time axis.
type Pair struct {
	Sweep    sweep.LogSweep
	Response daq.Burst

	// Volts is the decoded, DC-free response signal.
	Volts []float64
}

// Validate checks the pair's rate invariant. tolerance is relative;
// zero or negative selects DefaultRateTolerance.
func (p *Pair) Validate(tolerance float64) error {
	if len(p.Volts) == 0 {
		return ErrEmptyResponse
	}

	if tolerance <= 0 {
		tolerance = DefaultRateTolerance
	}

	respRate := p.Response.Rate()
	if respRate <= 0 {
		return fmt.Errorf("%w: response rate %v", ErrRateMismatch, respRate)
	}

	if rel := math.Abs(p.Sweep.SampleRate-respRate) / respRate; rel > tolerance {
		return fmt.Errorf("%w: descriptor %.1f Hz vs response %.1f Hz (%.2f%% apart)",
			ErrRateMismatch, p.Sweep.SampleRate, respRate, rel*100)
	}

	return nil
}

// Deconvolve runs the pair through sweep deconvolution.
func (p *Pair) Deconvolve(tolerance float64) (*sweep.ImpulseResponse, error) {
	if err := p.Validate(tolerance); err != nil {
		return nil, err
	}

	// Retune the descriptor to the response's effective rate so the
	// inverse filter and the response share one time axis exactly.
	s := p.Sweep
	s.SampleRate = p.Response.Rate()

	return s.Deconvolve(p.Volts)
}

// Runner performs one stimulus-plus-capture measurement.
type Runner struct {
	Capturer Capturer
	Player   stimulus.Player
	Decoder  daq.Decoder

	// Sweep is the stimulus descriptor at the playback sample rate.
	Sweep *sweep.LogSweep

	// Amplitude scales the unit sweep for playback, (0, 1].
	Amplitude float64

	// Mode selects the capture depth. Sweeps outlast the shallow window,
	// so this should be ModeScience; note the zero value is the shallow
	// video burst.
	Mode daq.Mode

	// CaptureRate is the calibrated acquisition rate. When set, it is
	// attached to the burst and used for the pre-flight window check.
	CaptureRate float64

	// Settling is the tail after the sweep that the window must still
	// cover. Zero selects DefaultSettling.
	Settling float64

	// RateTolerance bounds descriptor/response rate disagreement.
	// Zero selects DefaultRateTolerance.
	RateTolerance float64

	// TriggerLead is the pause between arming the capture and starting
	// playback. Zero selects DefaultTriggerLead.
	TriggerLead time.Duration
}

// Result is one completed measurement.
type Result struct {
	Pair Pair
	IR   *sweep.ImpulseResponse
}

func (r *Runner) settling() float64 {
	if r.Settling > 0 {
		return r.Settling
	}

	return DefaultSettling
}

func (r *Runner) validate() error {
	if r.Capturer == nil {
		return ErrMissingCapturer
	}

	if r.Player == nil {
		return ErrMissingPlayer
	}

	if r.Sweep == nil {
		return ErrMissingSweep
	}

	if err := r.Sweep.Validate(); err != nil {
		return err
	}

	if r.Amplitude <= 0 || r.Amplitude > 1 {
		return stimulus.ErrInvalidAmplitude
	}

	return nil
}

// Run arms the capture, plays the sweep, and deconvolves the response.
// Partial or aborted captures are discarded, never shortened.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	mode := r.Mode
	if mode != daq.ModeVideo && mode != daq.ModeScience {
		mode = daq.ModeScience
	}

	// Pre-flight: refuse to excite anything if the window cannot hold
	// the sweep and its settling tail.
	if r.CaptureRate > 0 {
		depth, err := r.Capturer.Depth(mode)
		if err != nil {
			return nil, err
		}

		window := float64(depth) / r.CaptureRate
		need := r.Sweep.Duration + r.settling()

		if window < need {
			return nil, fmt.Errorf("%w: window %.3fs, need %.3fs", ErrInsufficientCaptureWindow, window, need)
		}
	}

	stim, err := r.Sweep.Generate()
	if err != nil {
		return nil, err
	}

	for i := range stim {
		stim[i] *= r.Amplitude
	}

	// Arm the capture first: the device samples into local memory and
	// transmits afterwards, so the trigger command must be on the wire
	// before the first stimulus sample leaves the speaker.
	type captureResult struct {
		burst daq.Burst
		err   error
	}

	captureCh := make(chan captureResult, 1)

	go func() {
		burst, err := r.Capturer.Trigger(ctx, mode)
		captureCh <- captureResult{burst, err}
	}()

	lead := r.TriggerLead
	if lead <= 0 {
		lead = DefaultTriggerLead
	}

	select {
	case <-time.After(lead):
	case <-ctx.Done():
		<-captureCh
		return nil, ctx.Err()
	}

	playErr := r.Player.Play(ctx, stim, r.Sweep.SampleRate)

	captured := <-captureCh
	if captured.err != nil {
		return nil, fmt.Errorf("transfer: capture: %w", captured.err)
	}

	if playErr != nil {
		return nil, fmt.Errorf("transfer: playback: %w", playErr)
	}

	burst := captured.burst
	if r.CaptureRate > 0 {
		burst = burst.WithCalibratedRate(r.CaptureRate)
	}

	// Post-flight window check against the rate the burst actually
	// carries.
	if need := r.Sweep.Duration + r.settling(); burst.Duration() < need {
		return nil, fmt.Errorf("%w: captured %.3fs, need %.3fs", ErrInsufficientCaptureWindow, burst.Duration(), need)
	}

	dec := r.Decoder
	if dec.VRef <= 0 {
		dec = daq.NewDecoder(0)
	}

	volts := daq.RemoveDC(dec.Decode(burst.Samples))

	analysis := *r.Sweep
	analysis.SampleRate = burst.Rate()

	pair := Pair{Sweep: analysis, Response: burst, Volts: volts}

	ir, err := pair.Deconvolve(r.RateTolerance)
	if err != nil {
		return nil, err
	}

	return &Result{Pair: pair, IR: ir}, nil
}
