// Package liveview renders captured traces in the terminal as a
// continuously refreshing oscilloscope display.
//
// The refresh loop is cooperative polling bounded by a target frame
// interval, not a hard deadline: each frame pulls one trace from a
// Source, stabilizes it with a software trigger, draws it, and sleeps
// out the remainder of the interval. Sources are the live capture
// device or a stored archive replayed frame by frame.
package liveview

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-daq/daq"
	"github.com/cwbudde/algo-daq/dataset"
	stats "github.com/cwbudde/algo-daq/stats/time"
)

// Errors returned by the live view.
var (
	ErrNoSource   = errors.New("liveview: source is nil")
	ErrNoRenderer = errors.New("liveview: renderer is nil")
	ErrEmptyTrace = errors.New("liveview: source produced an empty trace")
)

// DefaultFrameInterval targets roughly 30 frames per second.
const DefaultFrameInterval = 33 * time.Millisecond

// Source yields one voltage trace per frame.
type Source interface {
	Next(ctx context.Context) (volts []float64, sampleRate float64, err error)
}

// Renderer is the drawing surface. Cells use a terminal coordinate
// system with the origin top-left.
type Renderer interface {
	Size() (width, height int)
	Clear() error
	SetCell(x, y int, ch rune)
	Flush() error
}

// View drives the refresh loop.
type View struct {
	src      Source
	renderer Renderer
	stream   *stats.StreamingStats

	// FrameInterval bounds the refresh rate. Zero selects the default.
	FrameInterval time.Duration

	// TriggerLevel is the software trigger threshold in volts. Zero
	// selects the mid-rail bias.
	TriggerLevel float64

	// Frames limits the loop for replay and testing. Zero runs until
	// the context is canceled.
	Frames int
}

// New creates a view over a source and a renderer.
func New(src Source, r Renderer) (*View, error) {
	if src == nil {
		return nil, ErrNoSource
	}

	if r == nil {
		return nil, ErrNoRenderer
	}

	return &View{src: src, renderer: r, stream: stats.NewStreamingStats()}, nil
}

// Stats returns the running statistics over every frame drawn so far,
// so a session's bias and level are known the moment the view closes.
func (v *View) Stats() stats.Stats {
	return v.stream.Result()
}

// Run refreshes until the context is canceled, the frame budget is
// exhausted, or the source is drained.
func (v *View) Run(ctx context.Context) error {
	interval := v.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	trigger := v.TriggerLevel
	if trigger == 0 {
		trigger = daq.DefaultVMid
	}

	for frame := 0; v.Frames == 0 || frame < v.Frames; frame++ {
		start := time.Now()

		volts, rate, err := v.src.Next(ctx)
		if err != nil {
			return err
		}

		if len(volts) == 0 {
			return ErrEmptyTrace
		}

		v.stream.Update(volts)

		stable := daq.SoftwareTrigger(volts, trigger)

		if err := v.draw(stable, rate); err != nil {
			return err
		}

		// Sleep out the rest of the frame budget.
		rest := interval - time.Since(start)
		if rest > 0 {
			select {
			case <-time.After(rest):
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}

func (v *View) draw(volts []float64, rate float64) error {
	if err := v.renderer.Clear(); err != nil {
		return err
	}

	width, height := v.renderer.Size()

	top := 1
	bottom := height - 2
	left := 1

	if bottom <= top || width <= left {
		return v.renderer.Flush()
	}

	for x := left; x < width; x++ {
		v.renderer.SetCell(x, bottom, '-')
	}

	for y := top; y < bottom; y++ {
		v.renderer.SetCell(left-1, y, '|')
	}

	v.renderer.SetCell(left-1, bottom, '+')

	vMin := floats.Min(volts)
	vMax := floats.Max(volts)

	span := vMax - vMin
	if span <= 0 {
		span = 1
	}

	cols := width - left
	rows := bottom - top

	for x := 0; x < cols; x++ {
		idx := x * len(volts) / cols
		norm := (volts[idx] - vMin) / span
		y := bottom - 1 - int(math.Round(norm*float64(rows-1)))

		v.renderer.SetCell(left+x, y, '*')
	}

	putString(v.renderer, 0, 0, fmt.Sprintf("fs %.1f Hz  span %.3f V  rms %.3f V  n %d",
		rate, vMax-vMin, v.stream.Result().RMS, len(volts)))

	return v.renderer.Flush()
}

func putString(r Renderer, x, y int, s string) {
	for i, ch := range s {
		r.SetCell(x+i, y, ch)
	}
}

// LiveSource pulls shallow bursts from the capture device.
type LiveSource struct {
	Capturer interface {
		Trigger(ctx context.Context, mode daq.Mode) (daq.Burst, error)
	}
	Decoder daq.Decoder
	Mode    daq.Mode
}

// Next triggers one burst and decodes it.
func (s *LiveSource) Next(ctx context.Context) ([]float64, float64, error) {
	mode := s.Mode
	if mode != daq.ModeScience {
		mode = daq.ModeVideo
	}

	burst, err := s.Capturer.Trigger(ctx, mode)
	if err != nil {
		return nil, 0, err
	}

	dec := s.Decoder
	if dec.VRef <= 0 {
		dec = daq.NewDecoder(0)
	}

	return dec.Decode(burst.Samples), burst.Rate(), nil
}

// ReplaySource feeds a stored capture through the view frame by frame,
// wrapping around at the end.
type ReplaySource struct {
	data   *dataset.Dataset
	volts  []float64
	window int
	offset int
}

// NewReplaySource chunks the archive into windows of the given sample
// count. A non-positive window selects the shallow capture depth.
func NewReplaySource(d *dataset.Dataset, window int) (*ReplaySource, error) {
	if len(d.Samples) == 0 {
		return nil, ErrEmptyTrace
	}

	if window <= 0 {
		window = daq.DefaultVideoDepth
	}

	if window > len(d.Samples) {
		window = len(d.Samples)
	}

	vRef := d.Meta.VRef

	return &ReplaySource{
		data:   d,
		volts:  daq.NewDecoder(vRef).Decode(d.Samples),
		window: window,
	}, nil
}

// Next returns the next window, wrapping at the end of the capture.
func (s *ReplaySource) Next(ctx context.Context) ([]float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	if s.offset+s.window > len(s.volts) {
		s.offset = 0
	}

	frame := s.volts[s.offset : s.offset+s.window]
	s.offset += s.window

	return frame, s.data.Rate(), nil
}
