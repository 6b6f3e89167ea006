package stimulus

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Errors returned by stimulus functions.
var (
	ErrUnknownShape      = errors.New("stimulus: unknown wave shape")
	ErrInvalidFrequency  = errors.New("stimulus: frequency must be positive")
	ErrInvalidAmplitude  = errors.New("stimulus: amplitude must be in (0, 1]")
	ErrInvalidDuration   = errors.New("stimulus: duration must be positive")
	ErrInvalidSampleRate = errors.New("stimulus: sample rate must be positive")
)

// Shape selects the waveform of a Tone.
type Shape int

const (
	ShapeSine Shape = iota
	ShapeSquare
	ShapeTriangle
	ShapeSaw
	ShapeNoise
)

var shapeNames = map[Shape]string{
	ShapeSine:     "sine",
	ShapeSquare:   "square",
	ShapeTriangle: "triangle",
	ShapeSaw:      "saw",
	ShapeNoise:    "noise",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Shape(%d)", int(s))
}

// ParseShape resolves a shape by name, case-insensitively.
func ParseShape(name string) (Shape, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range shapeNames {
		if n == name {
			return s, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, name)
}

// Tone describes a fixed-shape excitation of finite duration.
type Tone struct {
	Shape      Shape
	Freq       float64 // Hz; ignored for noise
	Amplitude  float64 // peak, in (0, 1]
	Duration   float64 // seconds
	SampleRate float64 // Hz

	// Seed makes noise deterministic. Zero selects seed 1.
	Seed int64
}

// Validate checks the descriptor for playable parameters.
func (t *Tone) Validate() error {
	if t.Shape != ShapeNoise && t.Freq <= 0 {
		return ErrInvalidFrequency
	}

	if t.Amplitude <= 0 || t.Amplitude > 1 {
		return ErrInvalidAmplitude
	}

	if t.Duration <= 0 {
		return ErrInvalidDuration
	}

	if t.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}

	return nil
}

// Samples returns the rendered length in samples.
func (t *Tone) Samples() int {
	return int(math.Round(t.Duration * t.SampleRate))
}

// Generate renders the tone to a new buffer.
func (t *Tone) Generate() ([]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	osc, err := NewOscillator(*t)
	if err != nil {
		return nil, err
	}

	out := make([]float64, t.Samples())
	osc.Fill(out)

	return out, nil
}

// Oscillator renders Tone shapes block by block with a continuous running
// sample index, so consecutive Fill calls splice without phase jumps.
type Oscillator struct {
	tone Tone
	idx  int64
	rng  *rand.Rand
}

// NewOscillator creates a block oscillator for the tone.
func NewOscillator(tone Tone) (*Oscillator, error) {
	if err := tone.Validate(); err != nil {
		return nil, err
	}

	seed := tone.Seed
	if seed == 0 {
		seed = 1
	}

	return &Oscillator{
		tone: tone,
		rng:  rand.New(rand.NewSource(seed)),
	}, nil
}

// Fill renders the next len(block) samples.
func (o *Oscillator) Fill(block []float64) {
	f := o.tone.Freq
	amp := o.tone.Amplitude
	fs := o.tone.SampleRate

	for i := range block {
		t := float64(o.idx+int64(i)) / fs

		var x float64

		switch o.tone.Shape {
		case ShapeSine:
			x = math.Sin(2 * math.Pi * f * t)
		case ShapeSquare:
			x = sign(math.Sin(2 * math.Pi * f * t))
		case ShapeSaw:
			x = 2 * (t*f - math.Floor(0.5+t*f))
		case ShapeTriangle:
			x = 2*math.Abs(2*(t*f-math.Floor(t*f+0.5))) - 1
		case ShapeNoise:
			x = o.rng.Float64()*2 - 1
		}

		block[i] = amp * x
	}

	o.idx += int64(len(block))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
