package stimulus

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-daq/internal/testutil"
)

func TestParseShape(t *testing.T) {
	for _, name := range []string{"sine", "square", "triangle", "saw", "noise"} {
		s, err := ParseShape(name)
		if err != nil {
			t.Fatalf("ParseShape(%q): %v", name, err)
		}

		if s.String() != name {
			t.Errorf("round trip %q -> %q", name, s.String())
		}
	}

	if _, err := ParseShape("ramp"); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("want ErrUnknownShape, got %v", err)
	}

	if s, err := ParseShape("  Sine "); err != nil || s != ShapeSine {
		t.Errorf("case/space folding failed: %v %v", s, err)
	}
}

func TestToneValidate(t *testing.T) {
	cases := []struct {
		name string
		tone Tone
		want error
	}{
		{"freq", Tone{Shape: ShapeSine, Freq: 0, Amplitude: 0.5, Duration: 1, SampleRate: 48000}, ErrInvalidFrequency},
		{"amp zero", Tone{Shape: ShapeSine, Freq: 100, Amplitude: 0, Duration: 1, SampleRate: 48000}, ErrInvalidAmplitude},
		{"amp over", Tone{Shape: ShapeSine, Freq: 100, Amplitude: 1.5, Duration: 1, SampleRate: 48000}, ErrInvalidAmplitude},
		{"duration", Tone{Shape: ShapeSine, Freq: 100, Amplitude: 0.5, Duration: 0, SampleRate: 48000}, ErrInvalidDuration},
		{"rate", Tone{Shape: ShapeSine, Freq: 100, Amplitude: 0.5, Duration: 1, SampleRate: 0}, ErrInvalidSampleRate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.tone.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	// Noise does not need a frequency.
	noise := Tone{Shape: ShapeNoise, Amplitude: 0.5, Duration: 0.1, SampleRate: 48000}
	if err := noise.Validate(); err != nil {
		t.Errorf("noise tone: %v", err)
	}
}

func TestGenerateSine(t *testing.T) {
	tone := Tone{Shape: ShapeSine, Freq: 1000, Amplitude: 0.8, Duration: 0.01, SampleRate: 48000}

	got, err := tone.Generate()
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != tone.Samples() {
		t.Fatalf("length %d, want %d", len(got), tone.Samples())
	}

	want := make([]float64, len(got))
	for i := range want {
		want[i] = 0.8 * math.Sin(2*math.Pi*1000*float64(i)/48000)
	}

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestGenerateShapeBounds(t *testing.T) {
	for _, shape := range []Shape{ShapeSquare, ShapeTriangle, ShapeSaw, ShapeNoise} {
		t.Run(shape.String(), func(t *testing.T) {
			tone := Tone{Shape: shape, Freq: 440, Amplitude: 1, Duration: 0.05, SampleRate: 48000}

			got, err := tone.Generate()
			if err != nil {
				t.Fatal(err)
			}

			for i, v := range got {
				if math.Abs(v) > 1+1e-12 {
					t.Fatalf("sample %d out of range: %v", i, v)
				}
			}
		})
	}
}

func TestGenerateSquareValues(t *testing.T) {
	tone := Tone{Shape: ShapeSquare, Freq: 100, Amplitude: 1, Duration: 0.02, SampleRate: 48000}

	got, err := tone.Generate()
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range got {
		if v != 1 && v != -1 && v != 0 {
			t.Fatalf("sample %d: square must be in {-1, 0, 1}, got %v", i, v)
		}
	}
}

func TestNoiseDeterministic(t *testing.T) {
	tone := Tone{Shape: ShapeNoise, Amplitude: 1, Duration: 0.01, SampleRate: 48000, Seed: 42}

	a, err := tone.Generate()
	if err != nil {
		t.Fatal(err)
	}

	b, err := tone.Generate()
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireSliceNearlyEqual(t, a, b, 0)

	tone.Seed = 43

	c, err := tone.Generate()
	if err != nil {
		t.Fatal(err)
	}

	diff, err := testutil.MaxAbsDiff(a, c)
	if err != nil {
		t.Fatal(err)
	}

	if diff == 0 {
		t.Error("different seeds produced identical noise")
	}
}

// TestOscillatorBlockContinuity splices two Fill calls and checks they
// match one continuous render.
func TestOscillatorBlockContinuity(t *testing.T) {
	tone := Tone{Shape: ShapeTriangle, Freq: 313, Amplitude: 0.7, Duration: 0.02, SampleRate: 48000}

	whole, err := tone.Generate()
	if err != nil {
		t.Fatal(err)
	}

	osc, err := NewOscillator(tone)
	if err != nil {
		t.Fatal(err)
	}

	split := len(whole) / 3
	pieced := make([]float64, len(whole))
	osc.Fill(pieced[:split])
	osc.Fill(pieced[split:])

	testutil.RequireSliceNearlyEqual(t, pieced, whole, 1e-12)
}

func TestPlayerValidation(t *testing.T) {
	var p MalgoPlayer

	if err := p.Play(t.Context(), nil, 48000); !errors.Is(err, ErrEmptySignal) {
		t.Errorf("want ErrEmptySignal, got %v", err)
	}

	if err := p.Play(t.Context(), []float64{0}, 0); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("want ErrInvalidSampleRate, got %v", err)
	}
}
