package spectrum

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-daq/dsp/window"
)

func sine(freq, amp, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}

	return out
}

func TestAnalyzeSinePeak(t *testing.T) {
	const (
		fs   = 48000.0
		freq = 3000.0 // lands on a bin for n = 4096
		amp  = 0.8
	)

	sig := sine(freq, amp, fs, 4096)

	a, err := Analyze(sig, fs, window.TypeHann)
	if err != nil {
		t.Fatal(err)
	}

	peak := a.PeakBin(100, 20000)
	if peak < 0 {
		t.Fatal("no peak found")
	}

	gotFreq := a.Freqs[peak]
	if math.Abs(gotFreq-freq) > fs/float64(a.FFTSize) {
		t.Errorf("peak frequency %v, want %v", gotFreq, freq)
	}

	// Amplitude normalization: bin-centered sine reads its amplitude.
	if math.Abs(a.Mags[peak]-amp) > 0.05*amp {
		t.Errorf("peak magnitude %v, want ~%v", a.Mags[peak], amp)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	if _, err := Analyze(nil, 48000, window.TypeHann); err != ErrEmptySignal {
		t.Errorf("want ErrEmptySignal, got %v", err)
	}

	if _, err := Analyze([]float64{1}, 0, window.TypeHann); err != ErrInvalidSampleRate {
		t.Errorf("want ErrInvalidSampleRate, got %v", err)
	}
}

func TestMagnitude(t *testing.T) {
	in := []complex128{3 + 4i, 0, -1}
	got := Magnitude(in)

	want := []float64{5, 0, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Magnitude[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInterpolateLinear(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{0, 10, 40}

	got, err := InterpolateLinear(x, y, []float64{-1, 0.5, 1.5, 3})
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{0, 5, 25, 40}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("interp[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInterpolateLinearMismatch(t *testing.T) {
	if _, err := InterpolateLinear([]float64{0}, []float64{0, 1}, nil); err != ErrLengthMismatch {
		t.Errorf("want ErrLengthMismatch, got %v", err)
	}
}
