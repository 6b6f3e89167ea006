package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-daq/dsp/core"
	"github.com/cwbudde/algo-daq/dsp/window"
)

// Errors returned by spectrum functions.
var (
	ErrEmptySignal       = errors.New("spectrum: signal is empty")
	ErrInvalidSampleRate = errors.New("spectrum: sample rate must be positive")
	ErrLengthMismatch    = errors.New("spectrum: slice lengths differ")
)

// Magnitude returns |X[k]| for each complex spectrum bin.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	n := len(in)
	out := make([]float64, n)
	parts := make([]float64, 2*n)
	re, im := parts[:n], parts[n:]

	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Magnitude(out, re, im)

	return out
}

// Phase returns the phase angle in radians for each complex bin.
func Phase(in []complex128) []float64 {
	out := make([]float64, len(in))
	for i, c := range in {
		out[i] = cmplx.Phase(c)
	}

	return out
}

// BinFreq converts a (possibly fractional) bin index to frequency in Hz
// for a transform of fftSize points.
func BinFreq(bin, sampleRate float64, fftSize int) float64 {
	if fftSize <= 0 {
		return 0
	}

	return bin * sampleRate / float64(fftSize)
}

// Analysis holds a one-sided magnitude spectrum.
type Analysis struct {
	Freqs      []float64 // bin center frequencies in Hz
	Mags       []float64 // amplitude-normalized magnitudes
	FFTSize    int
	SampleRate float64
}

// Analyze computes the one-sided amplitude spectrum of a real signal.
//
// The signal is windowed (Hann by default via winType), zero-padded to a
// power of two, and transformed. Magnitudes are scaled by 2/N and corrected
// for the window's coherent gain so a full-scale sine reads its true
// amplitude at its bin.
func Analyze(signal []float64, sampleRate float64, winType window.Type) (Analysis, error) {
	if len(signal) == 0 {
		return Analysis{}, ErrEmptySignal
	}

	if sampleRate <= 0 {
		return Analysis{}, ErrInvalidSampleRate
	}

	n := len(signal)
	fftSize := core.NextPowerOf2(n)

	coeffs := window.Generate(winType, n)
	gain := window.CoherentGain(coeffs)

	if gain <= 0 {
		gain = 1
	}

	in := make([]complex128, fftSize)
	for i, v := range signal {
		in[i] = complex(v*coeffs[i], 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Analysis{}, fmt.Errorf("spectrum: fft plan: %w", err)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return Analysis{}, fmt.Errorf("spectrum: forward fft: %w", err)
	}

	bins := fftSize/2 + 1
	mags := Magnitude(out[:bins])

	scale := 2.0 / (float64(n) * gain)
	for i := range mags {
		mags[i] *= scale
	}

	// DC and Nyquist are not doubled.
	mags[0] /= 2
	if fftSize%2 == 0 {
		mags[bins-1] /= 2
	}

	freqs := make([]float64, bins)
	for i := range freqs {
		freqs[i] = BinFreq(float64(i), sampleRate, fftSize)
	}

	return Analysis{Freqs: freqs, Mags: mags, FFTSize: fftSize, SampleRate: sampleRate}, nil
}

// PeakBin returns the index of the largest magnitude within [fMin, fMax].
// Returns -1 when the band contains no bins.
func (a Analysis) PeakBin(fMin, fMax float64) int {
	best := -1
	bestMag := math.Inf(-1)

	for i, f := range a.Freqs {
		if f < fMin || f > fMax {
			continue
		}

		if a.Mags[i] > bestMag {
			bestMag = a.Mags[i]
			best = i
		}
	}

	return best
}

// InterpolateLinear performs piecewise-linear interpolation of (x, y) at
// each query point. x must be strictly increasing. Query points outside the
// range clamp to the boundary values.
func InterpolateLinear(x, y, queryX []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}

	if len(x) == 0 {
		return nil, ErrEmptySignal
	}

	out := make([]float64, len(queryX))

	for qi, q := range queryX {
		switch {
		case q <= x[0]:
			out[qi] = y[0]
		case q >= x[len(x)-1]:
			out[qi] = y[len(y)-1]
		default:
			lo, hi := 0, len(x)-1
			for hi-lo > 1 {
				mid := (lo + hi) / 2
				if x[mid] <= q {
					lo = mid
				} else {
					hi = mid
				}
			}

			frac := (q - x[lo]) / (x[hi] - x[lo])
			out[qi] = y[lo] + frac*(y[hi]-y[lo])
		}
	}

	return out, nil
}
