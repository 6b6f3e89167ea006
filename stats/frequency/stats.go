// Package frequency computes spectral descriptors of a captured trace.
// The dominant frequency feeds archive metadata; centroid and flatness
// distinguish tonal pickup from broadband noise before a measurement.
package frequency

import (
	"math"

	"github.com/cwbudde/algo-daq/daq"
	"github.com/cwbudde/algo-daq/dsp/spectrum"
	"github.com/cwbudde/algo-daq/dsp/window"
)

// Stats holds spectral descriptors of one trace.
type Stats struct {
	// Dominant is the strongest spectral line in Hz, refined to sub-bin
	// resolution by parabolic interpolation.
	Dominant float64

	// DominantLevel is the linear magnitude at the dominant line.
	DominantLevel float64

	// Centroid is the magnitude-weighted mean frequency in Hz.
	Centroid float64

	// Flatness is the Wiener entropy in 0..1: near 1 for white noise,
	// near 0 for a pure tone.
	Flatness float64

	// Rolloff is the frequency below which 85 percent of the spectral
	// energy lies.
	Rolloff float64
}

// Analyze windows and transforms a voltage trace, then summarizes its
// spectrum. DC is removed first so the bias never counts as the
// dominant line.
func Analyze(volts []float64, sampleRate float64) (Stats, error) {
	ac := daq.RemoveDC(volts)

	a, err := spectrum.Analyze(ac, sampleRate, window.TypeHann)
	if err != nil {
		return Stats{}, err
	}

	return Calculate(a), nil
}

// Calculate summarizes an already-computed spectrum. The DC bin is
// excluded from every descriptor.
func Calculate(a spectrum.Analysis) Stats {
	if len(a.Mags) < 2 {
		return Stats{}
	}

	mags := a.Mags[1:]
	freqs := a.Freqs[1:]

	peak := 0
	for i, m := range mags {
		if m > mags[peak] {
			peak = i
		}
	}

	s := Stats{
		Dominant:      freqs[peak],
		DominantLevel: mags[peak],
	}

	if refined := parabolic(mags, peak); refined != 0 {
		binWidth := a.SampleRate / float64(a.FFTSize)
		s.Dominant += refined * binWidth
	}

	var sum, weighted, energy float64
	var logSum float64
	logCount := 0

	for i, m := range mags {
		sum += m
		weighted += freqs[i] * m
		energy += m * m

		if m > 0 {
			logSum += math.Log(m)
			logCount++
		}
	}

	if sum > 0 {
		s.Centroid = weighted / sum
	}

	// Flatness is the geometric over the arithmetic mean. Zero bins are
	// excluded from the geometric mean instead of forcing it to zero.
	if logCount > 0 && sum > 0 {
		geo := math.Exp(logSum / float64(logCount))
		s.Flatness = geo / (sum / float64(len(mags)))
	}

	if energy > 0 {
		target := 0.85 * energy

		var acc float64
		for i, m := range mags {
			acc += m * m
			if acc >= target {
				s.Rolloff = freqs[i]
				break
			}
		}
	}

	return s
}

// parabolic returns the fractional bin offset of the true peak, fitted
// through the peak bin and its neighbors. Zero at the spectrum edges.
func parabolic(mags []float64, peak int) float64 {
	if peak <= 0 || peak >= len(mags)-1 {
		return 0
	}

	a := mags[peak-1]
	b := mags[peak]
	c := mags[peak+1]

	den := a - 2*b + c
	if den == 0 {
		return 0
	}

	return 0.5 * (a - c) / den
}
