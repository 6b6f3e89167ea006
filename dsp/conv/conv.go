// Package conv provides linear convolution for the deconvolution chain.
//
// Two strategies are offered: direct time-domain convolution for short
// kernels and padded FFT convolution for the long inverse filters used in
// swept-sine deconvolution. The FFT path zero-pads both inputs to a shared
// power-of-two transform length covering the full linear result, so no
// circular wrap-around leaks into the output.
package conv

import (
	"errors"
	"fmt"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-daq/dsp/core"
)

// Errors returned by convolution functions.
var (
	ErrEmptyInput  = errors.New("conv: empty input")
	ErrEmptyKernel = errors.New("conv: empty kernel")
)

// Mode specifies the output mode for convolution.
type Mode int

const (
	// ModeFull returns the full result with length len(a)+len(b)-1.
	ModeFull Mode = iota

	// ModeSame returns output with the same length as the first input.
	ModeSame

	// ModeValid returns only the fully overlapping portion.
	ModeValid
)

// Direct performs time-domain linear convolution of a and b.
// O(N*M), suitable for short kernels only.
func Direct(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}

	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	result := make([]float64, len(a)+len(b)-1)
	for i := range a {
		for j := range b {
			result[i+j] += a[i] * b[j]
		}
	}

	return result, nil
}

// FFT performs linear convolution via a padded frequency-domain multiply.
// The transform length is the next power of two covering the full result,
// so the output is free of circular artifacts.
func FFT(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}

	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	n := len(a) + len(b) - 1
	fftSize := core.NextPowerOf2(n)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: fft plan: %w", err)
	}

	aFreq, err := forwardPadded(plan, a, fftSize)
	if err != nil {
		return nil, err
	}

	bFreq, err := forwardPadded(plan, b, fftSize)
	if err != nil {
		return nil, err
	}

	for i := range aFreq {
		aFreq[i] *= bFreq[i]
	}

	resultTime := make([]complex128, fftSize)
	if err := plan.Inverse(resultTime, aFreq); err != nil {
		return nil, fmt.Errorf("conv: inverse fft: %w", err)
	}

	result := make([]float64, n)
	for i := range result {
		result[i] = real(resultTime[i])
	}

	return result, nil
}

// Convolve performs linear convolution with automatic strategy selection:
// direct for short kernels, FFT otherwise.
func Convolve(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}

	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	if len(b) > len(a) {
		a, b = b, a
	}

	const directThreshold = 64
	if len(b) <= directThreshold {
		return Direct(a, b)
	}

	return FFT(a, b)
}

// ConvolveMode performs convolution with the specified output mode.
func ConvolveMode(a, b []float64, mode Mode) ([]float64, error) {
	full, err := Convolve(a, b)
	if err != nil {
		return nil, err
	}

	return trimToMode(full, len(a), len(b), mode), nil
}

func trimToMode(full []float64, lenA, lenB int, mode Mode) []float64 {
	switch mode {
	case ModeSame:
		start := (lenB - 1) / 2
		return full[start : start+lenA]
	case ModeValid:
		if lenA >= lenB {
			return full[lenB-1 : lenA]
		}

		return full[lenA-1 : lenB]
	default:
		return full
	}
}

func forwardPadded(plan *algofft.Plan[complex128], x []float64, fftSize int) ([]complex128, error) {
	in := make([]complex128, fftSize)
	for i, v := range x {
		in[i] = complex(v, 0)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("conv: forward fft: %w", err)
	}

	return out, nil
}
