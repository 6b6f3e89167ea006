package calib

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-daq/daq"
	"github.com/cwbudde/algo-daq/dsp/spectrum"
	"github.com/cwbudde/algo-daq/dsp/window"
)

// Errors returned by calibration.
var (
	ErrCalibrationUnavailable = errors.New("calib: no calibration available")
	ErrWeakReference          = errors.New("calib: reference signal too weak")
	ErrShortSignal            = errors.New("calib: signal too short for calibration")
	ErrInvalidReference       = errors.New("calib: reference frequency must be positive")
	ErrInvalidRate            = errors.New("calib: nominal rate must be positive")
	ErrNoPeakInBand           = errors.New("calib: no spectral peak inside the search band")
)

// Record is one calibration result. It is written once and reused until
// explicitly invalidated.
type Record struct {
	MeasuredRate  float64   `json:"measured_rate"`
	NominalRate   float64   `json:"nominal_rate"`
	ReferenceFreq float64   `json:"reference_freq"`
	Correction    float64   `json:"correction"`
	SNR           float64   `json:"snr"`
	Timestamp     time.Time `json:"timestamp"`
}

// Engine locates the reference line and refines its frequency to sub-bin
// resolution.
type Engine struct {
	// ReferenceFreq is the known line frequency, e.g. 60 Hz mains.
	ReferenceFreq float64

	// SearchBand bounds the peak search as a fraction of ReferenceFreq on
	// either side. 0.5 searches 30..90 Hz for a 60 Hz reference.
	SearchBand float64

	// MinSNR gates acceptance: the peak must exceed the noise floor by
	// this linear factor.
	MinSNR float64

	// CentroidRadius is the bin radius of the weighted-centroid
	// refinement around the peak.
	CentroidRadius int
}

// New returns an engine with the stock gates for the given reference
// frequency.
func New(referenceFreq float64) *Engine {
	return &Engine{
		ReferenceFreq:  referenceFreq,
		SearchBand:     0.5,
		MinSNR:         10,
		CentroidRadius: 2,
	}
}

// minSamples keeps the bin width small enough for the centroid refinement
// to be meaningful at mains frequencies.
const minSamples = 1024

// Calibrate measures the true sample rate from a reference capture.
//
// The signal is DC-removed, Hann-windowed and transformed; the largest
// peak inside the search band around the reference is refined by a
// magnitude-weighted centroid over neighboring bins. The ratio of the
// known reference frequency to the measured peak frequency corrects the
// nominal rate. Deterministic: the same signal always yields the same
// correction.
func (e *Engine) Calibrate(signal []float64, nominalRate float64) (Record, error) {
	if e.ReferenceFreq <= 0 {
		return Record{}, ErrInvalidReference
	}

	if nominalRate <= 0 {
		return Record{}, ErrInvalidRate
	}

	if len(signal) < minSamples {
		return Record{}, fmt.Errorf("%w: %d samples, need >= %d", ErrShortSignal, len(signal), minSamples)
	}

	ac := daq.RemoveDC(signal)

	analysis, err := spectrum.Analyze(ac, nominalRate, window.TypeHann)
	if err != nil {
		return Record{}, fmt.Errorf("calib: spectrum: %w", err)
	}

	band := e.SearchBand
	if band <= 0 {
		band = 0.5
	}

	low := e.ReferenceFreq * (1 - band)
	high := e.ReferenceFreq * (1 + band)

	peak := analysis.PeakBin(low, high)
	if peak < 0 {
		return Record{}, fmt.Errorf("%w: %.1f..%.1f Hz", ErrNoPeakInBand, low, high)
	}

	snr := peakSNR(analysis.Mags, peak)
	if e.MinSNR > 0 && snr < e.MinSNR {
		return Record{}, fmt.Errorf("%w: SNR %.1fx below gate %.1fx", ErrWeakReference, snr, e.MinSNR)
	}

	preciseBin := e.centroid(analysis.Mags, peak)

	measuredFreq := spectrum.BinFreq(preciseBin, nominalRate, analysis.FFTSize)
	if measuredFreq <= 0 {
		return Record{}, ErrNoPeakInBand
	}

	correction := e.ReferenceFreq / measuredFreq

	return Record{
		MeasuredRate:  nominalRate * correction,
		NominalRate:   nominalRate,
		ReferenceFreq: e.ReferenceFreq,
		Correction:    correction,
		SNR:           snr,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// centroid refines the peak bin to a fractional bin index by a
// magnitude-weighted average over the neighborhood.
func (e *Engine) centroid(mags []float64, peak int) float64 {
	radius := e.CentroidRadius
	if radius < 0 {
		radius = 0
	}

	lo := peak - radius
	if lo < 0 {
		lo = 0
	}

	hi := peak + radius
	if hi > len(mags)-1 {
		hi = len(mags) - 1
	}

	var num, den float64

	for i := lo; i <= hi; i++ {
		num += float64(i) * mags[i]
		den += mags[i]
	}

	if den == 0 {
		return float64(peak)
	}

	return num / den
}

// noiseExclusion is the bin radius excluded around the peak when
// estimating the noise floor.
const noiseExclusion = 5

// peakSNR returns the peak magnitude over the mean of the remaining bins.
func peakSNR(mags []float64, peak int) float64 {
	noise := make([]float64, 0, len(mags))

	for i, m := range mags {
		if i == 0 {
			continue // skip DC
		}

		if i >= peak-noiseExclusion && i <= peak+noiseExclusion {
			continue
		}

		noise = append(noise, m)
	}

	if len(noise) == 0 {
		return 0
	}

	floor := stat.Mean(noise, nil)
	if floor <= 0 {
		return 0
	}

	return mags[peak] / floor
}
