// Package thd measures total harmonic distortion by selective harmonic
// peak picking: only the energy at integer multiples of the fundamental
// counts, with the local noise floor around each harmonic subtracted, so
// broad-band noise does not inflate the figure.
package thd

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-daq/dsp/spectrum"
	"github.com/cwbudde/algo-daq/dsp/window"
)

// Errors returned by THD analysis.
var (
	ErrNoFundamental = errors.New("thd: no fundamental peak in range")
	ErrShortSignal   = errors.New("thd: signal too short for analysis")
)

const (
	defaultRangeLowerHz = 20.0
	defaultRangeUpperHz = 20000.0
	defaultMaxHarmonics = 10
	defaultSearchWindow = 5.0 // Hz half-width around each harmonic

	minSamples = 256
)

// Config holds THD calculation parameters. The zero value selects
// auto-detection of the fundamental across the audio band with a Hann
// window.
type Config struct {
	// FundamentalFreq pins the fundamental search to a known excitation
	// frequency. Zero auto-detects the strongest peak in range.
	FundamentalFreq float64

	// MaxHarmonics is the highest harmonic order included.
	MaxHarmonics int

	// SearchWindow is the half-width in Hz of the peak-picking window
	// around the fundamental and each harmonic.
	SearchWindow float64

	RangeLowerFreq float64
	RangeUpperFreq float64

	WindowType window.Type
}

func (c Config) normalized() Config {
	if c.MaxHarmonics <= 0 {
		c.MaxHarmonics = defaultMaxHarmonics
	}

	if c.SearchWindow <= 0 {
		c.SearchWindow = defaultSearchWindow
	}

	if c.RangeLowerFreq <= 0 {
		c.RangeLowerFreq = defaultRangeLowerHz
	}

	if c.RangeUpperFreq <= c.RangeLowerFreq {
		c.RangeUpperFreq = defaultRangeUpperHz
	}

	if c.WindowType == window.TypeRectangular {
		c.WindowType = window.TypeHann
	}

	return c
}

// Harmonic is one distortion product above the fundamental.
type Harmonic struct {
	Order int     // 2 for the second harmonic, and so on
	Freq  float64 // nominal center, Order * fundamental
	Level float64 // noise-corrected amplitude
	Ratio float64 // Level / fundamental level
}

// Result holds one THD measurement.
type Result struct {
	FundamentalFreq  float64
	FundamentalLevel float64

	THD        float64 // amplitude ratio
	THDPercent float64
	THDDB      float64

	OddHD  float64
	EvenHD float64

	Harmonics []Harmonic
}

// Calculator performs selective THD analysis.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator with normalized configuration.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg.normalized()}
}

// AnalyzeSignal is a one-shot analysis of a time-domain signal.
func AnalyzeSignal(signal []float64, sampleRate float64, cfg Config) (Result, error) {
	return NewCalculator(cfg).AnalyzeSignal(signal, sampleRate)
}

// AnalyzeSignal windows and transforms the signal, then evaluates the
// harmonic series.
func (c *Calculator) AnalyzeSignal(signal []float64, sampleRate float64) (Result, error) {
	if len(signal) < minSamples {
		return Result{}, ErrShortSignal
	}

	a, err := spectrum.Analyze(signal, sampleRate, c.cfg.WindowType)
	if err != nil {
		return Result{}, err
	}

	return c.Analyze(a)
}

// Analyze evaluates the harmonic series on an existing spectrum.
func (c *Calculator) Analyze(a spectrum.Analysis) (Result, error) {
	cfg := c.cfg
	w := cfg.SearchWindow

	fundFreq := cfg.FundamentalFreq

	var fundBin int
	if fundFreq > 0 {
		fundBin = a.PeakBin(fundFreq-w, fundFreq+w)
	} else {
		fundBin = a.PeakBin(cfg.RangeLowerFreq, cfg.RangeUpperFreq)
	}

	if fundBin < 0 || a.Mags[fundBin] <= 0 {
		return Result{}, ErrNoFundamental
	}

	fundLevel := a.Mags[fundBin]
	f0 := a.Freqs[fundBin]

	nyquist := a.SampleRate / 2

	var (
		sumSq, oddSq, evenSq float64
		harmonics            []Harmonic
	)

	for k := 2; k <= cfg.MaxHarmonics; k++ {
		target := f0 * float64(k)
		if target > cfg.RangeUpperFreq || target+w > nyquist {
			break
		}

		bin := a.PeakBin(target-w, target+w)
		if bin < 0 {
			continue
		}

		level := a.Mags[bin] - localNoise(a, target, w)
		if level <= 0 {
			continue
		}

		sumSq += level * level
		if k%2 == 0 {
			evenSq += level * level
		} else {
			oddSq += level * level
		}

		harmonics = append(harmonics, Harmonic{
			Order: k,
			Freq:  target,
			Level: level,
			Ratio: level / fundLevel,
		})
	}

	thd := math.Sqrt(sumSq) / fundLevel

	return Result{
		FundamentalFreq:  f0,
		FundamentalLevel: fundLevel,
		THD:              thd,
		THDPercent:       thd * 100,
		THDDB:            ratioToDB(thd),
		OddHD:            math.Sqrt(oddSq) / fundLevel,
		EvenHD:           math.Sqrt(evenSq) / fundLevel,
		Harmonics:        harmonics,
	}, nil
}

// localNoise estimates the floor around a harmonic from the bins just
// outside the peak-picking window.
func localNoise(a spectrum.Analysis, target, w float64) float64 {
	var ring []float64

	for i, f := range a.Freqs {
		if f <= target-3*w || f >= target+3*w {
			continue
		}

		if f > target-w && f < target+w {
			continue
		}

		ring = append(ring, a.Mags[i])
	}

	if len(ring) == 0 {
		return 0
	}

	return stat.Mean(ring, nil)
}

func ratioToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(v)
}
