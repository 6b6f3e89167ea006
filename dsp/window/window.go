// Package window provides the window functions used by the capture
// analysis chain: Hann for spectral estimation, Tukey for impulse
// response edge tapering, and a few classics for comparison work.
package window

import (
	"errors"
	"math"
)

// ErrInvalidSize is returned when a window size is not positive.
var ErrInvalidSize = errors.New("window: size must be positive")

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeFlatTop
	TypeTukey
	TypeWelch
)

// Option configures window generation.
type Option func(*config)

type config struct {
	alpha    float64
	periodic bool
}

func defaultConfig() config {
	return config{alpha: 0.5}
}

// WithAlpha sets the shape parameter for parameterized windows (Tukey).
func WithAlpha(v float64) Option {
	return func(c *config) {
		c.alpha = v
	}
}

// WithPeriodic generates a periodic (DFT-even) window instead of the
// symmetric default.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns the window coefficients for the given type and length.
// Unknown types fall back to rectangular.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)

	denom := float64(length - 1)
	if cfg.periodic {
		denom = float64(length)
	}

	if denom == 0 {
		out[0] = 1
		return out
	}

	for i := range out {
		x := float64(i) / denom
		out[i] = sample(t, x, cfg.alpha)
	}

	return out
}

// Apply multiplies buf in place by the window coefficients.
func Apply(t Type, buf []float64, opts ...Option) {
	coeffs := Generate(t, len(buf), opts...)
	for i := range buf {
		buf[i] *= coeffs[i]
	}
}

// Hann returns a Hann window of the given size.
func Hann(size int, opts ...Option) ([]float64, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	return Generate(TypeHann, size, opts...), nil
}

// Tukey returns a Tukey (tapered cosine) window with taper fraction alpha.
// alpha = 0 is rectangular, alpha = 1 is Hann.
func Tukey(size int, alpha float64, opts ...Option) ([]float64, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	opts = append(opts, WithAlpha(alpha))

	return Generate(TypeTukey, size, opts...), nil
}

// sample evaluates the window at normalized position x in [0, 1].
func sample(t Type, x, alpha float64) float64 {
	switch t {
	case TypeHann:
		return 0.5 - 0.5*math.Cos(2*math.Pi*x)
	case TypeHamming:
		return 0.54 - 0.46*math.Cos(2*math.Pi*x)
	case TypeBlackman:
		return 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	case TypeFlatTop:
		return 0.21557895 -
			0.41663158*math.Cos(2*math.Pi*x) +
			0.277263158*math.Cos(4*math.Pi*x) -
			0.083578947*math.Cos(6*math.Pi*x) +
			0.006947368*math.Cos(8*math.Pi*x)
	case TypeTukey:
		return tukeySample(x, alpha)
	case TypeWelch:
		d := 2*x - 1
		return 1 - d*d
	default:
		return 1
	}
}

func tukeySample(x, alpha float64) float64 {
	if alpha <= 0 {
		return 1
	}

	if alpha > 1 {
		alpha = 1
	}

	half := alpha / 2

	switch {
	case x < half:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-1)))
	case x > 1-half:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-2/alpha+1)))
	default:
		return 1
	}
}

// CoherentGain returns the mean of the window coefficients, the factor
// by which a windowed sine's spectral peak is attenuated.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}

	var sum float64
	for _, c := range coeffs {
		sum += c
	}

	return sum / float64(len(coeffs))
}
