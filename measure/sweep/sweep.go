package sweep

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-daq/dsp/conv"
	"github.com/cwbudde/algo-daq/dsp/core"
	"github.com/cwbudde/algo-daq/dsp/spectrum"
	"github.com/cwbudde/algo-daq/dsp/window"
)

// Errors returned by sweep functions.
var (
	ErrInvalidFrequency  = errors.New("sweep: frequency must be positive")
	ErrInvalidDuration   = errors.New("sweep: duration must be positive")
	ErrInvalidSampleRate = errors.New("sweep: sample rate must be positive")
	ErrFrequencyOrder    = errors.New("sweep: start frequency must be less than end frequency")
	ErrEmptyResponse     = errors.New("sweep: response signal is empty")
	ErrMaxHarmonic       = errors.New("sweep: max harmonic must be >= 2")
	ErrCausalWindow      = errors.New("sweep: causal window must have positive length")
)

// Envelope shapes the inverse filter's amplitude compensation.
//
// It receives the normalized sweep time tNorm in [0, 1] and ln(f2/f1), and
// returns the weight applied at that sweep position before time reversal.
// The low-frequency shape of this envelope is an open tuning question, so
// it is a strategy, not a constant.
type Envelope func(tNorm, lnRatio float64) float64

// DefaultEnvelope weights each sweep position proportionally to its
// instantaneous frequency, f(t)/f2 = exp((tNorm-1) * lnRatio).
//
// The sweep's energy density falls 3 dB per octave, and its inverse is
// convolved against it once more, so the round trip needs a full
// +6 dB/octave of emphasis to come out flat: amplitude proportional to f
// supplies exactly that. The envelope is normalized to unit gain at the
// high end; absolute scale is irrelevant because InverseFilter re-scales
// against the round trip anyway.
func DefaultEnvelope(tNorm, lnRatio float64) float64 {
	return math.Exp((tNorm - 1) * lnRatio)
}

// LogSweep describes an exponential sine sweep and provides deconvolution
// for impulse response measurement.
type LogSweep struct {
	StartFreq  float64 // start frequency in Hz
	EndFreq    float64 // end frequency in Hz
	Duration   float64 // sweep duration in seconds
	SampleRate float64 // sample rate in Hz

	// NormFreq is the frequency at which the inverse filter is scaled to
	// unit round-trip gain, so Bode magnitudes cross-check against the
	// calibration reference. Zero selects the band's geometric mean.
	NormFreq float64

	// Envelope overrides DefaultEnvelope when non-nil.
	Envelope Envelope
}

// Validate checks that the sweep parameters are consistent.
func (s *LogSweep) Validate() error {
	if s.StartFreq <= 0 || s.EndFreq <= 0 {
		return ErrInvalidFrequency
	}

	if s.StartFreq >= s.EndFreq {
		return ErrFrequencyOrder
	}

	if s.Duration <= 0 {
		return ErrInvalidDuration
	}

	if s.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}

	return nil
}

// Samples returns the sweep length in samples.
func (s *LogSweep) Samples() int {
	return int(math.Round(s.Duration * s.SampleRate))
}

func (s *LogSweep) lnRatio() float64 {
	return math.Log(s.EndFreq / s.StartFreq)
}

// InstFreq returns the instantaneous frequency at sweep time t:
//
//	f(t) = f1 * (f2/f1)^(t/T)
func (s *LogSweep) InstFreq(t float64) float64 {
	return s.StartFreq * math.Exp(t/s.Duration*s.lnRatio())
}

// Generate creates the sweep signal at unit amplitude.
//
// The exponential frequency law integrates analytically to the phase
//
//	φ(t) = 2π f1 T / ln(f2/f1) * (exp(t/T * ln(f2/f1)) - 1)
//
// which is continuous everywhere; a piecewise construction would inject
// broadband phase-discontinuity artifacts into the measurement.
func (s *LogSweep) Generate() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	n := s.Samples()
	out := make([]float64, n)

	T := s.Duration
	lnRatio := s.lnRatio()
	B := 2 * math.Pi * s.StartFreq * T / lnRatio

	for i := range out {
		t := float64(i) / s.SampleRate
		out[i] = math.Sin(B * (math.Exp(t/T*lnRatio) - 1))
	}

	return out, nil
}

// InverseFilter creates the deconvolution filter: the time-reversed sweep
// weighted by the amplitude envelope, scaled so the sweep–inverse
// round trip has unit gain at NormFreq.
func (s *LogSweep) InverseFilter() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sw, err := s.Generate()
	if err != nil {
		return nil, err
	}

	n := len(sw)
	lnRatio := s.lnRatio()

	env := s.Envelope
	if env == nil {
		env = DefaultEnvelope
	}

	inv := make([]float64, n)
	for i := range inv {
		j := n - 1 - i
		tNorm := float64(j) / float64(n)
		inv[i] = sw[j] * env(tNorm, lnRatio)
	}

	scale, err := s.roundTripGain(sw, inv)
	if err != nil {
		return nil, err
	}

	if scale > 0 {
		for i := range inv {
			inv[i] /= scale
		}
	}

	return inv, nil
}

// roundTripGain evaluates |FFT(sweep)*FFT(inv)| at the normalization
// frequency, the factor the inverse filter must divide out.
func (s *LogSweep) roundTripGain(sw, inv []float64) (float64, error) {
	fftSize := core.NextPowerOf2(len(sw) + len(inv) - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return 0, fmt.Errorf("sweep: fft plan: %w", err)
	}

	swF := make([]complex128, fftSize)
	invF := make([]complex128, fftSize)
	tmp := make([]complex128, fftSize)

	for i, v := range sw {
		tmp[i] = complex(v, 0)
	}

	if err := plan.Forward(swF, tmp); err != nil {
		return 0, fmt.Errorf("sweep: forward fft: %w", err)
	}

	for i := range tmp {
		tmp[i] = 0
	}

	for i, v := range inv {
		tmp[i] = complex(v, 0)
	}

	if err := plan.Forward(invF, tmp); err != nil {
		return 0, fmt.Errorf("sweep: forward fft: %w", err)
	}

	normFreq := s.NormFreq
	if normFreq <= 0 {
		normFreq = math.Sqrt(s.StartFreq * s.EndFreq)
	}

	bin := int(math.Round(normFreq / s.SampleRate * float64(fftSize)))
	if bin < 1 {
		bin = 1
	}

	if bin > fftSize/2 {
		bin = fftSize / 2
	}

	h := swF[bin] * invF[bin]

	return math.Hypot(real(h), imag(h)), nil
}

// Deconvolve convolves the captured response with the inverse filter and
// locates the linear impulse response peak.
//
// The convolution runs as a padded frequency-domain multiply at a single
// transform length, so no circular wrap-around mixes the pre-echo region
// into the causal tail.
func (s *LogSweep) Deconvolve(response []float64) (*ImpulseResponse, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if len(response) == 0 {
		return nil, ErrEmptyResponse
	}

	inv, err := s.InverseFilter()
	if err != nil {
		return nil, err
	}

	data, err := conv.FFT(response, inv)
	if err != nil {
		return nil, fmt.Errorf("sweep: deconvolution: %w", err)
	}

	// The linear peak of a delay-free system lands at len(inv)-1; any
	// propagation delay pushes it later. Harmonic pre-echoes land
	// earlier, so the search starts just before the zero-delay point
	// (a small slack absorbs windowing smear).
	searchStart := len(inv) - 1 - 8
	if searchStart < 0 {
		searchStart = 0
	}

	peak := searchStart
	best := -1.0

	for i := searchStart; i < len(data); i++ {
		if a := math.Abs(data[i]); a > best {
			best = a
			peak = i
		}
	}

	return &ImpulseResponse{
		Data:       data,
		PeakIndex:  peak,
		SampleRate: s.SampleRate,
		sweep:      *s,
	}, nil
}

// ImpulseResponse is the raw deconvolution output: the linear impulse
// response at PeakIndex with harmonic distortion pre-echoes before it.
type ImpulseResponse struct {
	Data       []float64
	PeakIndex  int
	SampleRate float64

	sweep LogSweep
}

// HarmonicOffsetSeconds returns how far before the linear peak the k-th
// harmonic's impulse response lands:
//
//	Δt_k = T * ln(k) / ln(f2/f1)
//
// Offsets grow with k but ever more slowly, so higher orders crowd
// together at the early edge.
func (ir *ImpulseResponse) HarmonicOffsetSeconds(k int) float64 {
	if k < 1 {
		return 0
	}

	return ir.sweep.Duration * math.Log(float64(k)) / ir.sweep.lnRatio()
}

// HarmonicIndex returns the sample index where the k-th harmonic IR is
// centered. k = 1 is the linear peak itself.
func (ir *ImpulseResponse) HarmonicIndex(k int) int {
	dt := ir.HarmonicOffsetSeconds(k)
	return ir.PeakIndex - int(math.Round(dt*ir.SampleRate))
}

// Causal extracts the one-sided linear segment: guard seconds before the
// peak through length seconds after it, with a light Tukey taper on the
// edges. Everything earlier, harmonic pre-echoes included, is discarded.
func (ir *ImpulseResponse) Causal(guard, length float64) ([]float64, error) {
	if length <= 0 {
		return nil, ErrCausalWindow
	}

	if guard < 0 {
		guard = 0
	}

	pre := int(math.Round(guard * ir.SampleRate))
	post := int(math.Round(length * ir.SampleRate))

	start := ir.PeakIndex - pre
	if start < 0 {
		start = 0
	}

	end := ir.PeakIndex + post
	if end > len(ir.Data) {
		end = len(ir.Data)
	}

	if end <= start {
		return nil, ErrCausalWindow
	}

	out := make([]float64, end-start)
	copy(out, ir.Data[start:end])

	taper, err := window.Tukey(len(out), 0.1)
	if err != nil {
		return nil, err
	}

	for i := range out {
		out[i] *= taper[i]
	}

	return out, nil
}

// Bode holds the frequency response of the causal segment.
type Bode struct {
	Freqs []float64 // Hz
	MagDB []float64 // 20*log10 |H|
	Phase []float64 // radians, wrapped
}

// Bode transforms the causal segment into magnitude and phase. The
// transform length matches the padded segment, and magnitudes are raw
// |H(f)| in dB: with the inverse filter's unit-gain normalization, a
// wire-through system reads 0 dB at the normalization frequency.
func (ir *ImpulseResponse) Bode(guard, length float64) (Bode, error) {
	causal, err := ir.Causal(guard, length)
	if err != nil {
		return Bode{}, err
	}

	fftSize := core.NextPowerOf2(2 * len(causal))

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Bode{}, fmt.Errorf("sweep: fft plan: %w", err)
	}

	in := make([]complex128, fftSize)
	for i, v := range causal {
		in[i] = complex(v, 0)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return Bode{}, fmt.Errorf("sweep: forward fft: %w", err)
	}

	bins := fftSize/2 + 1
	mags := spectrum.Magnitude(out[:bins])
	phase := spectrum.Phase(out[:bins])

	freqs := make([]float64, bins)
	magDB := make([]float64, bins)

	for i := range freqs {
		freqs[i] = spectrum.BinFreq(float64(i), ir.SampleRate, fftSize)
		magDB[i] = core.LinearToDB(mags[i])
	}

	return Bode{Freqs: freqs, MagDB: magDB, Phase: phase}, nil
}

// ExtractHarmonicIRs separates the harmonic impulse responses from the
// deconvolved output. Returns [linear IR, H2 IR, H3 IR, ...], each
// windowed at half the distance to its nearest neighbor.
func (ir *ImpulseResponse) ExtractHarmonicIRs(maxHarmonic int) ([][]float64, error) {
	if maxHarmonic < 2 {
		return nil, ErrMaxHarmonic
	}

	centers := make([]int, maxHarmonic+1)
	for k := 1; k <= maxHarmonic; k++ {
		centers[k] = ir.HarmonicIndex(k)
	}

	results := make([][]float64, maxHarmonic)

	for k := 1; k <= maxHarmonic; k++ {
		halfWidth := ir.harmonicHalfWidth(centers, k)

		start := centers[k] - halfWidth
		if start < 0 {
			start = 0
		}

		end := centers[k] + halfWidth
		if end > len(ir.Data) {
			end = len(ir.Data)
		}

		if end <= start {
			results[k-1] = []float64{0}
			continue
		}

		seg := make([]float64, end-start)
		copy(seg, ir.Data[start:end])
		results[k-1] = seg
	}

	return results, nil
}

// harmonicHalfWidth picks half the distance to the preceding harmonic
// region. The linear response has no later neighbor, so it reuses the
// spacing to H2.
func (ir *ImpulseResponse) harmonicHalfWidth(centers []int, k int) int {
	halfWidth := (centers[1] - centers[2]) / 2
	if k > 1 {
		halfWidth = (centers[k-1] - centers[k]) / 2
	}

	if halfWidth < 1 {
		halfWidth = 1
	}

	return halfWidth
}
