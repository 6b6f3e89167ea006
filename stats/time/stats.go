// Package time computes time-domain statistics and health checks for
// captured voltage traces. The numbers feed dataset metadata and the
// pre-measurement diagnostics that catch clipped or dead inputs before
// an experiment wastes a capture.
package time

import "math"

// Stats holds single-pass time-domain statistics of a voltage trace.
type Stats struct {
	Length int

	DC  float64 // mean
	RMS float64

	Max    float64
	MaxPos int
	Min    float64
	MinPos int

	Peak  float64 // max(|max - DC|, |min - DC|), swing around the bias
	Range float64 // max - min

	CrestFactor   float64 // Peak / AC RMS
	ZeroCrossings int     // crossings of the DC level
}

// Calculate computes all statistics in one pass.
func Calculate(signal []float64) Stats {
	n := len(signal)
	if n == 0 {
		return Stats{}
	}

	var (
		sum    float64
		sumSq  float64
		maxVal = signal[0]
		maxPos int
		minVal = signal[0]
		minPos int
	)

	for i, x := range signal {
		sum += x
		sumSq += x * x

		if x > maxVal {
			maxVal = x
			maxPos = i
		}

		if x < minVal {
			minVal = x
			minPos = i
		}
	}

	nf := float64(n)
	mean := sum / nf

	// AC quantities are measured around the bias, because the front end
	// centers a bipolar input on a mid-rail offset.
	acPower := sumSq/nf - mean*mean
	if acPower < 0 {
		acPower = 0
	}

	acRMS := math.Sqrt(acPower)
	peak := math.Max(math.Abs(maxVal-mean), math.Abs(minVal-mean))

	var crest float64
	if acRMS > 0 {
		crest = peak / acRMS
	}

	// Crossings of the bias level. Samples sitting exactly on the bias
	// carry no sign of their own; a run of them counts as one crossing
	// when the polarity differs on both sides.
	var crossings int
	lastSign := 0

	for _, x := range signal {
		s := 0
		if x > mean {
			s = 1
		} else if x < mean {
			s = -1
		}

		if s == 0 {
			continue
		}

		if lastSign != 0 && s != lastSign {
			crossings++
		}

		lastSign = s
	}

	return Stats{
		Length:        n,
		DC:            mean,
		RMS:           math.Sqrt(sumSq / nf),
		Max:           maxVal,
		MaxPos:        maxPos,
		Min:           minVal,
		MinPos:        minPos,
		Peak:          peak,
		Range:         maxVal - minVal,
		CrestFactor:   crest,
		ZeroCrossings: crossings,
	}
}

// RMS returns the root-mean-square of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	var sumSq float64
	for _, x := range signal {
		sumSq += x * x
	}

	return math.Sqrt(sumSq / float64(len(signal)))
}

// DC returns the mean of the signal using Kahan summation.
func DC(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	var sum, c float64
	for _, x := range signal {
		y := x - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}

	return sum / float64(len(signal))
}

// Peak returns the peak absolute amplitude of the signal.
func Peak(signal []float64) float64 {
	var peak float64
	for _, x := range signal {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}

	return peak
}

// HealthConfig sets the rails and thresholds for signal health checks.
type HealthConfig struct {
	VRef float64 // supply rail
	VMid float64 // expected bias

	// ClipLow and ClipHigh are margins inside the rails: a sample at or
	// below ClipLow, or at or above VRef-ClipHigh, counts as clipped.
	ClipLow  float64
	ClipHigh float64

	// MinSwing is the peak-to-peak floor below which the trace counts
	// as silent.
	MinSwing float64

	// BiasBand is the allowed deviation of DC from VMid.
	BiasBand float64
}

// DefaultHealthConfig returns thresholds matched to the board's 3.3 V
// front end.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		VRef:     3.3,
		VMid:     1.65,
		ClipLow:  0.02,
		ClipHigh: 0.05,
		MinSwing: 0.05,
		BiasBand: 0.15,
	}
}

// Health is the verdict on one captured trace.
type Health struct {
	Stats Stats

	Clipped     bool
	Silent      bool
	BiasDrifted bool

	// ClippedSamples counts how many samples sat on a rail.
	ClippedSamples int
}

// OK reports whether the trace is usable for measurement. Bias drift is
// advisory and does not fail the check on its own.
func (h Health) OK() bool {
	return !h.Clipped && !h.Silent
}

// CheckHealth analyzes a voltage trace for clipping, silence, and bias
// drift against the configured rails.
func CheckHealth(volts []float64, cfg HealthConfig) Health {
	if cfg.VRef <= 0 {
		cfg = DefaultHealthConfig()
	}

	s := Calculate(volts)

	h := Health{Stats: s}
	if s.Length == 0 {
		h.Silent = true
		return h
	}

	hi := cfg.VRef - cfg.ClipHigh

	for _, v := range volts {
		if v <= cfg.ClipLow || v >= hi {
			h.ClippedSamples++
		}
	}

	h.Clipped = h.ClippedSamples > 0
	h.Silent = !h.Clipped && s.Range < cfg.MinSwing
	h.BiasDrifted = math.Abs(s.DC-cfg.VMid) > cfg.BiasBand

	return h
}

// StreamingStats accumulates statistics incrementally across stream
// chunks, for long captures that never exist as one slice. Results
// match Calculate on the concatenated input.
type StreamingStats struct {
	n      int
	sum    float64
	sumSq  float64
	maxVal float64
	maxPos int
	minVal float64
	minPos int
}

// NewStreamingStats creates an empty accumulator.
func NewStreamingStats() *StreamingStats {
	return &StreamingStats{}
}

// Update adds a chunk of samples.
func (s *StreamingStats) Update(samples []float64) {
	for _, x := range samples {
		if s.n == 0 {
			s.maxVal = x
			s.minVal = x
		}

		if x > s.maxVal {
			s.maxVal = x
			s.maxPos = s.n
		}

		if x < s.minVal {
			s.minVal = x
			s.minPos = s.n
		}

		s.sum += x
		s.sumSq += x * x
		s.n++
	}
}

// Result computes the statistics accumulated so far. Crest factor and
// zero crossings need the full trace and are zero here.
func (s *StreamingStats) Result() Stats {
	if s.n == 0 {
		return Stats{}
	}

	nf := float64(s.n)
	mean := s.sum / nf

	acPower := s.sumSq/nf - mean*mean
	if acPower < 0 {
		acPower = 0
	}

	return Stats{
		Length: s.n,
		DC:     mean,
		RMS:    math.Sqrt(s.sumSq / nf),
		Max:    s.maxVal,
		MaxPos: s.maxPos,
		Min:    s.minVal,
		MinPos: s.minPos,
		Peak:   math.Max(math.Abs(s.maxVal-mean), math.Abs(s.minVal-mean)),
		Range:  s.maxVal - s.minVal,
	}
}

// Reset clears the accumulator for reuse.
func (s *StreamingStats) Reset() {
	*s = StreamingStats{}
}
