package daq

// Burst is one atomically captured block of raw samples. It is immutable
// once returned by the controller; the calibrated rate is the only field a
// later stage fills in, and it does so on a copy.
type Burst struct {
	Samples        []uint16
	Mode           Mode
	NominalRate    float64
	CalibratedRate float64 // 0 until a calibration has been applied
}

// Rate returns the calibrated sample rate when available, the nominal
// rate otherwise.
func (b Burst) Rate() float64 {
	if b.CalibratedRate > 0 {
		return b.CalibratedRate
	}

	return b.NominalRate
}

// Duration returns the burst length in seconds at the effective rate.
func (b Burst) Duration() float64 {
	rate := b.Rate()
	if rate <= 0 {
		return 0
	}

	return float64(len(b.Samples)) / rate
}

// WithCalibratedRate returns a copy of the burst carrying the given
// calibrated sample rate. The sample data is shared, not copied; bursts
// are never mutated after capture.
func (b Burst) WithCalibratedRate(rate float64) Burst {
	b.CalibratedRate = rate
	return b
}
