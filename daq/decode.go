package daq

// Hardware constants. The board's 12-bit ADC rescales to the full 16-bit
// range before transmission, so the wire domain is always 0..65535.
const (
	WireMaxCode = 65535

	// DefaultVRef is the board's ADC reference voltage.
	DefaultVRef = 3.3

	// DefaultVMid is the bias the analog front end adds to center a
	// bipolar input inside the unipolar sampling range.
	DefaultVMid = 1.65
)

// Decoder maps wire samples to calibrated voltages.
type Decoder struct {
	VRef float64
}

// NewDecoder returns a decoder for the given reference voltage,
// falling back to the board default when vRef is not positive.
func NewDecoder(vRef float64) Decoder {
	if vRef <= 0 {
		vRef = DefaultVRef
	}

	return Decoder{VRef: vRef}
}

// Decode linearly maps raw codes to volts: v = raw/65535 * VRef.
// Pure function; every input in the uint16 domain is valid.
func (d Decoder) Decode(raw []uint16) []float64 {
	out := make([]float64, len(raw))
	d.DecodeTo(out, raw)

	return out
}

// DecodeTo decodes into a caller-provided slice. dst and raw must have
// equal length.
func (d Decoder) DecodeTo(dst []float64, raw []uint16) {
	scale := d.VRef / WireMaxCode
	for i, r := range raw {
		dst[i] = float64(r) * scale
	}
}

// RemoveDC subtracts the mean from the signal, returning a new slice
// centered on zero.
func RemoveDC(signal []float64) []float64 {
	if len(signal) == 0 {
		return nil
	}

	var sum float64
	for _, v := range signal {
		sum += v
	}

	mean := sum / float64(len(signal))

	out := make([]float64, len(signal))
	for i, v := range signal {
		out[i] = v - mean
	}

	return out
}

// SoftwareTrigger rotates the signal so the last sample below threshold
// before a rising crossing lands at index zero, putting the crossing
// itself at index one. This stabilizes a periodic trace for display.
// The input is returned unchanged when no crossing exists.
func SoftwareTrigger(signal []float64, threshold float64) []float64 {
	cross := -1

	for i := 0; i+1 < len(signal); i++ {
		if signal[i] < threshold && signal[i+1] >= threshold {
			cross = i
			break
		}
	}

	if cross <= 0 {
		return signal
	}

	out := make([]float64, len(signal))
	n := copy(out, signal[cross:])
	copy(out[n:], signal[:cross])

	return out
}
