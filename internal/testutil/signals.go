package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}

	return out
}

// OnePoleLowpass filters the signal through a first-order lowpass with the
// given corner frequency. Serves as a known linear reference system:
// its magnitude response is 1/sqrt(1+(f/fc)^2).
func OnePoleLowpass(signal []float64, cornerHz, sampleRate float64) []float64 {
	out := make([]float64, len(signal))
	if len(signal) == 0 {
		return out
	}

	// Impulse-invariant one-pole coefficient.
	a := math.Exp(-2 * math.Pi * cornerHz / sampleRate)
	b := 1 - a

	var state float64
	for i, x := range signal {
		state = b*x + a*state
		out[i] = state
	}

	return out
}

// OnePoleLowpassMagnitude returns the analog prototype magnitude of the
// one-pole lowpass at frequency f.
func OnePoleLowpassMagnitude(f, cornerHz float64) float64 {
	r := f / cornerHz
	return 1 / math.Sqrt(1+r*r)
}

// TanhDrive applies the memoryless saturation y = tanh(k*x)/tanh(k),
// a standard synthetic nonlinearity for harmonic separation checks.
func TanhDrive(signal []float64, k float64) []float64 {
	out := make([]float64, len(signal))
	norm := math.Tanh(k)

	for i, x := range signal {
		out[i] = math.Tanh(k*x) / norm
	}

	return out
}

// EncodeWire converts bipolar voltages around mid-scale into the device's
// little-endian uint16 wire format, clipping at the rails.
func EncodeWire(volts []float64, vRef float64) []byte {
	out := make([]byte, 2*len(volts))

	for i, v := range volts {
		code := math.Round(v / vRef * 65535)
		if code < 0 {
			code = 0
		}

		if code > 65535 {
			code = 65535
		}

		u := uint16(code)
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}

	return out
}
