package daq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeEndpoints(t *testing.T) {
	d := NewDecoder(3.3)

	got := d.Decode([]uint16{0, 32768, 65535})

	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, 3.3/2, got[1], 1e-4)
	assert.InDelta(t, 3.3, got[2], 1e-12)
}

func TestDecodeFullRangeStaysInBounds(t *testing.T) {
	d := NewDecoder(3.3)

	raw := make([]uint16, 4096)
	for i := range raw {
		raw[i] = uint16(i * 16)
	}

	for i, v := range d.Decode(raw) {
		if v < 0 || v > d.VRef {
			t.Fatalf("sample %d decoded to %v, outside [0, %v]", i, v, d.VRef)
		}
	}
}

func TestNewDecoderDefault(t *testing.T) {
	assert.Equal(t, DefaultVRef, NewDecoder(0).VRef)
	assert.Equal(t, DefaultVRef, NewDecoder(-1).VRef)
}

func TestRemoveDC(t *testing.T) {
	out := RemoveDC([]float64{1, 2, 3})

	var sum float64
	for _, v := range out {
		sum += v
	}

	assert.InDelta(t, 0, sum, 1e-12)
	assert.InDelta(t, -1, out[0], 1e-12)
}

func TestSoftwareTriggerAlignsRisingEdge(t *testing.T) {
	fs := 1000.0
	sig := make([]float64, 200)

	for i := range sig {
		sig[i] = math.Sin(2*math.Pi*50*float64(i)/fs + 1.3)
	}

	out := SoftwareTrigger(sig, 0)

	// Index 0 holds the last sample below the threshold; the rising
	// crossing itself sits at index one.
	assert.Less(t, out[0], 0.0)
	assert.GreaterOrEqual(t, out[1], 0.0)
	assert.Less(t, math.Abs(out[0]), 0.35)
	assert.Greater(t, out[1], out[0])
}

func TestSoftwareTriggerRotation(t *testing.T) {
	out := SoftwareTrigger([]float64{0.5, -0.5, -0.1, 0.2, 0.7}, 0)
	assert.Equal(t, []float64{-0.1, 0.2, 0.7, 0.5, -0.5}, out)
}

func TestSoftwareTriggerNoCrossing(t *testing.T) {
	sig := []float64{1, 1, 1}
	out := SoftwareTrigger(sig, 2)
	assert.Equal(t, sig, out)
}
