// Package buffer provides reuse-friendly sample buffers.
//
// Buffer wraps a float64 slice for analysis scratch space. Arena is a
// pre-sized raw capture region sized for the deepest burst the device can
// deliver; it is allocated once and reused across triggers so the
// acquisition path performs no allocation per capture.
package buffer

import "encoding/binary"

// Buffer wraps a float64 slice with reuse-friendly semantics.
// DSP functions accept raw []float64; use Samples() to bridge.
type Buffer struct {
	samples []float64
}

// New returns a zero-filled Buffer of the given length.
func New(length int) *Buffer {
	if length < 0 {
		length = 0
	}

	return &Buffer{samples: make([]float64, length)}
}

// FromSlice wraps an existing slice without copying.
func FromSlice(s []float64) *Buffer {
	return &Buffer{samples: s}
}

// Samples returns the underlying slice.
func (b *Buffer) Samples() []float64 {
	return b.samples
}

// Len returns the current number of samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Resize sets the length to n, reusing existing capacity when possible.
// New elements beyond the previous length are zeroed.
func (b *Buffer) Resize(n int) {
	if n < 0 {
		n = 0
	}

	oldLen := len(b.samples)
	if n <= cap(b.samples) {
		b.samples = b.samples[:n]
	} else {
		s := make([]float64, n)
		copy(s, b.samples)
		b.samples = s
	}

	// Zero newly exposed elements that may hold stale data.
	for i := oldLen; i < n; i++ {
		b.samples[i] = 0
	}
}

// Zero sets all samples to 0.
func (b *Buffer) Zero() {
	for i := range b.samples {
		b.samples[i] = 0
	}
}

// Copy returns a deep copy of the buffer.
func (b *Buffer) Copy() *Buffer {
	s := make([]float64, len(b.samples))
	copy(s, b.samples)

	return &Buffer{samples: s}
}

// Arena is a fixed-capacity raw capture region. The byte view receives the
// device's wire payload; Decode reinterprets it as little-endian uint16
// samples into an equally pre-sized slice. Neither call allocates.
type Arena struct {
	raw     []byte
	decoded []uint16
}

// NewArena returns an Arena sized for maxSamples 16-bit samples.
func NewArena(maxSamples int) *Arena {
	if maxSamples < 0 {
		maxSamples = 0
	}

	return &Arena{
		raw:     make([]byte, 2*maxSamples),
		decoded: make([]uint16, maxSamples),
	}
}

// MaxSamples returns the arena capacity in samples.
func (a *Arena) MaxSamples() int {
	return len(a.decoded)
}

// Raw returns the byte view for the first n samples (2n bytes).
// The slice aliases the arena; it is only valid until the next trigger.
func (a *Arena) Raw(n int) []byte {
	return a.raw[:2*n]
}

// Decode converts the first n wire samples into the reused decode slice
// and returns a view of it. The view is invalidated by the next Decode.
func (a *Arena) Decode(n int) []uint16 {
	out := a.decoded[:n]
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(a.raw[2*i:])
	}

	return out
}
