package window

import (
	"math"
	"testing"
)

func TestHannEndpointsAndPeak(t *testing.T) {
	w, err := Hann(65)
	if err != nil {
		t.Fatal(err)
	}

	if w[0] > 1e-12 || w[64] > 1e-12 {
		t.Errorf("symmetric Hann endpoints should be zero: %v %v", w[0], w[64])
	}

	if math.Abs(w[32]-1) > 1e-12 {
		t.Errorf("Hann midpoint should be 1, got %v", w[32])
	}
}

func TestHannInvalidSize(t *testing.T) {
	if _, err := Hann(0); err != ErrInvalidSize {
		t.Fatalf("want ErrInvalidSize, got %v", err)
	}
}

func TestTukeyLimits(t *testing.T) {
	// alpha = 0 degenerates to rectangular.
	w, err := Tukey(33, 0)
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range w {
		if v != 1 {
			t.Fatalf("Tukey(alpha=0)[%d] = %v, want 1", i, v)
		}
	}

	// alpha = 1 degenerates to Hann.
	w, err = Tukey(33, 1)
	if err != nil {
		t.Fatal(err)
	}

	hann := Generate(TypeHann, 33)
	for i := range w {
		if math.Abs(w[i]-hann[i]) > 1e-9 {
			t.Fatalf("Tukey(alpha=1)[%d] = %v, want Hann %v", i, w[i], hann[i])
		}
	}
}

func TestTukeyFlatMiddle(t *testing.T) {
	w, err := Tukey(101, 0.1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 20; i <= 80; i++ {
		if w[i] != 1 {
			t.Fatalf("Tukey middle should be flat at index %d, got %v", i, w[i])
		}
	}
}

func TestPeriodicGeneration(t *testing.T) {
	w := Generate(TypeHann, 64, WithPeriodic())

	// A periodic Hann window of length N equals the first N points of a
	// symmetric window of length N+1.
	sym := Generate(TypeHann, 65)
	for i := range w {
		if math.Abs(w[i]-sym[i]) > 1e-12 {
			t.Fatalf("periodic mismatch at %d: %v vs %v", i, w[i], sym[i])
		}
	}
}

func TestApply(t *testing.T) {
	buf := []float64{1, 1, 1, 1, 1}
	Apply(TypeHann, buf)

	want := Generate(TypeHann, 5)
	for i := range buf {
		if buf[i] != want[i] {
			t.Fatalf("Apply mismatch at %d", i)
		}
	}
}

func TestCoherentGain(t *testing.T) {
	g := CoherentGain(Generate(TypeHann, 4096))
	if math.Abs(g-0.5) > 1e-3 {
		t.Errorf("Hann coherent gain should be ~0.5, got %v", g)
	}
}
