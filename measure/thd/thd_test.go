package thd

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-daq/internal/testutil"
)

const (
	testRate = 48000.0
	testLen  = 16384

	// Exactly bin 150 of a 16384-point transform at 48 kHz, so the
	// fundamental and its harmonics land on bin centers.
	testFund = 150 * testRate / testLen
)

// distortedSine builds fundamental + second + third harmonic with known
// amplitude ratios.
func distortedSine(h2, h3 float64) []float64 {
	out := make([]float64, testLen)
	for i := range out {
		t := float64(i) / testRate
		out[i] = math.Sin(2*math.Pi*testFund*t) +
			h2*math.Sin(2*math.Pi*2*testFund*t) +
			h3*math.Sin(2*math.Pi*3*testFund*t)
	}

	return out
}

func TestAnalyzeSignalKnownDistortion(t *testing.T) {
	sig := distortedSine(0.1, 0.05)

	res, err := AnalyzeSignal(sig, testRate, Config{})
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireNear(t, res.FundamentalFreq, testFund, 1.5)
	testutil.RequireNear(t, res.FundamentalLevel, 1.0, 0.01)

	want := math.Sqrt(0.1*0.1 + 0.05*0.05)
	testutil.RequireNear(t, res.THD, want, 0.005)
	testutil.RequireNear(t, res.THDPercent, want*100, 0.5)

	testutil.RequireNear(t, res.EvenHD, 0.1, 0.005)
	testutil.RequireNear(t, res.OddHD, 0.05, 0.005)

	if len(res.Harmonics) < 2 {
		t.Fatalf("expected at least 2 harmonics, got %d", len(res.Harmonics))
	}

	if res.Harmonics[0].Order != 2 || res.Harmonics[1].Order != 3 {
		t.Errorf("harmonic orders = %d, %d; want 2, 3", res.Harmonics[0].Order, res.Harmonics[1].Order)
	}

	testutil.RequireNear(t, res.Harmonics[0].Ratio, 0.1, 0.005)
}

func TestAnalyzeSignalPinnedFundamental(t *testing.T) {
	sig := distortedSine(0.1, 0)

	res, err := AnalyzeSignal(sig, testRate, Config{FundamentalFreq: testFund})
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireNear(t, res.THD, 0.1, 0.005)
}

func TestAnalyzeSignalCleanSine(t *testing.T) {
	sig := distortedSine(0, 0)

	res, err := AnalyzeSignal(sig, testRate, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if res.THD > 0.01 {
		t.Errorf("clean sine THD = %v, want < 1%%", res.THD)
	}
}

func TestAnalyzeSignalNoiseFloorRejected(t *testing.T) {
	// Broad-band noise well below the fundamental must not read as
	// distortion: that is the point of selective picking.
	sig := distortedSine(0, 0)
	noise := testutil.DeterministicNoise(7, 0.01, len(sig))

	for i := range sig {
		sig[i] += noise[i]
	}

	res, err := AnalyzeSignal(sig, testRate, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if res.THD > 0.02 {
		t.Errorf("noise inflated THD to %v", res.THD)
	}
}

func TestAnalyzeSignalShort(t *testing.T) {
	if _, err := AnalyzeSignal(make([]float64, 16), testRate, Config{}); !errors.Is(err, ErrShortSignal) {
		t.Errorf("want ErrShortSignal, got %v", err)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	if _, err := AnalyzeSignal(make([]float64, testLen), testRate, Config{}); !errors.Is(err, ErrNoFundamental) {
		t.Errorf("want ErrNoFundamental, got %v", err)
	}
}

func BenchmarkAnalyzeSignal(b *testing.B) {
	sig := distortedSine(0.1, 0.05)
	cfg := Config{FundamentalFreq: testFund}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := AnalyzeSignal(sig, testRate, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
