package transfer

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-daq/daq"
	"github.com/cwbudde/algo-daq/measure/sweep"
)

// fakeCapturer returns a canned burst and records when the trigger was
// armed relative to playback.
type fakeCapturer struct {
	mu        sync.Mutex
	burst     daq.Burst
	err       error
	depth     int
	armedAt   time.Time
	triggered bool
}

func (f *fakeCapturer) Depth(daq.Mode) (int, error) {
	return f.depth, nil
}

func (f *fakeCapturer) Trigger(ctx context.Context, mode daq.Mode) (daq.Burst, error) {
	f.mu.Lock()
	f.armedAt = time.Now()
	f.triggered = true
	f.mu.Unlock()

	if f.err != nil {
		return daq.Burst{}, f.err
	}

	return f.burst, nil
}

// fakePlayer records when playback started.
type fakePlayer struct {
	mu        sync.Mutex
	startedAt time.Time
	played    []float64
	rate      float64
	err       error
}

func (f *fakePlayer) Play(ctx context.Context, signal []float64, sampleRate float64) error {
	f.mu.Lock()
	f.startedAt = time.Now()
	f.played = append([]float64(nil), signal...)
	f.rate = sampleRate
	f.mu.Unlock()

	return f.err
}

func testSweep() *sweep.LogSweep {
	return &sweep.LogSweep{
		StartFreq:  200,
		EndFreq:    2000,
		Duration:   0.1,
		SampleRate: 48000,
	}
}

// encodeResponse renders the sweep as a wire-domain burst: the unit
// sweep scaled to a modest swing around the mid-rail bias.
func encodeResponse(t *testing.T, s *sweep.LogSweep, depth int) []uint16 {
	t.Helper()

	sig, err := s.Generate()
	require.NoError(t, err)

	out := make([]uint16, depth)
	for i := range out {
		v := daq.DefaultVMid
		if i < len(sig) {
			v += 0.4 * sig[i]
		}

		code := v / daq.DefaultVRef * daq.WireMaxCode
		out[i] = uint16(math.Round(code))
	}

	return out
}

func testRunner(capturer *fakeCapturer, player *fakePlayer) *Runner {
	return &Runner{
		Capturer:    capturer,
		Player:      player,
		Sweep:       testSweep(),
		Amplitude:   0.5,
		Mode:        daq.ModeScience,
		CaptureRate: 48000,
		Settling:    0.05,
		TriggerLead: time.Millisecond,
	}
}

func TestRunTriggerPrecedesPlayback(t *testing.T) {
	s := testSweep()
	depth := 16384

	capturer := &fakeCapturer{
		depth: depth,
		burst: daq.Burst{Samples: encodeResponse(t, s, depth), Mode: daq.ModeScience, NominalRate: 48000},
	}
	player := &fakePlayer{}

	res, err := testRunner(capturer, player).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.IR)

	assert.True(t, capturer.triggered)
	assert.True(t, capturer.armedAt.Before(player.startedAt),
		"capture must be armed before playback starts")

	assert.Equal(t, 48000.0, player.rate)
	assert.Len(t, player.played, s.Samples())

	// Stimulus was scaled to the configured amplitude.
	peak := 0.0
	for _, v := range player.played {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	assert.InDelta(t, 0.5, peak, 0.01)

	// The canned loopback response recovers a delay-free wire: the
	// linear peak sits at the zero-delay point.
	zeroDelay := s.Samples() - 1
	assert.InDelta(t, zeroDelay, res.IR.PeakIndex, 16)
}

func TestRunRejectsShortWindow(t *testing.T) {
	capturer := &fakeCapturer{depth: 1024}
	player := &fakePlayer{}

	r := testRunner(capturer, player)

	// 1024 samples at 48 kHz is far below 0.1 s sweep + 0.05 s tail.
	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrInsufficientCaptureWindow)

	// The window check fires before anything is excited or captured.
	assert.False(t, capturer.triggered)
	assert.Nil(t, player.played)
}

func TestRunRejectsShortWindowPostCapture(t *testing.T) {
	// No calibrated rate, so the pre-flight check is skipped; the
	// post-capture check against the burst's own duration still fires.
	s := testSweep()
	depth := 7000 // 0.146s at 48k, below 0.1s sweep + 0.05s tail

	capturer := &fakeCapturer{
		depth: depth,
		burst: daq.Burst{Samples: encodeResponse(t, s, depth), Mode: daq.ModeScience, NominalRate: 48000},
	}

	r := testRunner(capturer, &fakePlayer{})
	r.CaptureRate = 0

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrInsufficientCaptureWindow)

	// Capture did run; the run is discarded afterwards.
	assert.True(t, capturer.triggered)
}

func TestRunCaptureFailureDiscardsRun(t *testing.T) {
	capturer := &fakeCapturer{depth: 16384, err: daq.ErrLinkTimeout}

	_, err := testRunner(capturer, &fakePlayer{}).Run(context.Background())
	require.ErrorIs(t, err, daq.ErrLinkTimeout)
}

func TestRunValidation(t *testing.T) {
	depth := 16384
	capturer := &fakeCapturer{depth: depth}
	player := &fakePlayer{}

	r := testRunner(capturer, player)
	r.Capturer = nil
	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrMissingCapturer)

	r = testRunner(capturer, player)
	r.Player = nil
	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, ErrMissingPlayer)

	r = testRunner(capturer, player)
	r.Sweep = nil
	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, ErrMissingSweep)

	r = testRunner(capturer, player)
	r.Amplitude = 1.5
	_, err = r.Run(context.Background())
	assert.Error(t, err)
}

func TestPairValidateRateMismatch(t *testing.T) {
	s := testSweep()

	pair := Pair{
		Sweep:    *s,
		Response: daq.Burst{Samples: make([]uint16, 4800), NominalRate: 48000},
		Volts:    make([]float64, 4800),
	}

	// Exact agreement passes.
	require.NoError(t, pair.Validate(0))

	// Within the default half-percent band passes.
	pair.Response = pair.Response.WithCalibratedRate(48000 * 1.004)
	require.NoError(t, pair.Validate(0))

	// Beyond it fails.
	pair.Response = pair.Response.WithCalibratedRate(48000 * 1.02)
	require.ErrorIs(t, pair.Validate(0), ErrRateMismatch)

	// A caller may widen the tolerance explicitly.
	require.NoError(t, pair.Validate(0.05))
}

func TestPairValidateEmptyResponse(t *testing.T) {
	pair := Pair{Sweep: *testSweep()}
	require.ErrorIs(t, pair.Validate(0), ErrEmptyResponse)
}
