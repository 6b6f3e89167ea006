package daq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/algo-daq/dsp/buffer"
)

// Default burst depths matching the device firmware's buffer split.
const (
	DefaultVideoDepth   = 1024
	DefaultScienceDepth = 16384
)

// ControllerConfig holds capture parameters.
type ControllerConfig struct {
	VideoDepth   int
	ScienceDepth int
	NominalRate  float64

	// ReplyTimeout bounds the whole exchange for one trigger: command
	// write through last payload byte. The deep burst takes its capture
	// duration plus transmission time, so this must cover both.
	ReplyTimeout time.Duration
}

// DefaultControllerConfig returns depths and rate matching the stock
// firmware.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		VideoDepth:   DefaultVideoDepth,
		ScienceDepth: DefaultScienceDepth,
		NominalRate:  97793.1,
		ReplyTimeout: 3 * time.Second,
	}
}

// Controller orchestrates burst triggering over an exclusive link.
//
// The receive arena is allocated once at the deep-burst size and reused for
// every trigger, so steady-state capture performs no per-call allocation
// beyond the returned burst's own sample copy.
type Controller struct {
	mu    sync.Mutex
	link  Link
	cfg   ControllerConfig
	arena *buffer.Arena
}

// NewController wraps a link with capture orchestration.
func NewController(link Link, cfg ControllerConfig) (*Controller, error) {
	def := DefaultControllerConfig()

	if cfg.VideoDepth <= 0 {
		cfg.VideoDepth = def.VideoDepth
	}

	if cfg.ScienceDepth <= 0 {
		cfg.ScienceDepth = def.ScienceDepth
	}

	if cfg.VideoDepth > cfg.ScienceDepth {
		return nil, fmt.Errorf("%w: video depth %d exceeds science depth %d",
			ErrInvalidDepth, cfg.VideoDepth, cfg.ScienceDepth)
	}

	if cfg.NominalRate <= 0 {
		cfg.NominalRate = def.NominalRate
	}

	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = def.ReplyTimeout
	}

	return &Controller{
		link:  link,
		cfg:   cfg,
		arena: buffer.NewArena(cfg.ScienceDepth),
	}, nil
}

// Depth returns the sample count for the mode.
func (c *Controller) Depth(mode Mode) (int, error) {
	switch mode {
	case ModeVideo:
		return c.cfg.VideoDepth, nil
	case ModeScience:
		return c.cfg.ScienceDepth, nil
	default:
		return 0, ErrInvalidMode
	}
}

// NominalRate returns the configured nominal sample rate.
func (c *Controller) NominalRate() float64 {
	return c.cfg.NominalRate
}

// Trigger sends one capture command and blocks until the full burst is
// received or the exchange fails.
//
// The reply is accumulated to the exact expected byte count: the device
// transmits only after its sampling loop finishes, so incremental delivery
// is a transport artifact, never a protocol feature. Zero bytes within the
// timeout is ErrLinkTimeout; a partial or stalled reply is ErrFraming.
// Data from a failed exchange is discarded unconditionally.
//
// Only one trigger may be in flight; the link is an exclusive resource.
func (c *Controller) Trigger(ctx context.Context, mode Mode) (Burst, error) {
	depth, err := c.Depth(mode)
	if err != nil {
		return Burst{}, err
	}

	cmd, err := mode.Command()
	if err != nil {
		return Burst{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.link.Flush(); err != nil {
		return Burst{}, fmt.Errorf("daq: flush before trigger: %w", err)
	}

	if err := c.link.WriteCommand(cmd); err != nil {
		return Burst{}, err
	}

	raw := c.arena.Raw(depth)

	if err := c.receive(ctx, raw); err != nil {
		return Burst{}, err
	}

	samples := make([]uint16, depth)
	copy(samples, c.arena.Decode(depth))

	return Burst{
		Samples:     samples,
		Mode:        mode,
		NominalRate: c.cfg.NominalRate,
	}, nil
}

// receive accumulates exactly len(dst) bytes or fails.
func (c *Controller) receive(ctx context.Context, dst []byte) error {
	deadline := time.Now().Add(c.cfg.ReplyTimeout)
	got := 0

	for got < len(dst) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCaptureAborted, err)
		}

		if time.Now().After(deadline) {
			if got == 0 {
				return ErrLinkTimeout
			}

			return fmt.Errorf("%w: got %d of %d bytes", ErrFraming, got, len(dst))
		}

		n, err := c.link.Read(dst[got:])
		if err != nil {
			return fmt.Errorf("daq: read reply: %w", err)
		}

		got += n
	}

	return nil
}
