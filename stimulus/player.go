package stimulus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/gen2brain/malgo"
)

// Player errors.
var (
	ErrEmptySignal         = errors.New("stimulus: signal is empty")
	ErrUnsupportedPlatform = errors.New("stimulus: no audio backend for this platform")
)

// Player sends a rendered signal to an output device. Play blocks until
// the signal has drained or the context is canceled.
type Player interface {
	Play(ctx context.Context, signal []float64, sampleRate float64) error
}

// MalgoPlayer plays through the system default output device via
// miniaudio. The zero value is ready to use.
type MalgoPlayer struct{}

func backendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
	}
}

// Play renders the signal as mono float32 frames on the default playback
// device and blocks until the last frame has been handed to the driver.
func (p *MalgoPlayer) Play(ctx context.Context, signal []float64, sampleRate float64) error {
	if len(signal) == 0 {
		return ErrEmptySignal
	}

	if sampleRate <= 0 {
		return ErrInvalidSampleRate
	}

	backend, err := backendForPlatform()
	if err != nil {
		return err
	}

	mctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("stimulus: init audio context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(math.Round(sampleRate))
	cfg.Alsa.NoMMap = 1

	var (
		cursor int
		once   sync.Once
	)

	done := make(chan struct{})

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			// Mono F32: four bytes per frame. Past the end the device
			// keeps running on silence until Play tears it down.
			for i := 0; i < int(frameCount); i++ {
				var v float32
				if cursor < len(signal) {
					v = float32(signal[cursor])
					cursor++
				}

				binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(v))
			}

			if cursor >= len(signal) {
				once.Do(func() { close(done) })
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("stimulus: init playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("stimulus: start playback: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
