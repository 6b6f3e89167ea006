// Command scope drives an RP2040-based storage oscilloscope over its
// serial link: burst capture, mains-hum sample-rate calibration, swept
// transfer-function measurement, and a live terminal trace view.
//
// Usage:
//
//	scope [flags] <command>
//
// Commands:
//
//	capture    trigger one burst and archive it
//	calibrate  measure the true sample rate against the mains reference
//	sweep      play a log sweep and deconvolve the impulse response
//	live       show the input live in the terminal
//	replay     play a stored archive through the live view
//	ls         list archived captures
//
// Examples:
//
//	scope capture --mode science --notes "loopback test"
//	scope calibrate
//	scope sweep --start 20 --end 20000 --duration 1.5
//	scope replay data/capture_20260830_120000.daq.gz
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(logger)

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
