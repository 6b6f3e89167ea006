package daq

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Errors returned by the device link and controller.
var (
	ErrLinkTimeout    = errors.New("daq: device did not reply within the timeout window")
	ErrFraming        = errors.New("daq: reply length mismatch, protocol desynchronized (device reset required)")
	ErrLinkClosed     = errors.New("daq: link is closed")
	ErrInvalidMode    = errors.New("daq: invalid capture mode")
	ErrInvalidDepth   = errors.New("daq: burst depth must be positive")
	ErrCaptureAborted = errors.New("daq: capture aborted")
)

// Mode selects the burst depth and the matching device command.
type Mode int

const (
	// ModeVideo triggers a shallow, low-latency burst.
	ModeVideo Mode = iota

	// ModeScience triggers the deep, high-fidelity burst.
	ModeScience
)

// Device command bytes, one per mode.
const (
	cmdVideo   = 'v'
	cmdScience = 's'
)

// Command returns the single-byte trigger for the mode.
func (m Mode) Command() (byte, error) {
	switch m {
	case ModeVideo:
		return cmdVideo, nil
	case ModeScience:
		return cmdScience, nil
	default:
		return 0, ErrInvalidMode
	}
}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeVideo:
		return "video"
	case ModeScience:
		return "science"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Link is the byte-oriented channel to the capture device.
//
// Read follows the underlying transport's deadline semantics: it returns
// the bytes available within the configured read timeout, possibly zero.
// Accumulation to the exact burst size is the controller's job.
type Link interface {
	// WriteCommand sends a single command byte.
	WriteCommand(cmd byte) error

	// Read reads available reply bytes into p, bounded by the link's
	// read timeout.
	Read(p []byte) (int, error)

	// Flush discards any buffered input so a stale partial reply from a
	// previous exchange cannot alias as fresh data.
	Flush() error

	Close() error
}

// SerialConfig describes the serial transport to the device.
type SerialConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// DefaultSerialConfig returns the board's stock settings.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		BaudRate:    115200,
		ReadTimeout: 250 * time.Millisecond,
	}
}

// SerialLink is a Link over a serial port.
type SerialLink struct {
	port serial.Port
}

// OpenSerial opens the device's serial port in 8-N-1 framing and applies
// the configured read timeout.
func OpenSerial(cfg SerialConfig) (*SerialLink, error) {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultSerialConfig().BaudRate
	}

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultSerialConfig().ReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("daq: open %s: %w", cfg.Port, err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("daq: set read timeout: %w", err)
	}

	return &SerialLink{port: port}, nil
}

// WriteCommand sends a single command byte to the device.
func (l *SerialLink) WriteCommand(cmd byte) error {
	if l.port == nil {
		return ErrLinkClosed
	}

	n, err := l.port.Write([]byte{cmd})
	if err != nil {
		return fmt.Errorf("daq: write command 0x%02x: %w", cmd, err)
	}

	if n != 1 {
		return fmt.Errorf("daq: short command write (%d bytes)", n)
	}

	return nil
}

// Read reads available reply bytes, bounded by the port's read timeout.
func (l *SerialLink) Read(p []byte) (int, error) {
	if l.port == nil {
		return 0, ErrLinkClosed
	}

	return l.port.Read(p)
}

// Flush discards buffered input.
func (l *SerialLink) Flush() error {
	if l.port == nil {
		return ErrLinkClosed
	}

	return l.port.ResetInputBuffer()
}

// Close closes the port.
func (l *SerialLink) Close() error {
	if l.port == nil {
		return nil
	}

	err := l.port.Close()
	l.port = nil

	return err
}
