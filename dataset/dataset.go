// Package dataset persists captured bursts with their acquisition
// metadata and reads them back bit-exactly.
//
// The archive is a gzip stream holding a JSON header line (schema
// version, rates, metadata, sample count) followed by the raw
// little-endian uint16 payload. Wire samples are stored undecoded so a
// later voltage-reference correction never invalidates old captures.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/cwbudde/algo-daq/daq"
)

// Errors returned by archive operations.
var (
	ErrInvalidArchive = errors.New("dataset: not a capture archive")
	ErrShortPayload   = errors.New("dataset: payload shorter than header sample count")
)

// Extension identifies capture archives on disk.
const Extension = ".daq.gz"

// schemaVersion is written into every new header. Readers accept any
// older header and zero-fill fields it does not carry.
const schemaVersion = 1

// Meta carries acquisition context alongside the samples. Fields are
// append-only across schema versions so old archives stay readable.
type Meta struct {
	CapturedAt time.Time `json:"captured_at"`

	Hardware string `json:"hardware,omitempty"`
	Stimulus string `json:"stimulus,omitempty"`
	Notes    string `json:"notes,omitempty"`

	VRef      float64 `json:"v_ref,omitempty"`
	BiasVolts float64 `json:"bias_volts,omitempty"`
	PeakVolts float64 `json:"peak_volts,omitempty"`
	DCOffset  float64 `json:"dc_offset,omitempty"`

	DominantFreq float64 `json:"dominant_freq,omitempty"`
	Clipped      bool    `json:"clipped,omitempty"`
}

// Dataset is one persisted capture.
type Dataset struct {
	Samples        []uint16
	NominalRate    float64
	CalibratedRate float64
	Meta           Meta
}

// FromBurst wraps a capture for persistence.
func FromBurst(b daq.Burst, meta Meta) *Dataset {
	if meta.CapturedAt.IsZero() {
		meta.CapturedAt = time.Now()
	}

	return &Dataset{
		Samples:        b.Samples,
		NominalRate:    b.NominalRate,
		CalibratedRate: b.CalibratedRate,
		Meta:           meta,
	}
}

// Rate returns the calibrated rate when known, otherwise the nominal.
func (d *Dataset) Rate() float64 {
	if d.CalibratedRate > 0 {
		return d.CalibratedRate
	}

	return d.NominalRate
}

// Duration returns the capture length in seconds.
func (d *Dataset) Duration() float64 {
	rate := d.Rate()
	if rate <= 0 {
		return 0
	}

	return float64(len(d.Samples)) / rate
}

type header struct {
	Version        int     `json:"version"`
	SampleCount    int     `json:"sample_count"`
	NominalRate    float64 `json:"nominal_rate"`
	CalibratedRate float64 `json:"calibrated_rate,omitempty"`
	Meta           Meta    `json:"meta"`
}

// Write streams the archive: gzip around one JSON header line plus the
// raw payload.
func Write(w io.Writer, d *Dataset) error {
	zw := gzip.NewWriter(w)

	h := header{
		Version:        schemaVersion,
		SampleCount:    len(d.Samples),
		NominalRate:    d.NominalRate,
		CalibratedRate: d.CalibratedRate,
		Meta:           d.Meta,
	}

	enc := json.NewEncoder(zw)
	if err := enc.Encode(&h); err != nil {
		return fmt.Errorf("dataset: encode header: %w", err)
	}

	payload := make([]byte, 2*len(d.Samples))
	for i, s := range d.Samples {
		binary.LittleEndian.PutUint16(payload[2*i:], s)
	}

	if _, err := zw.Write(payload); err != nil {
		return fmt.Errorf("dataset: write payload: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("dataset: close archive: %w", err)
	}

	return nil
}

// Read parses an archive stream. Headers from older schema versions are
// accepted with missing fields zero-valued; a header without a sample
// count falls back to reading the payload to EOF.
func Read(r io.Reader) (*Dataset, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	br := bufio.NewReader(zr)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidArchive)
	}

	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	payload, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("dataset: read payload: %w", err)
	}

	count := h.SampleCount
	if count == 0 {
		count = len(payload) / 2
	}

	if len(payload) < 2*count {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortPayload, len(payload), 2*count)
	}

	samples := make([]uint16, count)
	for i := range samples {
		samples[i] = binary.LittleEndian.Uint16(payload[2*i:])
	}

	return &Dataset{
		Samples:        samples,
		NominalRate:    h.NominalRate,
		CalibratedRate: h.CalibratedRate,
		Meta:           h.Meta,
	}, nil
}

// Save writes the archive into dir with a timestamped name and returns
// the path.
func (d *Dataset) Save(dir, prefix string) (string, error) {
	if prefix == "" {
		prefix = "capture"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("dataset: create dir: %w", err)
	}

	stamp := d.Meta.CapturedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}

	name := fmt.Sprintf("%s_%s%s", prefix, stamp.Format("20060102_150405"), Extension)
	path := filepath.Join(dir, name)

	var buf bytes.Buffer
	if err := Write(&buf, d); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("dataset: write file: %w", err)
	}

	return path, nil
}

// Load reads an archive from disk.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Entry is the header-only view of one archive, as listed by Scan.
type Entry struct {
	Path           string
	SampleCount    int
	NominalRate    float64
	CalibratedRate float64
	Meta           Meta
}

// Scan walks dir recursively and lists every capture archive by reading
// headers only. Unreadable files are skipped, not fatal.
func Scan(dir string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, Extension) {
			return nil
		}

		h, err := readHeader(path)
		if err != nil {
			return nil
		}

		entries = append(entries, Entry{
			Path:           path,
			SampleCount:    h.SampleCount,
			NominalRate:    h.NominalRate,
			CalibratedRate: h.CalibratedRate,
			Meta:           h.Meta,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: scan: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	return entries, nil
}

func readHeader(path string) (header, error) {
	f, err := os.Open(path)
	if err != nil {
		return header{}, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return header{}, err
	}
	defer zr.Close()

	line, err := bufio.NewReader(zr).ReadBytes('\n')
	if err != nil {
		return header{}, err
	}

	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return header{}, err
	}

	return h, nil
}
