package dataset

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-daq/daq"
)

func testDataset() *Dataset {
	samples := make([]uint16, 2048)
	for i := range samples {
		samples[i] = uint16(i * 31)
	}

	return &Dataset{
		Samples:        samples,
		NominalRate:    97793.1,
		CalibratedRate: 97810.4,
		Meta: Meta{
			CapturedAt:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
			Hardware:     "rp2040",
			Stimulus:     "sweep 20-20000Hz",
			VRef:         3.3,
			BiasVolts:    1.65,
			PeakVolts:    0.42,
			DominantFreq: 440.1,
			Notes:        "bench loopback",
		},
	}
}

func TestRoundTripBitExact(t *testing.T) {
	d := testDataset()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, d))

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, d.Samples, got.Samples)
	assert.Equal(t, d.NominalRate, got.NominalRate)
	assert.Equal(t, d.CalibratedRate, got.CalibratedRate)
	assert.True(t, d.Meta.CapturedAt.Equal(got.Meta.CapturedAt))
	assert.Equal(t, d.Meta.Notes, got.Meta.Notes)
	assert.Equal(t, d.Meta.DominantFreq, got.Meta.DominantFreq)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	d := testDataset()

	path, err := d.Save(dir, "bench")
	require.NoError(t, err)
	assert.Equal(t, "bench_20260314_092653"+Extension, filepath.Base(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, d.Samples, got.Samples)
}

// TestReadLegacyHeader feeds a minimal old-style header: no calibrated
// rate, no metadata, no sample count. Missing fields come back
// zero-valued and the payload length defines the sample count.
func TestReadLegacyHeader(t *testing.T) {
	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"nominal_rate":97812}` + "\n"))
	require.NoError(t, err)

	payload := []byte{0x34, 0x12, 0xff, 0xff, 0x00, 0x00}
	_, err = zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, []uint16{0x1234, 0xffff, 0}, got.Samples)
	assert.Equal(t, 97812.0, got.NominalRate)
	assert.Zero(t, got.CalibratedRate)
	assert.Zero(t, got.Meta)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a gzip stream")))
	assert.ErrorIs(t, err, ErrInvalidArchive)
}

func TestReadRejectsShortPayload(t *testing.T) {
	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"version":1,"sample_count":100}` + "\n"))
	require.NoError(t, err)
	_, err = zw.Write(make([]byte, 10))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Read(&buf)
	assert.ErrorIs(t, err, ErrShortPayload)
}

func TestFromBurst(t *testing.T) {
	b := daq.Burst{
		Samples:        []uint16{1, 2, 3},
		Mode:           daq.ModeScience,
		NominalRate:    97793.1,
		CalibratedRate: 97810.0,
	}

	d := FromBurst(b, Meta{Notes: "x"})

	assert.Equal(t, b.Samples, d.Samples)
	assert.Equal(t, 97810.0, d.Rate())
	assert.False(t, d.Meta.CapturedAt.IsZero())
}

func TestScan(t *testing.T) {
	dir := t.TempDir()

	d := testDataset()
	_, err := d.Save(dir, "aaa")
	require.NoError(t, err)

	d2 := testDataset()
	d2.Meta.CapturedAt = d2.Meta.CapturedAt.Add(time.Hour)
	d2.Meta.Notes = "second"
	_, err = d2.Save(filepath.Join(dir, "nested"), "bbb")
	require.NoError(t, err)

	// Noise that must be skipped, not fatal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk"+Extension), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644))

	entries, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, len(d.Samples), entries[0].SampleCount)
	assert.Equal(t, "second", entries[1].Meta.Notes)
}

func TestExportWAV(t *testing.T) {
	d := testDataset()
	path := filepath.Join(t.TempDir(), "out.wav")

	require.NoError(t, d.ExportWAV(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, len(d.Samples), len(buf.Data))
	assert.Equal(t, 97810, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
}
