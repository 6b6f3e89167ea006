package dataset

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-daq/daq"
)

// ExportWAV writes the capture as a mono 16-bit WAV file of bias-free
// voltages, scaled so the full analog swing maps to int16 full scale.
// The sample rate is the calibrated rate rounded to the nearest hertz.
func (d *Dataset) ExportWAV(path string) error {
	rate := int(math.Round(d.Rate()))
	if rate <= 0 {
		return fmt.Errorf("dataset: export wav: no sample rate")
	}

	vRef := d.Meta.VRef
	if vRef <= 0 {
		vRef = daq.DefaultVRef
	}

	volts := daq.RemoveDC(daq.NewDecoder(vRef).Decode(d.Samples))

	// Half the reference spans the largest bias-free swing.
	scale := 32767 / (vRef / 2)

	data := make([]int, len(volts))
	for i, v := range volts {
		s := math.Round(v * scale)
		if s > 32767 {
			s = 32767
		}

		if s < -32768 {
			s = -32768
		}

		data[i] = int(s)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: export wav: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 1, 1)

	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: 1},
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("dataset: export wav: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("dataset: export wav: %w", err)
	}

	return nil
}
