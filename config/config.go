// Package config loads the tool configuration from a YAML file and
// fills in board defaults for anything the file leaves out.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Errors returned by configuration loading.
var (
	ErrInvalidDepths    = errors.New("config: video depth must not exceed science depth")
	ErrInvalidRate      = errors.New("config: nominal rate must be positive")
	ErrInvalidReference = errors.New("config: mains reference frequency must be positive")
	ErrInvalidVRef      = errors.New("config: v_ref must be positive")
)

// Serial holds the device link settings.
type Serial struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// Capture holds acquisition parameters.
type Capture struct {
	VideoDepth   int           `yaml:"video_depth"`
	ScienceDepth int           `yaml:"science_depth"`
	NominalRate  float64       `yaml:"nominal_rate"`
	ReplyTimeout time.Duration `yaml:"reply_timeout"`
	VRef         float64       `yaml:"v_ref"`
}

// Calibration holds the mains-hum reference settings.
type Calibration struct {
	ReferenceFreq float64 `yaml:"reference_freq"`
	CachePath     string  `yaml:"cache_path"`
}

// Measurement holds transfer-run tolerances.
type Measurement struct {
	Settling      float64 `yaml:"settling"`
	RateTolerance float64 `yaml:"rate_tolerance"`
	Amplitude     float64 `yaml:"amplitude"`
	AudioRate     float64 `yaml:"audio_rate"`
}

// Config is the full tool configuration.
type Config struct {
	Serial      Serial      `yaml:"serial"`
	Capture     Capture     `yaml:"capture"`
	Calibration Calibration `yaml:"calibration"`
	Measurement Measurement `yaml:"measurement"`
	DataDir     string      `yaml:"data_dir"`
}

// Default returns the configuration matched to the reference hardware.
func Default() Config {
	return Config{
		Serial: Serial{
			Port:        "/dev/ttyACM0",
			Baud:        115200,
			ReadTimeout: 250 * time.Millisecond,
		},
		Capture: Capture{
			VideoDepth:   1024,
			ScienceDepth: 16384,
			NominalRate:  97793.1,
			ReplyTimeout: 3 * time.Second,
			VRef:         3.3,
		},
		Calibration: Calibration{
			ReferenceFreq: 60,
			CachePath:     "data/calibration.json",
		},
		Measurement: Measurement{
			Settling:      0.25,
			RateTolerance: 0.005,
			Amplitude:     0.5,
			AudioRate:     48000,
		},
		DataDir: "data",
	}
}

// Load reads path and overlays it on the defaults. A missing file is
// not an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyDefaults refills fields an explicit file zeroed out.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}

	if c.Serial.Baud <= 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Serial.ReadTimeout <= 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Capture.VideoDepth <= 0 {
		c.Capture.VideoDepth = def.Capture.VideoDepth
	}

	if c.Capture.ScienceDepth <= 0 {
		c.Capture.ScienceDepth = def.Capture.ScienceDepth
	}

	if c.Capture.NominalRate <= 0 {
		c.Capture.NominalRate = def.Capture.NominalRate
	}

	if c.Capture.ReplyTimeout <= 0 {
		c.Capture.ReplyTimeout = def.Capture.ReplyTimeout
	}

	if c.Capture.VRef <= 0 {
		c.Capture.VRef = def.Capture.VRef
	}

	if c.Calibration.ReferenceFreq <= 0 {
		c.Calibration.ReferenceFreq = def.Calibration.ReferenceFreq
	}

	if c.Calibration.CachePath == "" {
		c.Calibration.CachePath = def.Calibration.CachePath
	}

	if c.Measurement.Settling <= 0 {
		c.Measurement.Settling = def.Measurement.Settling
	}

	if c.Measurement.RateTolerance <= 0 {
		c.Measurement.RateTolerance = def.Measurement.RateTolerance
	}

	if c.Measurement.Amplitude <= 0 {
		c.Measurement.Amplitude = def.Measurement.Amplitude
	}

	if c.Measurement.AudioRate <= 0 {
		c.Measurement.AudioRate = def.Measurement.AudioRate
	}

	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Capture.VideoDepth > c.Capture.ScienceDepth {
		return ErrInvalidDepths
	}

	if c.Capture.NominalRate <= 0 {
		return ErrInvalidRate
	}

	if c.Capture.VRef <= 0 {
		return ErrInvalidVRef
	}

	if c.Calibration.ReferenceFreq <= 0 {
		return ErrInvalidReference
	}

	return nil
}
