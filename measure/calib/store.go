package calib

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists one calibration record between sessions.
//
// The lifecycle is explicit: Resolve loads the cached record or measures a
// fresh one on first use; Invalidate is the only way to force
// re-measurement. Nothing in this package recalibrates implicitly.
type Store struct {
	path string
}

// NewStore returns a store backed by the given JSON file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the cached record. A missing cache is
// ErrCalibrationUnavailable; a corrupt one is a wrapped decode error.
func (s *Store) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, ErrCalibrationUnavailable
		}

		return Record{}, fmt.Errorf("calib: read cache: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("calib: decode cache: %w", err)
	}

	if rec.Correction <= 0 || rec.MeasuredRate <= 0 {
		return Record{}, fmt.Errorf("calib: cache holds no usable record: %w", ErrCalibrationUnavailable)
	}

	return rec, nil
}

// Save writes the record, creating the data directory if needed.
func (s *Store) Save(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("calib: create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("calib: encode cache: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("calib: write cache: %w", err)
	}

	return nil
}

// Invalidate removes the cached record. Removing an absent cache is not
// an error.
func (s *Store) Invalidate() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("calib: invalidate cache: %w", err)
	}

	return nil
}

// Resolve returns the cached record, measuring and caching a fresh one via
// measure only when no cache exists.
func (s *Store) Resolve(measure func() (Record, error)) (Record, error) {
	rec, err := s.Load()
	if err == nil {
		return rec, nil
	}

	if !errors.Is(err, ErrCalibrationUnavailable) {
		return Record{}, err
	}

	rec, err = measure()
	if err != nil {
		return Record{}, err
	}

	if err := s.Save(rec); err != nil {
		return Record{}, err
	}

	return rec, nil
}
