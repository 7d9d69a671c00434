package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the persisted launcher record. It is read and written as a
// whole on every mutation; the last writer wins.
type Settings struct {
	ActiveVersion     string `json:"activeVersion,omitempty"`
	SpeedOptimization bool   `json:"speedOptimization"`
	APIAggregation    bool   `json:"apiAggregation"`
}

// Store persists Settings as a JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store { return &Store{path: path} }

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Load returns the stored settings. A missing file is created with defaults.
// A corrupt file yields defaults together with the decode error.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the stored settings.
func (s *Store) Save(st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(st)
}

// Update applies fn to the current settings and saves the result.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil && !isDecodeError(err) {
		return st, err
	}
	fn(&st)
	return st, s.save(st)
}

type decodeError struct{ err error }

func (e decodeError) Error() string { return "decode settings: " + e.err.Error() }
func (e decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	var de decodeError
	return errors.As(err, &de)
}

func (s *Store) load() (Settings, error) {
	var st Settings
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return st, s.save(st)
	}
	if err != nil {
		return st, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return Settings{}, decodeError{err: err}
	}
	return st, nil
}

func (s *Store) save(st Settings) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
