// Package settings persists user preferences across runs.
//
// The only preference is the save directory chosen with
// "mopsdl settings -set-dir". It is stored as YAML under the user's
// configuration directory.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Preferences is the persisted document.
type Preferences struct {
	SaveDirectory string `yaml:"save_directory"`
}

// Store reads and writes a preferences file.
type Store struct {
	path string

	mu       sync.Mutex
	watchers []func(Preferences)
}

// DefaultPath returns $XDG_CONFIG_HOME/mopsdl/settings.yaml or the
// platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("settings: locate config directory: %w", err)
	}
	return filepath.Join(dir, "mopsdl", "settings.yaml"), nil
}

// Open returns a store backed by path. The file need not exist.
func Open(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the preferences. A missing file yields zero preferences.
func (s *Store) Load() (Preferences, error) {
	var p Preferences

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("settings: read %s: %w", s.path, err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	return p, nil
}

// SaveDirectory returns the persisted save directory, or "" if none is set.
func (s *Store) SaveDirectory() (string, error) {
	p, err := s.Load()
	return p.SaveDirectory, err
}

// SetSaveDirectory persists dir and notifies watchers.
func (s *Store) SetSaveDirectory(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Load()
	if err != nil {
		return err
	}
	p.SaveDirectory = dir

	if err := s.write(p); err != nil {
		return err
	}

	for _, fn := range s.watchers {
		fn(p)
	}
	return nil
}

// Watch registers fn to be called after every successful update made
// through this store.
func (s *Store) Watch(fn func(Preferences)) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	s.mu.Unlock()
}

// write replaces the file atomically.
func (s *Store) write(p Preferences) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("settings: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("settings: replace %s: %w", s.path, err)
	}
	return nil
}
