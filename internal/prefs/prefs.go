// Package prefs persists presentation settings of the terminal client.
package prefs

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const fileName = "prefs.yaml"

type Prefs struct {
	IsDarkMode bool `yaml:"isDarkMode"`
}

type Store struct {
	path string
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, fileName)}
}

// Load returns the zero Prefs when nothing was saved yet.
func (s *Store) Load() (Prefs, error) {
	var p Prefs
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Prefs{}, err
	}
	return p, nil
}

func (s *Store) Save(p Prefs) error {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}
