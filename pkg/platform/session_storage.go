package platform

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// SessionStorage keeps the current session across client restarts.
// Load returns nil, nil when nothing is stored.
type SessionStorage interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

type memorySessionStorage struct {
	mu      sync.Mutex
	session *Session
}

func NewMemorySessionStorage() SessionStorage {
	return &memorySessionStorage{}
}

func (m *memorySessionStorage) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *memorySessionStorage) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

func (m *memorySessionStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// FileSessionStorage stores the session as YAML with 0600 permissions.
type FileSessionStorage struct {
	Path string
}

func NewFileSessionStorage(path string) *FileSessionStorage {
	return &FileSessionStorage{Path: path}
}

func (f *FileSessionStorage) Load() (*Session, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, nil
	}
	return &s, nil
}

func (f *FileSessionStorage) Save(s *Session) error {
	raw, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}

	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func (f *FileSessionStorage) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
