// Package session owns the client's view of who is signed in.
package session

import (
	"sync"

	"anoa.com/isfportal/internal/entity"
)

// Session is a point-in-time copy of the store. Identity is nil when no
// one is signed in.
type Session struct {
	Identity *entity.Profile
	Loading  bool
}

func (s Session) Resolving() bool {
	return s.Loading
}

func (s Session) IdentityRole() (string, bool) {
	if s.Identity == nil {
		return "", false
	}
	return s.Identity.Role, true
}

// Store starts out loading and is written only by the Gateway.
type Store struct {
	mu       sync.RWMutex
	current  Session
	version  uint64
	watchers map[int]func(Session)
	nextID   int
}

func NewStore() *Store {
	return &Store{
		current:  Session{Loading: true},
		watchers: make(map[int]func(Session)),
	}
}

func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{Identity: cloneProfile(s.current.Identity), Loading: s.current.Loading}
}

// Version counts effective replacements.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Watch calls fn after every effective replacement. The returned func
// removes the watcher.
func (s *Store) Watch(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// replace sets the identity and clears loading. It reports false and
// leaves the version alone when nothing changed.
func (s *Store) replace(identity *entity.Profile) bool {
	s.mu.Lock()
	if !s.current.Loading && sameProfile(s.current.Identity, identity) {
		s.mu.Unlock()
		return false
	}

	s.current = Session{Identity: cloneProfile(identity)}
	s.version++
	snapshot := Session{Identity: cloneProfile(identity)}
	watchers := make([]func(Session), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(snapshot)
	}
	return true
}

func cloneProfile(p *entity.Profile) *entity.Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.RoleRef = nil
	return &cp
}

func sameProfile(a, b *entity.Profile) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID &&
		a.Role == b.Role &&
		a.Name == b.Name &&
		a.Email == b.Email &&
		a.StudentID == b.StudentID
}
