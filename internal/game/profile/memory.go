package profile

import (
	"context"
	"fmt"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Register implements Store.
func (s *MemoryStore) Register(_ context.Context, username, password string) (Profile, error) {
	if username == "" || password == "" {
		return Profile{}, ErrMissingCredentials
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Profile{}, fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[username]; ok {
		return Profile{}, ErrExists
	}
	p := NewProfile(username, hash)
	s.profiles[username] = p
	return p, nil
}

// Login implements Store.
func (s *MemoryStore) Login(_ context.Context, username, password string) (Profile, error) {
	s.mu.RLock()
	p, ok := s.profiles[username]
	s.mu.RUnlock()
	if !ok {
		return Profile{}, ErrNotFound
	}
	if !CheckPassword(password, p.PasswordHash) {
		return Profile{}, ErrInvalidCredentials
	}
	return p, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, username string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[username]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, username string, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[username]
	if !ok {
		return ErrNotFound
	}
	u.Apply(&p)
	s.profiles[username] = p
	return nil
}
