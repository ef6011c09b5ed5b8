// internal/behavior/store.go
package behavior

import (
	"context"
	"sync"
)

// ProfileStore persists user profiles across sessions. Implementations must
// be safe for concurrent use. Get returns (nil, nil) for an unknown key.
type ProfileStore interface {
	Get(ctx context.Context, key string) (*UserProfile, error)
	Put(ctx context.Context, key string, profile *UserProfile) error
}

// MemoryProfileStore is an in-memory ProfileStore, used when no database is
// configured and in tests.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*UserProfile
}

// NewMemoryProfileStore creates an empty in-memory store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*UserProfile)}
}

// Get returns a copy of the stored profile, or nil if absent.
func (s *MemoryProfileStore) Get(ctx context.Context, key string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[key].Clone(), nil
}

// Put stores a copy of the profile under key.
func (s *MemoryProfileStore) Put(ctx context.Context, key string, profile *UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[key] = profile.Clone()
	return nil
}

// Len returns the number of stored profiles.
func (s *MemoryProfileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
