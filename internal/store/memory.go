// ABOUTME: In-memory chunk store backed by a keyed map
// ABOUTME: The default backend for small corpora and tests
package store

import (
	"sync"

	"strata/internal/models"
)

// MemoryStore keeps fragments in an in-process map
type MemoryStore struct {
	mu        sync.RWMutex
	fragments map[int64]models.Fragment
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fragments: make(map[int64]models.Fragment),
	}
}

// Get returns the fragment with the given id, or (nil, nil) if missing
func (s *MemoryStore) Get(id int64) (*models.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.fragments[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// GetMany returns the stored fragments in input-id order, omitting ids
// that were never stored
func (s *MemoryStore) GetMany(ids []int64) ([]models.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Fragment, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.fragments[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// Put stores a fragment, replacing any previous value for the same id
func (s *MemoryStore) Put(f models.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fragments[f.ID] = f
	return nil
}

// PutMany stores a batch of fragments
func (s *MemoryStore) PutMany(fs []models.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range fs {
		s.fragments[f.ID] = f
	}
	return nil
}

// Count returns the number of stored fragments
func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.fragments), nil
}

// Close is a no-op for the in-memory backend
func (s *MemoryStore) Close() error {
	return nil
}
