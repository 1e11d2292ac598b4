package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/acct-ai/internal/uploads"
)

// Store is an in-memory implementation of uploads.Store.
// It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu    sync.RWMutex
	slots map[string][]uploads.Item
}

// NewStore creates a new in-memory upload history store.
func NewStore() *Store {
	return &Store{
		slots: make(map[string][]uploads.Item),
	}
}

// LoadPersistedUploads implements the uploads.Store interface.
func (s *Store) LoadPersistedUploads(ctx context.Context, slot string) ([]uploads.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to avoid external modifications
	items := s.slots[slot]
	out := make([]uploads.Item, len(items))
	copy(out, items)
	return out, nil
}

// SavePersistedUploads implements the uploads.Store interface.
func (s *Store) SavePersistedUploads(ctx context.Context, slot string, items []uploads.Item) error {
	if slot == "" {
		return fmt.Errorf("slot is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy so later caller mutations are not visible
	saved := make([]uploads.Item, len(items))
	copy(saved, items)
	s.slots[slot] = saved
	return nil
}

// Ensure Store implements uploads.Store interface.
var _ uploads.Store = (*Store)(nil)
