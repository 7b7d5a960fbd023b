package content

import (
	"context"
	"slices"
	"sync"
)

// MemorySource serves collections held in memory.
type MemorySource struct {
	mu          sync.RWMutex
	collections map[string][]Entry
	failures    map[string]error
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		collections: make(map[string][]Entry),
		failures:    make(map[string]error),
	}
}

// Set replaces a collection. Calling Set with no entries defines an empty collection.
func (s *MemorySource) Set(collection string, entries ...Entry) *MemorySource {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]Entry, len(entries))
	for i, e := range entries {
		e.Collection = collection
		stored[i] = e
	}
	s.collections[collection] = stored
	delete(s.failures, collection)
	return s
}

// Fail makes every read of collection fail with err.
func (s *MemorySource) Fail(collection string, err error) *MemorySource {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[collection] = err
	return s
}

func (s *MemorySource) ListEntries(ctx context.Context, collection string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(collection, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.failures[collection]; ok {
		return nil, unavailable(collection, err)
	}
	entries, ok := s.collections[collection]
	if !ok {
		return nil, unavailable(collection, ErrCollectionNotFound)
	}
	return slices.Clone(entries), nil
}
