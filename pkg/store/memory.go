package store

import (
	"context"
	"sync"

	"github.com/matzehuels/elkbridge/pkg/errors"
)

// MemoryStore keeps records in a map. Records are lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(ctx context.Context, r Record) (Record, error) {
	r = prepare(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; exists {
		return Record{}, errors.New(errors.ErrCodeInvalidInput, "record %s already exists", r.ID)
	}
	s.records[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, errors.New(errors.ErrCodeNotFound, "layout %s not found", id)
	}
	return r, nil
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
