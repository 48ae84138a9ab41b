// Package memory is an in-process Store that keeps records in insertion order.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	records []engine.Record
	index   map[int64]int
}

var _ store.Store = (*Store)(nil)

func New(records ...engine.Record) *Store {
	s := &Store{}
	s.reset(records)
	return s
}

func (s *Store) Snapshot(_ context.Context) ([]engine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records), nil
}

func (s *Store) Upsert(_ context.Context, records []engine.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range cloneRecords(records) {
		if i, ok := s.index[r.ID]; ok {
			s.records[i] = r
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

func (s *Store) Replace(_ context.Context, records []engine.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(records)
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return store.ErrNotFound
	}
	s.records = slices.Delete(s.records, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].ID] = j
	}
	return nil
}

func (s *Store) Close() error { return nil }

// reset must be called with the write lock held (or before the store is shared).
func (s *Store) reset(records []engine.Record) {
	s.records = s.records[:0]
	s.index = make(map[int64]int, len(records))
	for _, r := range cloneRecords(records) {
		if i, ok := s.index[r.ID]; ok {
			s.records[i] = r
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
}

// cloneRecords copies records including the ParentID pointers.
func cloneRecords(in []engine.Record) []engine.Record {
	out := make([]engine.Record, len(in))
	for i, r := range in {
		if r.ParentID != nil {
			p := *r.ParentID
			r.ParentID = &p
		}
		out[i] = r
	}
	return out
}
