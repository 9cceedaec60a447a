package source

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

// MemoryStore is a Store backed by maps. Records without an id are kept in
// insertion order so listing still returns them.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[catalog.Kind]map[string]catalog.Record
	orphans  map[catalog.Kind][]catalog.Record
	failures map[catalog.Kind]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[catalog.Kind]map[string]catalog.Record),
		orphans:  make(map[catalog.Kind][]catalog.Record),
		failures: make(map[catalog.Kind]error),
	}
}

// Put stores record under the id derived from kind's schema.
func (s *MemoryStore) Put(kind catalog.Kind, record catalog.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := kind.Schema().ID(record)
	if id == "" {
		s.orphans[kind] = append(s.orphans[kind], maps.Clone(record))
		return
	}
	if s.records[kind] == nil {
		s.records[kind] = make(map[string]catalog.Record)
	}
	s.records[kind][id] = maps.Clone(record)
}

func (s *MemoryStore) Delete(kind catalog.Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[kind], id)
}

// Fail makes every read of kind return err until cleared with nil.
func (s *MemoryStore) Fail(kind catalog.Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, kind)
		return
	}
	s.failures[kind] = err
}

func (s *MemoryStore) ListRecords(ctx context.Context, kind catalog.Kind) ([]catalog.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures[kind]; err != nil {
		return nil, fmt.Errorf("listing %s: %w: %w", kind, apperrors.ErrSourceUnavailable, err)
	}
	byID := s.records[kind]
	out := make([]catalog.Record, 0, len(byID)+len(s.orphans[kind]))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, maps.Clone(byID[id]))
	}
	for _, r := range s.orphans[kind] {
		out = append(out, maps.Clone(r))
	}
	return out, nil
}

func (s *MemoryStore) GetRecord(ctx context.Context, kind catalog.Kind, id string) (catalog.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures[kind]; err != nil {
		return nil, fmt.Errorf("getting %s:%s: %w: %w", kind, id, apperrors.ErrSourceUnavailable, err)
	}
	r, ok := s.records[kind][id]
	if !ok {
		return nil, fmt.Errorf("%s:%s: %w", kind, id, apperrors.ErrRecordNotFound)
	}
	return maps.Clone(r), nil
}
