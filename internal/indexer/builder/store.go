package builder

import (
	"context"
	"fmt"
	"slices"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

// JobStore keeps reindex job history so status can be polled after the
// fact.
type JobStore interface {
	Save(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	// List returns up to limit jobs, newest first.
	List(ctx context.Context, limit int) ([]Job, error)
}

// MemoryJobStore keeps the most recent jobs in memory.
type MemoryJobStore struct {
	mu       sync.RWMutex
	capacity int
	jobs     map[string]Job
	order    []string
}

func NewMemoryJobStore(capacity int) *MemoryJobStore {
	if capacity <= 0 {
		capacity = 200
	}
	return &MemoryJobStore{
		capacity: capacity,
		jobs:     make(map[string]Job),
	}
}

func (s *MemoryJobStore) Save(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; !exists {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = job
	for len(s.order) > s.capacity {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", id, apperrors.ErrJobNotFound)
	}
	return job, nil
}

func (s *MemoryJobStore) List(ctx context.Context, limit int) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]Job, 0, limit)
	for _, id := range slices.Backward(s.order) {
		if len(out) == limit {
			break
		}
		out = append(out, s.jobs[id])
	}
	return out, nil
}
