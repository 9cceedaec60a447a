// Package indexer owns the published index snapshot. The Engine is the one
// handle shared by the query, suggestion and stats paths; only the
// coordinator publishes through it.
package indexer

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/metrics"
)

type Engine struct {
	current atomic.Pointer[index.Snapshot]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine starts with the empty generation-zero snapshot.
func NewEngine(m *metrics.Metrics) *Engine {
	e := &Engine{
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
	e.current.Store(index.Empty())
	return e
}

// Current returns the published snapshot. It never blocks.
func (e *Engine) Current() *index.Snapshot {
	return e.current.Load()
}

// Publish swaps next in if base is still current and next carries a higher
// generation. Otherwise nothing changes and ErrStaleGeneration is returned.
func (e *Engine) Publish(base, next *index.Snapshot) error {
	if next.Generation <= base.Generation {
		e.metrics.ObservePublish("stale")
		return fmt.Errorf("publishing generation %d over %d: %w",
			next.Generation, base.Generation, apperrors.ErrStaleGeneration)
	}
	if !e.current.CompareAndSwap(base, next) {
		e.metrics.ObservePublish("stale")
		return fmt.Errorf("publishing generation %d: base %d is no longer current: %w",
			next.Generation, base.Generation, apperrors.ErrStaleGeneration)
	}
	e.metrics.ObservePublish("ok")
	e.metrics.SetIndex(next.Generation, next.TermCount(), countsByName(next))
	e.logger.Debug("snapshot published",
		"generation", next.Generation,
		"documents", next.DocumentCount(),
		"terms", next.TermCount(),
		"seq", next.Seq,
	)
	return nil
}

// Stats describes the published snapshot.
type Stats struct {
	TotalDocuments      int            `json:"totalDocuments"`
	TotalTerms          int            `json:"totalTerms"`
	TotalTokens         int64          `json:"totalTokens"`
	PerCollectionCounts map[string]int `json:"perCollectionCounts"`
	LastBuildDurationMs int64          `json:"lastBuildDurationMs"`
	LastBuiltAt         *time.Time     `json:"lastBuiltAt,omitempty"`
	Generation          uint64         `json:"generation"`
}

// Stats reads only the published snapshot, never one under construction.
func (e *Engine) Stats() Stats {
	return StatsOf(e.Current())
}

func StatsOf(s *index.Snapshot) Stats {
	st := Stats{
		TotalDocuments:      s.DocumentCount(),
		TotalTerms:          s.TermCount(),
		TotalTokens:         s.TotalTokens(),
		PerCollectionCounts: countsByName(s),
		LastBuildDurationMs: s.BuildDuration.Milliseconds(),
		Generation:          s.Generation,
	}
	if !s.BuiltAt.IsZero() {
		builtAt := s.BuiltAt.UTC()
		st.LastBuiltAt = &builtAt
	}
	return st
}

// countsByName lists every collection, including empty ones.
func countsByName(s *index.Snapshot) map[string]int {
	counts := s.CountsByKind()
	out := make(map[string]int, len(catalog.Kinds()))
	for _, k := range catalog.Kinds() {
		out[k.String()] = counts[k]
	}
	return out
}
