// Package suggest completes term prefixes from the published index's term
// table.
package suggest

import (
	"cmp"
	"context"
	"slices"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

type Snapshots interface {
	Current() *index.Snapshot
}

type Engine struct {
	snapshots Snapshots
	maxLimit  int
}

func New(snapshots Snapshots, maxLimit int) *Engine {
	if maxLimit <= 0 {
		maxLimit = 50
	}
	return &Engine{snapshots: snapshots, maxLimit: maxLimit}
}

// Suggest returns up to limit terms starting with prefix, shorter terms
// first, then terms found in more documents, then alphabetically. A blank
// prefix yields no suggestions. limit must be positive and is capped.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, apperrors.InvalidQuery("limit must be positive, got %d", limit)
	}
	limit = min(limit, e.maxLimit)
	p := tokenizer.NormalizePrefix(prefix)
	if p == "" {
		return []string{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := slices.Clone(e.snapshots.Current().WithPrefix(p))
	slices.SortFunc(candidates, compare)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Term
	}
	return out, nil
}

func compare(a, b index.TermStat) int {
	if c := cmp.Compare(utf8.RuneCountInString(a.Term), utf8.RuneCountInString(b.Term)); c != 0 {
		return c
	}
	if c := cmp.Compare(b.DocFrequency, a.DocFrequency); c != 0 {
		return c
	}
	return cmp.Compare(a.Term, b.Term)
}
