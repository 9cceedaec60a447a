// Package executor runs parsed queries against the published index snapshot.
package executor

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/ranker"
)

// Snapshots hands out the currently published snapshot.
type Snapshots interface {
	Current() *index.Snapshot
}

type Hit struct {
	Ref          string   `json:"ref"`
	Collection   string   `json:"collection"`
	ID           string   `json:"id"`
	Title        string   `json:"title,omitempty"`
	Score        float64  `json:"score"`
	MatchedTerms []string `json:"matchedTerms"`
}

// SearchResult is one page of ranked hits. Total counts every matching
// document, not just the page.
type SearchResult struct {
	Query      string   `json:"query"`
	Terms      []string `json:"terms"`
	Total      int      `json:"total"`
	Limit      int      `json:"limit"`
	Offset     int      `json:"offset"`
	Generation uint64   `json:"generation"`
	Hits       []Hit    `json:"hits"`
}

type Executor struct {
	snapshots Snapshots
	parser    *parser.Parser
	logger    *slog.Logger
}

func New(snapshots Snapshots, p *parser.Parser) *Executor {
	return &Executor{
		snapshots: snapshots,
		parser:    p,
		logger:    slog.Default().With("component", "query-executor"),
	}
}

// Parse validates req without touching the index.
func (e *Executor) Parse(req parser.Request) (*parser.QueryPlan, error) {
	return e.parser.Parse(req)
}

// Search parses and executes req.
func (e *Executor) Search(ctx context.Context, req parser.Request) (*SearchResult, error) {
	plan, err := e.parser.Parse(req)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, plan, e.snapshots.Current())
}

// Execute evaluates plan against snap. Every read goes to the one snapshot,
// so a publish mid-query cannot mix generations.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, snap *index.Snapshot) (*SearchResult, error) {
	result := &SearchResult{
		Query:      plan.RawQuery,
		Terms:      plan.Terms,
		Limit:      plan.Limit,
		Offset:     plan.Offset,
		Generation: snap.Generation,
		Hits:       []Hit{},
	}
	if result.Terms == nil {
		result.Terms = []string{}
	}
	if len(plan.Terms) == 0 {
		return result, nil
	}

	var allowed map[catalog.Kind]bool
	if len(plan.Collections) > 0 {
		allowed = make(map[catalog.Kind]bool, len(plan.Collections))
		for _, k := range plan.Collections {
			allowed[k] = true
		}
	}

	postingsPerTerm := make(map[string]index.PostingList, len(plan.Terms))
	for _, term := range plan.Terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		postings := snap.Lookup(term)
		if allowed != nil {
			filtered := make(index.PostingList, 0, len(postings))
			for _, p := range postings {
				if allowed[p.Ref.Kind] {
					filtered = append(filtered, p)
				}
			}
			postings = filtered
		}
		if len(postings) > 0 {
			postingsPerTerm[term] = postings
		}
	}

	scored := ranker.Rank(plan.Terms, postingsPerTerm)
	result.Total = len(scored)
	page := ranker.TopK(scored, plan.Offset+plan.Limit)
	if plan.Offset < len(page) {
		page = page[plan.Offset:]
	} else {
		page = nil
	}
	for _, doc := range page {
		result.Hits = append(result.Hits, Hit{
			Ref:          doc.Ref.String(),
			Collection:   doc.Ref.Kind.String(),
			ID:           doc.Ref.ID,
			Title:        snap.Title(doc.Ref),
			Score:        doc.Score,
			MatchedTerms: doc.MatchedTerms,
		})
	}

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"generation", snap.Generation,
		"candidates", result.Total,
		"returned", len(result.Hits),
	)
	return result, nil
}
