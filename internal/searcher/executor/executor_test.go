package executor

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/extract"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

type fixedSnapshot struct{ snap *index.Snapshot }

func (f fixedSnapshot) Current() *index.Snapshot { return f.snap }

func build(t testing.TB, docs ...catalog.Document) *index.Snapshot {
	t.Helper()
	idx := index.NewMemoryIndex()
	for _, d := range docs {
		idx.Upsert(index.Analyze(tokenizer.Default(), d))
	}
	return idx.Freeze(index.Meta{Generation: 1})
}

func record(t testing.TB, kind catalog.Kind, r catalog.Record) catalog.Document {
	t.Helper()
	doc, err := extract.New(nil).Extract(kind, r)
	require.NoError(t, err)
	return doc
}

func newExecutor(snap *index.Snapshot) *Executor {
	return New(fixedSnapshot{snap}, parser.New(tokenizer.Default(), 100))
}

func search(t *testing.T, e *Executor, query string, limit, offset int, collections ...string) *SearchResult {
	t.Helper()
	res, err := e.Search(context.Background(), parser.Request{Query: query, Limit: limit, Offset: offset, Collections: collections})
	require.NoError(t, err)
	return res
}

func TestSearchFindsDocumentByName(t *testing.T) {
	snap := build(t,
		record(t, catalog.Models, catalog.Record{"id": "m1", "name": "Customer Model"}),
		record(t, catalog.Domains, catalog.Record{"id": "d1", "name": "Finance"}),
	)
	res := search(t, newExecutor(snap), "customer", 10, 0)

	require.Len(t, res.Hits, 1)
	hit := res.Hits[0]
	assert.Equal(t, "models:m1", hit.Ref)
	assert.Equal(t, "models", hit.Collection)
	assert.Equal(t, "m1", hit.ID)
	assert.Equal(t, "Customer Model", hit.Title)
	assert.Positive(t, hit.Score)
	assert.Equal(t, []string{"customer"}, hit.MatchedTerms)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, uint64(1), res.Generation)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	e := newExecutor(build(t))
	_, err := e.Search(context.Background(), parser.Request{Query: "", Limit: 10, Offset: 0})
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
	_, err = e.Search(context.Background(), parser.Request{Query: "   ", Limit: 10})
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
}

func TestSearchRanksByCoverageThenScoreThenRef(t *testing.T) {
	snap := build(t,
		record(t, catalog.Models, catalog.Record{"id": "both", "description": "customer account ledger entries kept for audit"}),
		record(t, catalog.Models, catalog.Record{"id": "name", "name": "Customer"}),
		record(t, catalog.Models, catalog.Record{"id": "desc", "description": "customer"}),
		record(t, catalog.Agreements, catalog.Record{"id": "desc", "description": "customer"}),
	)
	res := search(t, newExecutor(snap), "customer account", 10, 0)
	require.Len(t, res.Hits, 4)
	assert.Equal(t, "models:both", res.Hits[0].Ref)
	assert.Equal(t, "models:name", res.Hits[1].Ref, "name outweighs description")
	// equal scores fall back to ref order
	assert.Equal(t, "agreements:desc", res.Hits[2].Ref)
	assert.Equal(t, "models:desc", res.Hits[3].Ref)
}

func TestSearchPaginates(t *testing.T) {
	var docs []catalog.Document
	for i := 0; i < 25; i++ {
		docs = append(docs, record(t, catalog.Lexicon, catalog.Record{
			"id":   fmt.Sprintf("t%02d", i),
			"name": strings.Repeat("ledger ", 1+i%5) + "entry",
		}))
	}
	e := newExecutor(build(t, docs...))
	all := search(t, e, "ledger", 100, 0)
	require.Len(t, all.Hits, 25)

	var paged []Hit
	for offset := 0; offset < 25; offset += 10 {
		page := search(t, e, "ledger", 10, offset)
		assert.Equal(t, 25, page.Total)
		paged = append(paged, page.Hits...)
	}
	assert.Equal(t, all.Hits, paged)

	past := search(t, e, "ledger", 10, 40)
	assert.Empty(t, past.Hits)
	assert.Equal(t, 25, past.Total)
}

func TestSearchFiltersCollections(t *testing.T) {
	snap := build(t,
		record(t, catalog.Models, catalog.Record{"id": "m1", "name": "Customer"}),
		record(t, catalog.Lexicon, catalog.Record{"id": "l1", "name": "Customer"}),
	)
	e := newExecutor(snap)
	res := search(t, e, "customer", 10, 0, "glossary")
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "lexicon:l1", res.Hits[0].Ref)

	_, err := e.Search(context.Background(), parser.Request{Query: "customer", Limit: 10, Collections: []string{"nope"}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
}

func TestSearchIsSymmetricWithIndexing(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"Customer", "ÉTAT", "straße", "model-v2", "Données", "42", "x", "Agreement,", "ΣΊΣΥΦΟΣ", "naïve"}
	for i := 0; i < 200; i++ {
		var parts []string
		for n := 1 + rng.Intn(6); n > 0; n-- {
			parts = append(parts, words[rng.Intn(len(words))])
		}
		text := strings.Join(parts, " ")
		if len(tokenizer.Default().Terms(text)) == 0 {
			continue
		}
		snap := build(t, catalog.Document{
			Ref:    catalog.Ref{Kind: catalog.Reference, ID: "r1"},
			Fields: map[string]string{"name": text},
		})
		res := search(t, newExecutor(snap), text, 10, 0)
		require.NotEmpty(t, res.Hits, "query %q", text)
		assert.Equal(t, "reference:r1", res.Hits[0].Ref)
		assert.Positive(t, res.Hits[0].Score)
	}
}

func TestScoreIsMonotonicInTermFrequency(t *testing.T) {
	const length = 8
	prev := 0.0
	for tf := 1; tf <= length; tf++ {
		text := strings.TrimSpace(strings.Repeat("ledger ", tf) + strings.Repeat("filler ", length-tf))
		snap := build(t, record(t, catalog.Models, catalog.Record{"id": "m1", "description": text}))
		res := search(t, newExecutor(snap), "ledger", 10, 0)
		require.Len(t, res.Hits, 1)
		assert.GreaterOrEqual(t, res.Hits[0].Score, prev, "tf=%d", tf)
		prev = res.Hits[0].Score
	}
}

func TestSearchReadsOneSnapshot(t *testing.T) {
	engine := indexer.NewEngine(nil)
	e := New(engine, parser.New(tokenizer.Default(), 100))
	res := search(t, e, "customer", 10, 0)
	assert.Empty(t, res.Hits)
	assert.Zero(t, res.Generation)

	next := build(t, record(t, catalog.Models, catalog.Record{"id": "m1", "name": "Customer"}))
	require.NoError(t, engine.Publish(engine.Current(), next))
	res = search(t, e, "customer", 10, 0)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, uint64(1), res.Generation)
}

func TestSearchFindsCommonFieldsInEveryCollection(t *testing.T) {
	snap := build(t,
		record(t, catalog.Models, catalog.Record{"id": "CUSTMDL", "name": "Customer"}),
		record(t, catalog.Domains, catalog.Record{"id": "d1", "title": "Revenue Domain", "shortName": "SLS"}),
		record(t, catalog.Policies, catalog.Record{"id": "p1", "name": "Retention", "extendedDescription": "gdpr erasure", "domain": []any{"privacy"}}),
	)
	e := newExecutor(snap)
	for query, want := range map[string]string{
		"custmdl": "models:CUSTMDL",
		"revenue": "domains:d1",
		"sls":     "domains:d1",
		"gdpr":    "policies:p1",
		"privacy": "policies:p1",
	} {
		res := search(t, e, query, 10, 0)
		require.Len(t, res.Hits, 1, query)
		assert.Equal(t, want, res.Hits[0].Ref, query)
	}

	// an id match alone ranks below a name match for the same term
	snap = build(t,
		record(t, catalog.Models, catalog.Record{"id": "ledger", "name": "Accounts"}),
		record(t, catalog.Models, catalog.Record{"id": "m2", "name": "Ledger"}),
	)
	res := search(t, newExecutor(snap), "ledger", 10, 0)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "models:m2", res.Hits[0].Ref)
}
