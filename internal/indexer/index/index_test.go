package index

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

var tok = tokenizer.Default()

func model(id string, fields map[string]string) catalog.Document {
	return catalog.Document{Ref: catalog.Ref{Kind: catalog.Models, ID: id}, Title: fields["name"], Fields: fields}
}

func TestAnalyze(t *testing.T) {
	a := Analyze(tok, model("m1", map[string]string{
		"name":        "Customer Model",
		"description": "customer data for the customer domain",
	}))

	assert.Equal(t, 8, a.Tokens)
	require.Len(t, a.Postings["customer"], 2)
	desc, name := a.Postings["customer"][0], a.Postings["customer"][1]
	assert.Equal(t, "description", desc.Field)
	assert.Equal(t, 2, desc.TermFrequency)
	assert.Equal(t, 6, desc.FieldLength)
	assert.Equal(t, []int{0, 4}, desc.Positions)
	assert.Equal(t, 1.0, desc.Weight)
	assert.Equal(t, "name", name.Field)
	assert.Equal(t, 3.0, name.Weight)
	assert.Equal(t, 2, name.FieldLength)
}

func TestUpsertLookupRemove(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(Analyze(tok, model("m2", map[string]string{"name": "Customer Account"})))
	m.Upsert(Analyze(tok, model("m1", map[string]string{"name": "Customer Model"})))

	postings := m.Lookup("customer")
	require.Len(t, postings, 2)
	assert.Equal(t, "m1", postings[0].Ref.ID)
	assert.Equal(t, "m2", postings[1].Ref.ID)
	assert.Equal(t, 2, m.DocumentFrequency("customer"))
	assert.Equal(t, 3, m.TermCount())
	assert.Equal(t, 2, m.DocumentCount())
	assert.Equal(t, "Customer Model", m.Title(catalog.Ref{Kind: catalog.Models, ID: "m1"}))

	assert.True(t, m.Remove(catalog.Ref{Kind: catalog.Models, ID: "m1"}))
	assert.False(t, m.Remove(catalog.Ref{Kind: catalog.Models, ID: "m1"}))
	assert.Empty(t, m.Lookup("model"))
	assert.Len(t, m.Lookup("customer"), 1)
	require.NoError(t, m.Verify())
}

func TestUpsertReplacesRatherThanMerges(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(Analyze(tok, model("m1", map[string]string{"name": "Customer Model"})))
	m.Upsert(Analyze(tok, model("m1", map[string]string{"name": "Supplier Model"})))

	assert.Empty(t, m.Lookup("customer"))
	assert.Len(t, m.Lookup("supplier"), 1)
	assert.Equal(t, 1, m.DocumentCount())
	assert.Equal(t, []string{"model", "supplier"}, m.TermsOf(catalog.Ref{Kind: catalog.Models, ID: "m1"}))
	require.NoError(t, m.Verify())
}

func TestRoundTripRestoresState(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(Analyze(tok, model("m1", map[string]string{"name": "Customer Model", "description": "orders"})))
	m.Upsert(Analyze(tok, model("m2", map[string]string{"name": "Order Line"})))
	before := m.Clone()

	doc := catalog.Document{
		Ref:    catalog.Ref{Kind: catalog.Agreements, ID: "a1"},
		Fields: map[string]string{"title": "Customer order agreement", "terms": "net 30"},
	}
	m.Upsert(Analyze(tok, doc))
	require.True(t, m.Remove(doc.Ref))

	assert.Equal(t, before.postings, m.postings)
	assert.Equal(t, before.docs, m.docs)
	assert.Equal(t, before.byKind, m.byKind)
	assert.Equal(t, before.totalTokens, m.totalTokens)
}

func TestUpsertIdempotent(t *testing.T) {
	doc := model("m1", map[string]string{"name": "Customer Model", "domain": "Sales"})
	once := NewMemoryIndex()
	once.Upsert(Analyze(tok, doc))
	twice := NewMemoryIndex()
	twice.Upsert(Analyze(tok, doc))
	twice.Upsert(Analyze(tok, doc))

	assert.Equal(t, once.postings, twice.postings)
	assert.Equal(t, once.byKind, twice.byKind)
	assert.Equal(t, once.totalTokens, twice.totalTokens)
}

func TestRemoveKind(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(Analyze(tok, model("m1", map[string]string{"name": "Customer"})))
	m.Upsert(Analyze(tok, catalog.Document{
		Ref:    catalog.Ref{Kind: catalog.Domains, ID: "d1"},
		Fields: map[string]string{"name": "Customer"},
	}))

	assert.Equal(t, 1, m.RemoveKind(catalog.Models))
	assert.Equal(t, map[catalog.Kind]int{catalog.Domains: 1}, m.CountsByKind())
	assert.Len(t, m.Lookup("customer"), 1)
	require.NoError(t, m.Verify())
}

func TestRandomizedMutationsKeepInvariant(t *testing.T) {
	words := []string{"customer", "order", "model", "agreement", "ledger", "invoice", "party", "sales", "crm", "zz"}
	kinds := catalog.Kinds()
	r := rand.New(rand.NewPCG(7, 11))
	m := NewMemoryIndex()
	live := make(map[catalog.Ref]bool)

	for step := 0; step < 2000; step++ {
		ref := catalog.Ref{Kind: kinds[r.IntN(len(kinds))], ID: fmt.Sprintf("d%d", r.IntN(40))}
		if r.IntN(3) == 0 {
			m.Remove(ref)
			delete(live, ref)
		} else {
			fields := make(map[string]string)
			for _, f := range ref.Kind.Schema().Fields {
				if r.IntN(2) == 0 {
					continue
				}
				var text string
				for i := 0; i < 1+r.IntN(6); i++ {
					text += words[r.IntN(len(words))] + " "
				}
				fields[f.Name] = text
			}
			m.Upsert(Analyze(tok, catalog.Document{Ref: ref, Fields: fields}))
			live[ref] = true
		}
		if step%100 == 0 {
			require.NoError(t, m.Verify(), "step %d", step)
		}
	}
	require.NoError(t, m.Verify())
	assert.Equal(t, len(live), m.DocumentCount())

	// every posting is reachable from its document's term set and back
	for term, docs := range m.postings {
		for ref := range docs {
			assert.Contains(t, m.TermsOf(ref), term)
		}
	}
	for ref := range live {
		for _, term := range m.TermsOf(ref) {
			found := false
			for _, p := range m.Lookup(term) {
				if p.Ref == ref {
					found = true
					break
				}
			}
			assert.True(t, found, "%s missing posting for %q", ref, term)
		}
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(Analyze(tok, model("m1", map[string]string{"name": "Customer Model"})))
	m.postings["ghost"] = map[catalog.Ref][]Posting{
		{Kind: catalog.Models, ID: "gone"}: {{Ref: catalog.Ref{Kind: catalog.Models, ID: "gone"}, Field: "name", TermFrequency: 1, FieldLength: 1}},
	}

	err := m.Verify()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIndexCorruption))

	m = NewMemoryIndex()
	m.Upsert(Analyze(tok, model("m1", map[string]string{"name": "Customer Model"})))
	m.byKind[catalog.Lexicon] = 3
	assert.True(t, errors.Is(m.Verify(), apperrors.ErrIndexCorruption))
}

func TestFreezeAndThaw(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(Analyze(tok, model("m1", map[string]string{"name": "Customer Model"})))
	snap := m.Freeze(Meta{Generation: 3})

	assert.Panics(t, func() { m.Remove(catalog.Ref{Kind: catalog.Models, ID: "m1"}) })

	next := snap.Thaw()
	next.Remove(catalog.Ref{Kind: catalog.Models, ID: "m1"})
	assert.Equal(t, 0, next.DocumentCount())
	assert.Equal(t, 1, snap.DocumentCount())
	assert.Len(t, snap.Lookup("customer"), 1)
	assert.Equal(t, uint64(3), snap.Generation)
}

func TestEmptySnapshot(t *testing.T) {
	s := Empty()
	assert.Zero(t, s.Generation)
	assert.Zero(t, s.DocumentCount())
	assert.Empty(t, s.Terms())
	assert.Empty(t, s.WithPrefix("a"))
}

func TestSnapshotPrefix(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(Analyze(tok, model("m1", map[string]string{"name": "Customer Model customs"})))
	m.Upsert(Analyze(tok, model("m2", map[string]string{"name": "Customer cut"})))
	snap := m.Freeze(Meta{Generation: 1})

	got := snap.WithPrefix("cust")
	assert.Equal(t, []TermStat{{"customer", 2}, {"customs", 1}}, got)
	assert.Empty(t, snap.WithPrefix("zzz"))
	assert.Len(t, snap.WithPrefix(""), snap.TermCount())
}
