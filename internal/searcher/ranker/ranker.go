// Package ranker scores candidate documents and orders them.
//
// A document's score is the sum, over every query term and every field the
// term occurs in, of
//
//	termFrequency * fieldWeight / ln(1 + fieldLength)
//
// so it grows with term frequency and field weight and is damped by field
// length. Documents are ordered by the number of distinct query terms they
// match (more first), then by score (higher first), then by ref ascending.
package ranker

import (
	"cmp"
	"math"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
)

type ScoredDoc struct {
	Ref   catalog.Ref
	Score float64
	// MatchedTerms follow query order.
	MatchedTerms []string
}

// FieldScore is one posting's contribution to a document's score.
func FieldScore(termFrequency int, weight float64, fieldLength int) float64 {
	if termFrequency <= 0 || fieldLength <= 0 {
		return 0
	}
	return float64(termFrequency) * weight / math.Log1p(float64(fieldLength))
}

// Rank scores every document with at least one posting in postingsPerTerm.
// terms fixes the order of MatchedTerms. The result is unordered; use TopK
// or Sort.
func Rank(terms []string, postingsPerTerm map[string]index.PostingList) []ScoredDoc {
	byRef := make(map[catalog.Ref]*ScoredDoc)
	for _, term := range terms {
		postings := postingsPerTerm[term]
		for _, p := range postings {
			doc, ok := byRef[p.Ref]
			if !ok {
				doc = &ScoredDoc{Ref: p.Ref}
				byRef[p.Ref] = doc
			}
			doc.Score += FieldScore(p.TermFrequency, p.Weight, p.FieldLength)
			// Postings for one term are grouped by ref, so only the last
			// entry needs checking.
			if n := len(doc.MatchedTerms); n == 0 || doc.MatchedTerms[n-1] != term {
				doc.MatchedTerms = append(doc.MatchedTerms, term)
			}
		}
	}
	out := make([]ScoredDoc, 0, len(byRef))
	for _, doc := range byRef {
		out = append(out, *doc)
	}
	return out
}

// Compare orders a before b when a ranks higher.
func Compare(a, b ScoredDoc) int {
	if c := cmp.Compare(len(b.MatchedTerms), len(a.MatchedTerms)); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return a.Ref.Compare(b.Ref)
}

// Sort orders docs in place, best first.
func Sort(docs []ScoredDoc) {
	slices.SortFunc(docs, Compare)
}
