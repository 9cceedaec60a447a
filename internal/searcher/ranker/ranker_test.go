package ranker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
)

func ref(id string) catalog.Ref {
	return catalog.Ref{Kind: catalog.Models, ID: id}
}

func posting(id, field string, tf, length int, weight float64) index.Posting {
	return index.Posting{Ref: ref(id), Field: field, Weight: weight, TermFrequency: tf, FieldLength: length}
}

func TestFieldScore(t *testing.T) {
	assert.InDelta(t, 3.0/math.Log(2), FieldScore(1, 3, 1), 1e-9)
	assert.InDelta(t, 2*1.5/math.Log(11), FieldScore(2, 1.5, 10), 1e-9)
	assert.Zero(t, FieldScore(0, 3, 4))
	assert.Zero(t, FieldScore(1, 3, 0))
}

func TestFieldScoreIsMonotonicInFrequencyAndWeight(t *testing.T) {
	for length := 1; length <= 50; length++ {
		prev := 0.0
		for tf := 1; tf <= length; tf++ {
			s := FieldScore(tf, 1, length)
			assert.GreaterOrEqual(t, s, prev, "tf=%d length=%d", tf, length)
			prev = s
		}
		assert.Greater(t, FieldScore(1, 2, length), FieldScore(1, 1, length))
	}
}

func TestRankPrefersMoreMatchedTerms(t *testing.T) {
	postings := map[string]index.PostingList{
		"customer": {
			posting("a", "name", 5, 5, 3),
			posting("b", "description", 1, 20, 1),
		},
		"model": {
			posting("b", "description", 1, 20, 1),
		},
	}
	docs := Rank([]string{"customer", "model"}, postings)
	Sort(docs)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].Ref.ID, "two matched terms beat a higher score")
	assert.Equal(t, []string{"customer", "model"}, docs[0].MatchedTerms)
	assert.Greater(t, docs[1].Score, docs[0].Score)
}

func TestRankSumsFieldsOfOneDocument(t *testing.T) {
	postings := map[string]index.PostingList{
		"customer": {
			posting("a", "description", 1, 9, 1),
			posting("a", "name", 1, 2, 3),
		},
	}
	docs := Rank([]string{"customer"}, postings)
	require.Len(t, docs, 1)
	assert.Equal(t, []string{"customer"}, docs[0].MatchedTerms)
	assert.InDelta(t, FieldScore(1, 1, 9)+FieldScore(1, 3, 2), docs[0].Score, 1e-9)
}

func TestTiesBreakOnRef(t *testing.T) {
	postings := map[string]index.PostingList{
		"x": {
			posting("c", "name", 1, 1, 1),
			posting("a", "name", 1, 1, 1),
			posting("b", "name", 1, 1, 1),
		},
	}
	docs := Rank([]string{"x"}, postings)
	Sort(docs)
	assert.Equal(t, "a", docs[0].Ref.ID)
	assert.Equal(t, "b", docs[1].Ref.ID)
	assert.Equal(t, "c", docs[2].Ref.ID)
}

func TestTopKMatchesSort(t *testing.T) {
	var list index.PostingList
	for i := 0; i < 40; i++ {
		list = append(list, posting(string(rune('a'+i%26))+string(rune('a'+i/26)), "name", 1+i%4, 1+i%7, 1))
	}
	docs := Rank([]string{"t"}, map[string]index.PostingList{"t": list})
	sorted := append([]ScoredDoc(nil), docs...)
	Sort(sorted)

	for _, k := range []int{1, 5, 40, 100} {
		top := TopK(docs, k)
		assert.Equal(t, sorted[:min(k, len(sorted))], top, "k=%d", k)
	}
	assert.Empty(t, TopK(docs, 0))
}
