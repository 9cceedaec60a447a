package index

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
)

// Meta describes how a snapshot came to be.
type Meta struct {
	Generation    uint64
	BuiltAt       time.Time
	BuildDuration time.Duration
	// Seq is the last mutation sequence number reflected in the snapshot.
	Seq uint64
}

// Snapshot is a read-only, complete version of the index. Readers may hold
// one for as long as they like; publishing a newer one never changes it.
type Snapshot struct {
	Meta
	idx *MemoryIndex

	termsOnce sync.Once
	terms     []TermStat
}

// Empty returns the generation-zero snapshot used before the first build.
func Empty() *Snapshot {
	return NewMemoryIndex().Freeze(Meta{})
}

// Freeze turns m into a Snapshot. m must not be used for writes afterwards.
func (m *MemoryIndex) Freeze(meta Meta) *Snapshot {
	m.frozen = true
	return &Snapshot{Meta: meta, idx: m}
}

// Thaw returns a mutable copy to derive the next snapshot from.
func (s *Snapshot) Thaw() *MemoryIndex {
	return s.idx.Clone()
}

func (s *Snapshot) Lookup(term string) PostingList     { return s.idx.Lookup(term) }
func (s *Snapshot) Contains(ref catalog.Ref) bool      { return s.idx.Contains(ref) }
func (s *Snapshot) Title(ref catalog.Ref) string       { return s.idx.Title(ref) }
func (s *Snapshot) TermsOf(ref catalog.Ref) []string   { return s.idx.TermsOf(ref) }
func (s *Snapshot) DocumentFrequency(term string) int  { return s.idx.DocumentFrequency(term) }
func (s *Snapshot) DocumentCount() int                 { return s.idx.DocumentCount() }
func (s *Snapshot) TermCount() int                     { return s.idx.TermCount() }
func (s *Snapshot) TotalTokens() int64                 { return s.idx.TotalTokens() }
func (s *Snapshot) CountsByKind() map[catalog.Kind]int { return s.idx.CountsByKind() }
func (s *Snapshot) Verify() error                      { return s.idx.Verify() }

// Terms returns every term with its document frequency, sorted by term.
// The table is built on first use and shared by later callers.
func (s *Snapshot) Terms() []TermStat {
	s.termsOnce.Do(func() {
		terms := make([]TermStat, 0, len(s.idx.postings))
		for term, docs := range s.idx.postings {
			terms = append(terms, TermStat{Term: term, DocFrequency: len(docs)})
		}
		slices.SortFunc(terms, func(a, b TermStat) int {
			return strings.Compare(a.Term, b.Term)
		})
		s.terms = terms
	})
	return s.terms
}

// WithPrefix returns the slice of Terms starting with prefix.
func (s *Snapshot) WithPrefix(prefix string) []TermStat {
	terms := s.Terms()
	lo, _ := slices.BinarySearchFunc(terms, prefix, func(t TermStat, p string) int {
		return strings.Compare(t.Term, p)
	})
	hi := lo
	for hi < len(terms) && strings.HasPrefix(terms[hi].Term, prefix) {
		hi++
	}
	return terms[lo:hi]
}
