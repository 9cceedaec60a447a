package index

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

// MemoryIndex is a mutable inverted index. It is owned by a single writer
// until Freeze hands it to readers as a Snapshot; after that it must not be
// mutated and Clone is the way to derive the next version.
type MemoryIndex struct {
	postings    map[string]map[catalog.Ref][]Posting
	docs        map[catalog.Ref]*docEntry
	byKind      map[catalog.Kind]int
	totalTokens int64
	frozen      bool
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		postings: make(map[string]map[catalog.Ref][]Posting),
		docs:     make(map[catalog.Ref]*docEntry),
		byKind:   make(map[catalog.Kind]int),
	}
}

// Upsert replaces whatever was indexed for a.Ref with a. Cost is
// proportional to the distinct terms of the old and new versions.
func (m *MemoryIndex) Upsert(a Analyzed) {
	m.mustBeMutable()
	m.Remove(a.Ref)

	entry := &docEntry{
		title:  a.Title,
		terms:  make(map[string]struct{}, len(a.Postings)),
		tokens: a.Tokens,
	}
	for term, list := range a.Postings {
		if len(list) == 0 {
			continue
		}
		docs, exists := m.postings[term]
		if !exists {
			docs = make(map[catalog.Ref][]Posting)
			m.postings[term] = docs
		}
		docs[a.Ref] = list
		entry.terms[term] = struct{}{}
	}
	m.docs[a.Ref] = entry
	m.byKind[a.Ref.Kind]++
	m.totalTokens += int64(a.Tokens)
}

// Remove purges every posting of ref. It reports whether ref was indexed.
func (m *MemoryIndex) Remove(ref catalog.Ref) bool {
	m.mustBeMutable()
	entry, exists := m.docs[ref]
	if !exists {
		return false
	}
	for term := range entry.terms {
		docs := m.postings[term]
		delete(docs, ref)
		if len(docs) == 0 {
			delete(m.postings, term)
		}
	}
	delete(m.docs, ref)
	if m.byKind[ref.Kind]--; m.byKind[ref.Kind] <= 0 {
		delete(m.byKind, ref.Kind)
	}
	m.totalTokens -= int64(entry.tokens)
	return true
}

// RemoveKind drops every document of one collection and returns how many
// were removed.
func (m *MemoryIndex) RemoveKind(kind catalog.Kind) int {
	m.mustBeMutable()
	var refs []catalog.Ref
	for ref := range m.docs {
		if ref.Kind == kind {
			refs = append(refs, ref)
		}
	}
	for _, ref := range refs {
		m.Remove(ref)
	}
	return len(refs)
}

// Lookup returns the postings for an already-normalized term.
func (m *MemoryIndex) Lookup(term string) PostingList {
	docs, exists := m.postings[term]
	if !exists {
		return nil
	}
	refs := make([]catalog.Ref, 0, len(docs))
	n := 0
	for ref, list := range docs {
		refs = append(refs, ref)
		n += len(list)
	}
	slices.SortFunc(refs, catalog.Ref.Compare)

	result := make(PostingList, 0, n)
	for _, ref := range refs {
		result = append(result, docs[ref]...)
	}
	return result
}

func (m *MemoryIndex) Contains(ref catalog.Ref) bool {
	_, ok := m.docs[ref]
	return ok
}

// Title returns the display title recorded for ref.
func (m *MemoryIndex) Title(ref catalog.Ref) string {
	if e, ok := m.docs[ref]; ok {
		return e.title
	}
	return ""
}

// TermsOf returns the sorted term set of ref.
func (m *MemoryIndex) TermsOf(ref catalog.Ref) []string {
	e, ok := m.docs[ref]
	if !ok {
		return nil
	}
	terms := make([]string, 0, len(e.terms))
	for t := range e.terms {
		terms = append(terms, t)
	}
	slices.Sort(terms)
	return terms
}

func (m *MemoryIndex) DocumentFrequency(term string) int {
	return len(m.postings[term])
}

func (m *MemoryIndex) DocumentCount() int {
	return len(m.docs)
}

func (m *MemoryIndex) TermCount() int {
	return len(m.postings)
}

func (m *MemoryIndex) TotalTokens() int64 {
	return m.totalTokens
}

// CountsByKind returns the number of documents per collection.
func (m *MemoryIndex) CountsByKind() map[catalog.Kind]int {
	out := make(map[catalog.Kind]int, len(m.byKind))
	for k, n := range m.byKind {
		out[k] = n
	}
	return out
}

// Clone returns an independent mutable copy. Posting slices and document
// entries are never modified in place, so they are shared.
func (m *MemoryIndex) Clone() *MemoryIndex {
	c := &MemoryIndex{
		postings:    make(map[string]map[catalog.Ref][]Posting, len(m.postings)),
		docs:        make(map[catalog.Ref]*docEntry, len(m.docs)),
		byKind:      make(map[catalog.Kind]int, len(m.byKind)),
		totalTokens: m.totalTokens,
	}
	for term, docs := range m.postings {
		inner := make(map[catalog.Ref][]Posting, len(docs))
		for ref, list := range docs {
			inner[ref] = list
		}
		c.postings[term] = inner
	}
	for ref, e := range m.docs {
		c.docs[ref] = e
	}
	for k, n := range m.byKind {
		c.byKind[k] = n
	}
	return c
}

// Verify checks that the term and document maps agree and that the
// counters match them. Any mismatch is reported as ErrIndexCorruption.
func (m *MemoryIndex) Verify() error {
	byKind := make(map[catalog.Kind]int)
	var tokens int64
	for ref, e := range m.docs {
		byKind[ref.Kind]++
		tokens += int64(e.tokens)
		for term := range e.terms {
			list := m.postings[term][ref]
			if len(list) == 0 {
				return corruption("document %s lists term %q without a posting", ref, term)
			}
			for _, p := range list {
				if p.Ref != ref {
					return corruption("posting under %q for %s carries ref %s", term, ref, p.Ref)
				}
			}
		}
	}
	for term, docs := range m.postings {
		if len(docs) == 0 {
			return corruption("term %q has an empty posting list", term)
		}
		for ref := range docs {
			e, ok := m.docs[ref]
			if !ok {
				return corruption("term %q references missing document %s", term, ref)
			}
			if _, ok := e.terms[term]; !ok {
				return corruption("term %q has postings for %s but the document does not list it", term, ref)
			}
		}
	}
	for k, n := range byKind {
		if m.byKind[k] != n {
			return corruption("collection %s counter is %d, want %d", k, m.byKind[k], n)
		}
	}
	if len(byKind) != len(m.byKind) {
		return corruption("collection counters cover %d kinds, want %d", len(m.byKind), len(byKind))
	}
	if tokens != m.totalTokens {
		return corruption("token counter is %d, want %d", m.totalTokens, tokens)
	}
	return nil
}

func corruption(format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrIndexCorruption, http.StatusInternalServerError, format, args...)
}

func (m *MemoryIndex) mustBeMutable() {
	if m.frozen {
		panic(fmt.Sprintf("index: mutation of a frozen index (%d documents)", len(m.docs)))
	}
}
