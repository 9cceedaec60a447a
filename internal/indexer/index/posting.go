package index

import (
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
)

// Posting links a term to one field of one document.
type Posting struct {
	Ref           catalog.Ref `json:"ref"`
	Field         string      `json:"field"`
	Weight        float64     `json:"weight"`
	TermFrequency int         `json:"termFrequency"`
	FieldLength   int         `json:"fieldLength"`
	Positions     []int       `json:"positions,omitempty"`
}

// PostingList is ordered by document ref, then field.
type PostingList []Posting

// TermStat is a term with the number of documents containing it.
type TermStat struct {
	Term         string
	DocFrequency int
}

// docEntry is immutable once stored, so clones may share it.
type docEntry struct {
	title  string
	terms  map[string]struct{}
	tokens int
}
