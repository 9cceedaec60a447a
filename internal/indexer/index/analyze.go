package index

import (
	"maps"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/tokenizer"
)

// Analyzed is a tokenized document ready to be inserted. Producing one does
// not touch any index, so documents can be analyzed concurrently.
type Analyzed struct {
	Ref      catalog.Ref
	Title    string
	Postings map[string][]Posting
	Tokens   int
}

// Analyze tokenizes every field of doc and groups the occurrences by term.
func Analyze(tok *tokenizer.Tokenizer, doc catalog.Document) Analyzed {
	a := Analyzed{
		Ref:      doc.Ref,
		Title:    doc.Title,
		Postings: make(map[string][]Posting),
	}
	for _, field := range slices.Sorted(maps.Keys(doc.Fields)) {
		tokens := tok.Tokenize(doc.Fields[field])
		if len(tokens) == 0 {
			continue
		}
		a.Tokens += len(tokens)
		weight := doc.Weight(field)

		perTerm := make(map[string]*Posting)
		order := make([]string, 0, len(tokens))
		for _, t := range tokens {
			p, exists := perTerm[t.Term]
			if !exists {
				p = &Posting{
					Ref:         doc.Ref,
					Field:       field,
					Weight:      weight,
					FieldLength: len(tokens),
					Positions:   make([]int, 0, 2),
				}
				perTerm[t.Term] = p
				order = append(order, t.Term)
			}
			p.TermFrequency++
			p.Positions = append(p.Positions, t.Position)
		}
		// fields are visited in sorted order, so each term's slice stays sorted by field
		for _, term := range order {
			a.Postings[term] = append(a.Postings[term], *perTerm[term])
		}
	}
	return a
}
