// Package parser validates search requests and turns query text into terms
// using the same tokenizer the index was built with.
package parser

import (
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

// MaxQueryTerms bounds the distinct terms a plan carries. Terms past the
// bound are dropped rather than rejected, so any text, however long, still
// finds the documents it was taken from.
const MaxQueryTerms = 256

// Request is a search as received from a caller.
type Request struct {
	Query       string   `json:"query"`
	Collections []string `json:"collections,omitempty"`
	Limit       int      `json:"limit"`
	Offset      int      `json:"offset"`
}

// QueryPlan is a validated request.
type QueryPlan struct {
	RawQuery string
	// Terms are distinct, in the order they first appear in the query.
	Terms []string
	// Collections is empty when every collection is searched.
	Collections []catalog.Kind
	Limit       int
	Offset      int
}

type Parser struct {
	tok      *tokenizer.Tokenizer
	maxLimit int
}

func New(tok *tokenizer.Tokenizer, maxLimit int) *Parser {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &Parser{tok: tok, maxLimit: maxLimit}
}

// Parse rejects blank query text, a non-positive limit, a negative offset and
// unknown collection filters with ErrInvalidQuery. A limit above the maximum
// is capped, as are terms beyond MaxQueryTerms. Query text that tokenizes to
// nothing is valid and simply matches nothing.
func (p *Parser) Parse(req Request) (*QueryPlan, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.InvalidQuery("query text is empty")
	}
	if req.Limit <= 0 {
		return nil, apperrors.InvalidQuery("limit must be positive, got %d", req.Limit)
	}
	if req.Offset < 0 {
		return nil, apperrors.InvalidQuery("offset must not be negative, got %d", req.Offset)
	}
	kinds, err := ParseCollections(req.Collections)
	if err != nil {
		return nil, err
	}
	terms := p.tok.Terms(query)
	if len(terms) > MaxQueryTerms {
		terms = terms[:MaxQueryTerms]
	}
	return &QueryPlan{
		RawQuery:    req.Query,
		Terms:       terms,
		Collections: kinds,
		Limit:       min(req.Limit, p.maxLimit),
		Offset:      req.Offset,
	}, nil
}

// ParseCollections resolves a collection filter. Each entry may itself be a
// comma-separated list.
func ParseCollections(names []string) ([]catalog.Kind, error) {
	var kinds []catalog.Kind
	for _, name := range names {
		parsed, err := catalog.ParseKinds(name)
		if err != nil {
			return nil, apperrors.InvalidQuery("%s", err.Error())
		}
		for _, k := range parsed {
			if !slices.Contains(kinds, k) {
				kinds = append(kinds, k)
			}
		}
	}
	return kinds, nil
}
