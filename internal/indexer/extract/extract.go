// Package extract flattens raw collection records into indexable documents
// using each collection's static field table.
package extract

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

// Extractor is safe for concurrent use once built.
type Extractor struct {
	overrides map[catalog.Kind]map[string]float64
}

// New returns an Extractor applying per-collection weight overrides.
func New(overrides map[catalog.Kind]map[string]float64) *Extractor {
	copied := make(map[catalog.Kind]map[string]float64, len(overrides))
	for k, fields := range overrides {
		copied[k] = maps.Clone(fields)
	}
	return &Extractor{overrides: copied}
}

// ParseOverrides converts config weight overrides keyed by collection name.
func ParseOverrides(raw map[string]map[string]float64) (map[catalog.Kind]map[string]float64, error) {
	out := make(map[catalog.Kind]map[string]float64, len(raw))
	for name, fields := range raw {
		kind, err := catalog.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("weight overrides: %w", err)
		}
		for field, w := range fields {
			if w < 0 {
				return nil, fmt.Errorf("weight overrides: %s.%s is negative", name, field)
			}
		}
		out[kind] = fields
	}
	return out, nil
}

// Extract maps record onto kind's field table. Fields absent from the record
// are skipped; a record without an id fails with ErrMalformedRecord.
func (e *Extractor) Extract(kind catalog.Kind, record catalog.Record) (catalog.Document, error) {
	if !kind.Valid() {
		return catalog.Document{}, apperrors.Malformed("unknown collection kind %d", uint8(kind))
	}
	if record == nil {
		return catalog.Document{}, apperrors.Malformed("%s record is null", kind)
	}
	schema := kind.Schema()

	id := schema.ID(record)
	if id == "" {
		return catalog.Document{}, apperrors.Malformed("%s record has none of %v", kind, schema.IDKeys)
	}

	doc := catalog.Document{
		Ref:    catalog.Ref{Kind: kind, ID: id},
		Fields: make(map[string]string, len(schema.Fields)),
	}
	for _, f := range schema.Fields {
		v, ok := record[f.Name]
		if !ok {
			continue
		}
		if text := strings.TrimSpace(flatten(v)); text != "" {
			doc.Fields[f.Name] = text
		}
	}
	doc.Title = schema.Title(record)
	if doc.Title == "" {
		doc.Title = id
	}
	if o := e.overrides[kind]; len(o) > 0 {
		doc.WeightOverrides = maps.Clone(o)
	}
	return doc, nil
}

// flatten renders a JSON value as text. Arrays are joined, objects
// contribute their values in key order, booleans and nulls are dropped.
func flatten(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(t, " ")
	case map[string]any:
		keys := slices.Sorted(maps.Keys(t))
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := flatten(t[k]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return catalog.Scalar(v)
	}
}
