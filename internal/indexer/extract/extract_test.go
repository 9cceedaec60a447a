package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

func TestExtractModel(t *testing.T) {
	e := New(nil)
	doc, err := e.Extract(catalog.Models, catalog.Record{
		"id":          "m1",
		"name":        "Customer Model",
		"shortName":   "CUST",
		"description": "  ",
		"domain":      []any{"Sales", "CRM"},
		"changes":     []any{map[string]any{"date": "2024-01-01", "note": "initial"}},
		"owner":       "ignored",
		"deprecated":  true,
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.Ref{Kind: catalog.Models, ID: "m1"}, doc.Ref)
	assert.Equal(t, "Customer Model", doc.Title)
	assert.Equal(t, map[string]string{
		"id":        "m1",
		"name":      "Customer Model",
		"shortName": "CUST",
		"domain":    "Sales CRM",
		"changes":   "2024-01-01 initial",
	}, doc.Fields)
	assert.Nil(t, doc.WeightOverrides)
}

func TestExtractIDFallbacks(t *testing.T) {
	e := New(nil)

	doc, err := e.Extract(catalog.Applications, catalog.Record{"shortName": "crm", "name": "CRM"})
	require.NoError(t, err)
	assert.Equal(t, "crm", doc.Ref.ID)

	doc, err = e.Extract(catalog.Policies, catalog.Record{"id": float64(42), "title": "Retention"})
	require.NoError(t, err)
	assert.Equal(t, "42", doc.Ref.ID)
	assert.Equal(t, "Retention", doc.Title)

	doc, err = e.Extract(catalog.Lexicon, catalog.Record{"term": "Customer", "definition": "A buyer"})
	require.NoError(t, err)
	assert.Equal(t, "Customer", doc.Ref.ID)
}

func TestExtractMalformed(t *testing.T) {
	e := New(nil)
	tests := []struct {
		name   string
		kind   catalog.Kind
		record catalog.Record
	}{
		{"nil record", catalog.Models, nil},
		{"no id", catalog.Models, catalog.Record{"description": "orphan"}},
		{"blank id", catalog.Domains, catalog.Record{"id": "   "}},
		{"unknown kind", catalog.KindUnknown, catalog.Record{"id": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(tt.kind, tt.record)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrMalformedRecord))
		})
	}
}

func TestExtractIDOnlyRecord(t *testing.T) {
	doc, err := New(nil).Extract(catalog.Reference, catalog.Record{"id": "r1", "owner": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "r1"}, doc.Fields)
	assert.Equal(t, "r1", doc.Title)
}

func TestExtractCommonFieldsInEveryCollection(t *testing.T) {
	e := New(nil)
	tests := []struct {
		kind   catalog.Kind
		record catalog.Record
		want   map[string]string
	}{
		{catalog.Models, catalog.Record{"id": "CUSTMDL"}, map[string]string{"id": "CUSTMDL"}},
		{catalog.Domains, catalog.Record{"id": "d1", "title": "Revenue Domain", "shortName": "SLS"},
			map[string]string{"id": "d1", "title": "Revenue Domain", "shortName": "SLS"}},
		{catalog.Policies, catalog.Record{"id": "p1", "extendedDescription": "gdpr retention", "domain": []any{"privacy"}},
			map[string]string{"id": "p1", "extendedDescription": "gdpr retention", "domain": "privacy"}},
		{catalog.Applications, catalog.Record{"id": "a1", "title": "Billing", "changes": []any{"v2"}},
			map[string]string{"id": "a1", "title": "Billing", "changes": "v2"}},
		{catalog.Reference, catalog.Record{"id": "r1", "shortName": "ISO"},
			map[string]string{"id": "r1", "shortName": "ISO"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			doc, err := e.Extract(tt.kind, tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Fields)
		})
	}
}

func TestExtractOverrides(t *testing.T) {
	overrides, err := ParseOverrides(map[string]map[string]float64{"models": {"description": 2.5}})
	require.NoError(t, err)

	doc, err := New(overrides).Extract(catalog.Models, catalog.Record{"id": "m1", "description": "x"})
	require.NoError(t, err)
	assert.Equal(t, 2.5, doc.Weight("description"))

	_, err = ParseOverrides(map[string]map[string]float64{"widgets": {"x": 1}})
	assert.Error(t, err)
	_, err = ParseOverrides(map[string]map[string]float64{"models": {"x": -1}})
	assert.Error(t, err)
}
