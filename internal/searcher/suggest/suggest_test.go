package suggest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

type fixed struct{ snap *index.Snapshot }

func (f fixed) Current() *index.Snapshot { return f.snap }

func engineWith(names ...string) *Engine {
	idx := index.NewMemoryIndex()
	for i, name := range names {
		idx.Upsert(index.Analyze(tokenizer.Default(), catalog.Document{
			Ref:    catalog.Ref{Kind: catalog.Models, ID: fmt.Sprintf("m%d", i)},
			Fields: map[string]string{"name": name},
		}))
	}
	return New(fixed{idx.Freeze(index.Meta{Generation: 1})}, 50)
}

func TestSuggestCompletesPrefix(t *testing.T) {
	e := engineWith("Customer Model")
	got, err := e.Suggest(context.Background(), "cust", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"customer"}, got)
}

func TestSuggestOrdersByLengthThenFrequency(t *testing.T) {
	e := engineWith(
		"customers",
		"customer ledger",
		"customer account",
		"custody",
		"custom",
		"custody chain",
	)
	got, err := e.Suggest(context.Background(), "CUST", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"custom", "custody", "customer", "customers"}, got)
}

func TestSuggestHonoursLimit(t *testing.T) {
	e := engineWith("alpha", "alphabet", "alps", "alpine")
	got, err := e.Suggest(context.Background(), "al", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"alps", "alpha"}, got)

	_, err = e.Suggest(context.Background(), "al", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
}

func TestSuggestBlankPrefix(t *testing.T) {
	e := engineWith("customer")
	for _, prefix := range []string{"", "   ", "\t"} {
		got, err := e.Suggest(context.Background(), prefix, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestSuggestNoMatch(t *testing.T) {
	e := engineWith("customer")
	got, err := e.Suggest(context.Background(), "zz", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
