// Package source reads catalog records from the store the CRUD layer writes
// to. The store is eventually consistent: a record written a moment ago may
// not be visible yet, and the indexer is expected to cope with that.
package source

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
)

// Store is the read side of the catalog persistence layer.
type Store interface {
	// ListRecords returns every record of a collection. A collection that
	// has never been written is empty, not an error.
	ListRecords(ctx context.Context, kind catalog.Kind) ([]catalog.Record, error)
	// GetRecord returns one record or an error wrapping ErrRecordNotFound.
	GetRecord(ctx context.Context, kind catalog.Kind, id string) (catalog.Record, error)
}
