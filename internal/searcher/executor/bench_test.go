package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/parser"
)

func BenchmarkSearch(b *testing.B) {
	descriptions := []string{
		"customer account ledger entries kept for audit",
		"data sharing agreement between finance and sales",
		"retention policy for invoice records",
		"reference currency codes maintained by treasury",
	}
	docs := make([]catalog.Document, 0, 5000)
	for i := 0; i < 5000; i++ {
		docs = append(docs, record(b, catalog.Models, catalog.Record{
			"id":          fmt.Sprintf("m%04d", i),
			"name":        fmt.Sprintf("Model %d", i),
			"description": descriptions[i%len(descriptions)],
		}))
	}
	e := newExecutor(build(b, docs...))
	ctx := context.Background()

	for _, q := range []string{"customer", "customer account", "finance agreement policy"} {
		b.Run(q, func(b *testing.B) {
			req := parser.Request{Query: q, Limit: 10}
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := e.Search(ctx, req); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
