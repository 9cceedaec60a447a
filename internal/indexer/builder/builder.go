// Package builder implements the extraction and tokenization stages of a
// reindex: listing collections from the source store for full and
// collection-scoped builds, and resolving the post-write state of a single
// record for mutation-triggered reindexes. Publishing is left to the caller.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/tracing"
)

// Extractor turns a raw record into a Document.
type Extractor interface {
	Extract(kind catalog.Kind, record catalog.Record) (catalog.Document, error)
}

type Config struct {
	// ExtractTimeout bounds the work on a single record. Exceeding it skips
	// the record rather than failing the job.
	ExtractTimeout time.Duration
	// VisibilityWait bounds how long a mutation waits for a freshly written
	// record to become readable; VisibilityPoll is the interval between reads.
	VisibilityWait time.Duration
	VisibilityPoll time.Duration
	Parallelism    int
}

type Builder struct {
	store     source.Store
	extractor Extractor
	tok       *tokenizer.Tokenizer
	cfg       Config
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(store source.Store, extractor Extractor, tok *tokenizer.Tokenizer, cfg Config, m *metrics.Metrics) *Builder {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		store:     store,
		extractor: extractor,
		tok:       tok,
		cfg:       cfg,
		metrics:   m,
		logger:    slog.Default().With("component", "builder"),
	}
}

// Tokenizer returns the tokenizer documents are analyzed with.
func (b *Builder) Tokenizer() *tokenizer.Tokenizer {
	return b.tok
}

// Result is the output of a collection walk.
type Result struct {
	Kinds []catalog.Kind
	Docs  []index.Analyzed
}

// Advance is called as the job enters each phase.
type Advance func(State) error

// Build walks the job's collections. Record-level problems are tallied on
// job; a collection that cannot be listed fails the whole build with an
// error wrapping ErrSourceUnavailable.
func (b *Builder) Build(ctx context.Context, job *Job, advance Advance) (*Result, error) {
	kinds := job.Collections
	if len(kinds) == 0 {
		return nil, fmt.Errorf("job %s names no collections: %w", job.ID, apperrors.ErrInvalidInput)
	}

	if err := advance(StateExtracting); err != nil {
		return nil, err
	}
	extractCtx, span := tracing.StartChildSpan(ctx, "extracting")
	lists := make([][]catalog.Record, len(kinds))
	g, gctx := errgroup.WithContext(extractCtx)
	for i, kind := range kinds {
		g.Go(func() error {
			records, err := b.store.ListRecords(gctx, kind)
			if err != nil {
				if !errors.Is(err, apperrors.ErrSourceUnavailable) && ctx.Err() == nil {
					err = fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
				}
				return fmt.Errorf("listing %s: %w", kind, err)
			}
			lists[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End()
		return nil, err
	}

	var docs []catalog.Document
	positions := make(map[catalog.Ref]int)
	for i, kind := range kinds {
		for n, record := range lists[i] {
			if err := ctx.Err(); err != nil {
				span.End()
				return nil, err
			}
			doc, err := b.extract(ctx, kind, record)
			if err != nil {
				if ctx.Err() != nil {
					span.End()
					return nil, ctx.Err()
				}
				job.Skip(fmt.Errorf("%s[%d]: %w", kind, n, err))
				b.metrics.ObserveRecordFailure(kind.String(), failureReason(err))
				b.logger.Warn("skipping record", "job_id", job.ID, "collection", kind, "position", n, "error", err)
				continue
			}
			if at, dup := positions[doc.Ref]; dup {
				b.logger.Debug("duplicate record id, keeping the later one", "ref", doc.Ref.String())
				docs[at] = doc
				continue
			}
			positions[doc.Ref] = len(docs)
			docs = append(docs, doc)
		}
	}
	span.SetAttr("records", len(docs))
	span.End()

	if err := advance(StateTokenizing); err != nil {
		return nil, err
	}
	_, span = tracing.StartChildSpan(ctx, "tokenizing")
	defer span.End()
	analyzed := make([]index.Analyzed, len(docs))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Parallelism)
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			analyzed[i] = index.Analyze(b.tok, docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	span.SetAttr("documents", len(analyzed))
	job.Indexed = len(analyzed)
	return &Result{Kinds: kinds, Docs: analyzed}, nil
}

// Resolution is the index change a single mutation maps to.
type Resolution struct {
	Ref catalog.Ref
	// Doc is nil when the document must be removed.
	Doc *index.Analyzed
	// Reason explains a removal that the operation did not ask for.
	Reason string
}

// Resolve reads the post-write state of change's record. Deletes never
// touch the store. A create or update whose record does not become visible
// within VisibilityWait resolves to a removal, since the store is the source
// of truth. Timeouts and malformed records come back as errors wrapping
// ErrTimeout or ErrMalformedRecord for the caller to tally.
func (b *Builder) Resolve(ctx context.Context, change catalog.Change) (Resolution, error) {
	ref := change.Ref()
	if change.Operation == catalog.OpDelete {
		return Resolution{Ref: ref}, nil
	}

	record, err := b.awaitRecord(ctx, change)
	if errors.Is(err, apperrors.ErrRecordNotFound) {
		return Resolution{Ref: ref, Reason: "record not visible in source"}, nil
	}
	if err != nil {
		return Resolution{Ref: ref}, err
	}

	doc, err := b.extract(ctx, change.Kind, record)
	if err != nil {
		return Resolution{Ref: ref}, err
	}
	if doc.Ref != ref {
		return Resolution{Ref: ref}, apperrors.Malformed("record fetched for %s carries id %q", ref, doc.Ref.ID)
	}
	analyzed := index.Analyze(b.tok, doc)
	return Resolution{Ref: ref, Doc: &analyzed}, nil
}

func (b *Builder) awaitRecord(ctx context.Context, change catalog.Change) (catalog.Record, error) {
	attempts := 1
	if b.cfg.VisibilityPoll > 0 && b.cfg.VisibilityWait > 0 {
		attempts += int(b.cfg.VisibilityWait / b.cfg.VisibilityPoll)
	}
	return resilience.RetryValue(ctx, "visibility "+change.Ref().String(), resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialDelay:   b.cfg.VisibilityPoll,
		MaxDelay:       b.cfg.VisibilityPoll,
		Multiplier:     1,
		JitterFraction: 0.05,
		Retryable: func(err error) bool {
			return errors.Is(err, apperrors.ErrRecordNotFound)
		},
	}, func() (catalog.Record, error) {
		return resilience.TimeoutValue(ctx, b.cfg.ExtractTimeout, "get "+change.Ref().String(), func(ctx context.Context) (catalog.Record, error) {
			return b.store.GetRecord(ctx, change.Kind, change.ID)
		})
	})
}

func (b *Builder) extract(ctx context.Context, kind catalog.Kind, record catalog.Record) (catalog.Document, error) {
	return resilience.TimeoutValue(ctx, b.cfg.ExtractTimeout, "extract "+kind.String(), func(context.Context) (catalog.Document, error) {
		return b.extractor.Extract(kind, record)
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrMalformedRecord):
		return "malformed"
	case errors.Is(err, apperrors.ErrTimeout):
		return "timeout"
	default:
		return "other"
	}
}
