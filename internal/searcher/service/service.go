// Package service is the transport-neutral facade over the query, suggest
// and indexing components. The HTTP handlers and the RPC server both call it,
// so validation, caching and metrics behave the same on either transport.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/coordinator"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/proto"
)

// Indexer is the part of the coordinator the facade drives.
type Indexer interface {
	Notify(ctx context.Context, change catalog.Change) (coordinator.JobAck, error)
	Reindex(ctx context.Context, kinds []catalog.Kind, trigger string) (coordinator.JobAck, error)
	Job(ctx context.Context, id string) (builder.Job, error)
	Jobs(ctx context.Context, limit int) ([]builder.Job, error)
	Stats() coordinator.Stats
}

type Snapshots interface {
	Current() *index.Snapshot
}

type Service struct {
	snapshots Snapshots
	executor  *executor.Executor
	suggester *suggest.Engine
	cache     *cache.QueryCache
	indexer   Indexer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New wires the facade. queryCache and m may be nil.
func New(snapshots Snapshots, exec *executor.Executor, sug *suggest.Engine, queryCache *cache.QueryCache, idx Indexer, m *metrics.Metrics) *Service {
	return &Service{
		snapshots: snapshots,
		executor:  exec,
		suggester: sug,
		cache:     queryCache,
		indexer:   idx,
		metrics:   m,
		logger:    slog.Default().With("component", "search-service"),
	}
}

// Search validates and runs req against the current snapshot. Transports
// fill in their default limit before calling; a limit below one is rejected.
func (s *Service) Search(ctx context.Context, req proto.SearchRequest) (*proto.SearchResponse, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	plan, err := s.executor.Parse(parser.Request{
		Query:       req.Query,
		Collections: req.Collections,
		Limit:       req.Limit,
		Offset:      req.Offset,
	})
	if err != nil {
		s.metrics.ObserveSearch("invalid", "none", time.Since(start), 0)
		return nil, err
	}

	snap := s.snapshots.Current()
	var (
		result *executor.SearchResult
		cached bool
	)
	compute := func() (*executor.SearchResult, error) {
		return s.executor.Execute(ctx, plan, snap)
	}
	if s.cache != nil {
		result, cached, err = s.cache.GetOrCompute(ctx, plan, snap.Generation, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		s.metrics.ObserveSearch("error", cacheStatus(s.cache != nil, cached), time.Since(start), 0)
		log.Error("search execution failed", "query", req.Query, "error", err)
		return nil, err
	}

	elapsed := time.Since(start)
	resp := searchResponse(result, plan.RawQuery, cached, elapsed)
	resultType := "hit"
	if resp.Total == 0 {
		resultType = "zero_result"
	}
	s.metrics.ObserveSearch(resultType, cacheStatus(s.cache != nil, cached), elapsed, resp.Total)
	log.Info("search completed",
		"query", req.Query,
		"total", resp.Total,
		"returned", len(resp.Hits),
		"generation", resp.Generation,
		"cached", cached,
		"latency_ms", resp.LatencyMs,
	)
	return resp, nil
}

// Suggest completes prefix.
func (s *Service) Suggest(ctx context.Context, req proto.SuggestRequest) (*proto.SuggestResponse, error) {
	terms, err := s.suggester.Suggest(ctx, req.Prefix, req.Limit)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidQuery) {
			s.metrics.ObserveSuggest("invalid")
		} else {
			s.metrics.ObserveSuggest("error")
		}
		return nil, err
	}
	if len(terms) == 0 {
		s.metrics.ObserveSuggest("empty")
	} else {
		s.metrics.ObserveSuggest("hit")
	}
	return &proto.SuggestResponse{Prefix: req.Prefix, Suggestions: terms}, nil
}

func (s *Service) Stats(context.Context) *proto.StatsResponse {
	st := s.indexer.Stats()
	resp := &proto.StatsResponse{
		TotalDocuments:      st.TotalDocuments,
		TotalTerms:          st.TotalTerms,
		TotalTokens:         st.TotalTokens,
		PerCollectionCounts: st.PerCollectionCounts,
		LastBuildDurationMs: st.LastBuildDurationMs,
		LastBuiltAt:         st.LastBuiltAt,
		Generation:          st.Generation,
		RecordErrors:        st.RecordErrors,
	}
	if st.LastJob != nil {
		job := JobMessage(*st.LastJob)
		resp.LastJob = &job
	}
	return resp
}

// Reindex accepts a rebuild of the named collections, or of everything when
// none are named.
func (s *Service) Reindex(ctx context.Context, req proto.ReindexRequest) (*proto.JobAck, error) {
	var kinds []catalog.Kind
	for _, name := range req.Collections {
		parsed, err := catalog.ParseKinds(name)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, err.Error())
		}
		kinds = append(kinds, parsed...)
	}
	ack, err := s.indexer.Reindex(ctx, kinds, coordinator.TriggerAPI)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("reindex accepted",
		"job_id", ack.JobID,
		"scope", ack.Scope,
		"collections", req.Collections,
	)
	msg := ackMessage(ack)
	return &msg, nil
}

// Notify queues the reindex of the one document a committed change names.
func (s *Service) Notify(ctx context.Context, req proto.NotifyRequest, source string) (*proto.JobAck, error) {
	kind, err := catalog.ParseKind(req.Collection)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, err.Error())
	}
	ack, err := s.indexer.Notify(ctx, catalog.Change{
		Kind:      kind,
		ID:        req.ID,
		Operation: catalog.Operation(req.Operation),
	})
	if err != nil {
		return nil, err
	}
	op, _ := catalog.ParseOperation(req.Operation)
	s.metrics.ObserveChange(source, string(op))
	msg := ackMessage(ack)
	return &msg, nil
}

func (s *Service) Job(ctx context.Context, req proto.JobRequest) (*proto.Job, error) {
	job, err := s.indexer.Job(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	msg := JobMessage(job)
	return &msg, nil
}

// Jobs lists recent jobs, newest first.
func (s *Service) Jobs(ctx context.Context, req proto.JobsRequest) (*proto.JobsResponse, error) {
	if req.Limit < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must not be negative, got %d", req.Limit)
	}
	if req.Limit == 0 {
		req.Limit = 20
	}
	jobs, err := s.indexer.Jobs(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	resp := &proto.JobsResponse{Jobs: make([]proto.Job, len(jobs))}
	for i, j := range jobs {
		resp.Jobs[i] = JobMessage(j)
	}
	return resp, nil
}

// CacheStats reports hit and miss counts, or ok=false when caching is off.
func (s *Service) CacheStats() (hits, misses int64, ok bool) {
	if s.cache == nil {
		return 0, 0, false
	}
	hits, misses = s.cache.Stats()
	return hits, misses, true
}

// InvalidateCache drops every cached result.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusServiceUnavailable, "caching is disabled")
	}
	return s.cache.Invalidate(ctx)
}

func cacheStatus(enabled, hit bool) string {
	switch {
	case !enabled:
		return "disabled"
	case hit:
		return "hit"
	default:
		return "miss"
	}
}
