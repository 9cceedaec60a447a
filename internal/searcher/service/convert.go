package service

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/coordinator"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/proto"
)

// searchResponse copies result, which may be shared with other callers
// through the cache, and echoes the caller's own query text.
func searchResponse(result *executor.SearchResult, query string, cached bool, elapsed time.Duration) *proto.SearchResponse {
	resp := &proto.SearchResponse{
		Query:      query,
		Terms:      append([]string{}, result.Terms...),
		Total:      result.Total,
		Limit:      result.Limit,
		Offset:     result.Offset,
		Generation: result.Generation,
		Hits:       make([]proto.SearchHit, len(result.Hits)),
		Cached:     cached,
		LatencyMs:  elapsed.Milliseconds(),
	}
	for i, h := range result.Hits {
		resp.Hits[i] = proto.SearchHit{
			Ref:          h.Ref,
			Collection:   h.Collection,
			ID:           h.ID,
			Title:        h.Title,
			Score:        h.Score,
			MatchedTerms: append([]string{}, h.MatchedTerms...),
		}
	}
	return resp
}

func ackMessage(ack coordinator.JobAck) proto.JobAck {
	return proto.JobAck{
		JobID:      ack.JobID,
		Scope:      string(ack.Scope),
		Seq:        ack.Seq,
		State:      string(ack.State),
		AcceptedAt: ack.AcceptedAt,
	}
}

// JobMessage converts a job to its wire form.
func JobMessage(j builder.Job) proto.Job {
	msg := proto.Job{
		ID:         j.ID,
		Scope:      string(j.Scope),
		Trigger:    j.Trigger,
		Operation:  string(j.Operation),
		Seq:        j.Seq,
		State:      string(j.State),
		Indexed:    j.Indexed,
		Removed:    j.Removed,
		Skipped:    j.Skipped,
		Errors:     j.Errors,
		Error:      j.Error,
		Generation: j.Generation,
		PhaseMs:    j.PhaseMs,
		CreatedAt:  j.CreatedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
	}
	for _, k := range j.Collections {
		msg.Collections = append(msg.Collections, k.String())
	}
	if j.Ref != nil {
		msg.Ref = &proto.DocumentRef{Collection: j.Ref.Kind.String(), ID: j.Ref.ID}
	}
	return msg
}
