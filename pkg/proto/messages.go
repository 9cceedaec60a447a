// Package proto defines the wire messages exchanged with the search daemon
// over its JSON-over-TCP RPC layer (see pkg/grpc) and decoded by searchctl
// from the HTTP API. Field names match the HTTP JSON bodies so one set of
// types serves both transports.
package proto

import "time"

// Method names registered by the daemon.
const (
	MethodSearch  = "CatalogSearch.Search"
	MethodSuggest = "CatalogSearch.Suggest"
	MethodStats   = "CatalogSearch.Stats"
	MethodReindex = "CatalogSearch.Reindex"
	MethodNotify  = "CatalogSearch.Notify"
	MethodJob     = "CatalogSearch.Job"
	MethodJobs    = "CatalogSearch.Jobs"
)

// ---------- Search ----------

type SearchRequest struct {
	Query       string   `json:"query"`
	Collections []string `json:"collections,omitempty"`
	Limit       int      `json:"limit"`
	Offset      int      `json:"offset"`
}

type SearchResponse struct {
	Query      string      `json:"query"`
	Terms      []string    `json:"terms"`
	Total      int         `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
	Generation uint64      `json:"generation"`
	Hits       []SearchHit `json:"hits"`
	Cached     bool        `json:"cached,omitempty"`
	LatencyMs  int64       `json:"latencyMs"`
}

// SearchHit is a single scored document in the result page.
type SearchHit struct {
	Ref          string   `json:"ref"`
	Collection   string   `json:"collection"`
	ID           string   `json:"id"`
	Title        string   `json:"title,omitempty"`
	Score        float64  `json:"score"`
	MatchedTerms []string `json:"matchedTerms"`
}

// ---------- Suggest ----------

type SuggestRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
}

type SuggestResponse struct {
	Prefix      string   `json:"prefix"`
	Suggestions []string `json:"suggestions"`
}

// ---------- Index ----------

type StatsRequest struct{}

type StatsResponse struct {
	TotalDocuments      int            `json:"totalDocuments"`
	TotalTerms          int            `json:"totalTerms"`
	TotalTokens         int64          `json:"totalTokens"`
	PerCollectionCounts map[string]int `json:"perCollectionCounts"`
	LastBuildDurationMs int64          `json:"lastBuildDurationMs"`
	LastBuiltAt         *time.Time     `json:"lastBuiltAt,omitempty"`
	Generation          uint64         `json:"generation"`
	LastJob             *Job           `json:"lastJob,omitempty"`
	RecordErrors        int            `json:"recordErrors"`
}

// ReindexRequest names the collections to rebuild. Empty means all.
type ReindexRequest struct {
	Collections []string `json:"collections,omitempty"`
}

// NotifyRequest announces a committed create, update or delete.
type NotifyRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Operation  string `json:"operation"`
}

// JobAck acknowledges an accepted reindex job.
type JobAck struct {
	JobID      string    `json:"jobId"`
	Scope      string    `json:"scope"`
	Seq        uint64    `json:"seq,omitempty"`
	State      string    `json:"state"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

type JobRequest struct {
	ID string `json:"id"`
}

type JobsRequest struct {
	Limit int `json:"limit"`
}

type JobsResponse struct {
	Jobs []Job `json:"jobs"`
}

// DocumentRef mirrors a document reference inside a job.
type DocumentRef struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// Job is the status of one reindex job.
type Job struct {
	ID          string           `json:"id"`
	Scope       string           `json:"scope"`
	Trigger     string           `json:"trigger,omitempty"`
	Collections []string         `json:"collections,omitempty"`
	Ref         *DocumentRef     `json:"ref,omitempty"`
	Operation   string           `json:"operation,omitempty"`
	Seq         uint64           `json:"seq,omitempty"`
	State       string           `json:"state"`
	Indexed     int              `json:"indexed"`
	Removed     int              `json:"removed"`
	Skipped     int              `json:"skipped"`
	Errors      []string         `json:"errors,omitempty"`
	Error       string           `json:"error,omitempty"`
	Generation  uint64           `json:"generation,omitempty"`
	PhaseMs     map[string]int64 `json:"phaseMs,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	FinishedAt  *time.Time       `json:"finishedAt,omitempty"`
}

// ErrorResponse is the HTTP error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
