package coordinator

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/health"
)

// Stats extends the published snapshot's statistics with the outcome of the
// last full or collection build.
type Stats struct {
	indexer.Stats
	LastJob      *builder.Job `json:"lastJob,omitempty"`
	RecordErrors int          `json:"recordErrors"`
}

func (c *Coordinator) Stats() Stats {
	st := Stats{Stats: c.engine.Stats()}
	if job, ok := c.LastBuild(); ok {
		st.LastJob = &job
		st.RecordErrors = job.Skipped
	}
	return st
}

// HealthCheck reports the index down until the first generation is
// published, and degraded while the latest build has failed.
func (c *Coordinator) HealthCheck() health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		gen := c.engine.Current().Generation
		if gen == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no index published yet"}
		}
		if job, ok := c.LastBuild(); ok && job.State == builder.StateFailed {
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: fmt.Sprintf("serving generation %d; last %s reindex failed: %s", gen, job.Scope, job.Error),
			}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("generation %d", gen)}
	}
}
