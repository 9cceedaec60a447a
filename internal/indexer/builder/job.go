package builder

import (
	"fmt"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
)

// Scope says what a reindex job covers.
type Scope string

const (
	ScopeFull       Scope = "full"
	ScopeCollection Scope = "collection"
	ScopeMutation   Scope = "mutation"
)

// State is a reindex job's position in its lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateExtracting State = "extracting"
	StateTokenizing State = "tokenizing"
	StatePublishing State = "publishing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

var transitions = map[State][]State{
	StatePending:    {StateExtracting, StateFailed},
	StateExtracting: {StateTokenizing, StateFailed},
	StateTokenizing: {StatePublishing, StateFailed},
	StatePublishing: {StateDone, StateFailed},
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

func (s State) CanTransition(to State) bool {
	return slices.Contains(transitions[s], to)
}

const maxErrorSamples = 10

// Job is the record of one reindex. The coordinator owns the live value;
// stores and API callers only ever see copies.
type Job struct {
	ID          string            `json:"id"`
	Scope       Scope             `json:"scope"`
	Trigger     string            `json:"trigger,omitempty"`
	Collections []catalog.Kind    `json:"collections,omitempty"`
	Ref         *catalog.Ref      `json:"ref,omitempty"`
	Operation   catalog.Operation `json:"operation,omitempty"`
	Seq         uint64            `json:"seq,omitempty"`
	State       State             `json:"state"`
	Indexed     int               `json:"indexed"`
	Removed     int               `json:"removed"`
	Skipped     int               `json:"skipped"`
	Errors      []string          `json:"errors,omitempty"`
	Error       string            `json:"error,omitempty"`
	Generation  uint64            `json:"generation,omitempty"`
	PhaseMs     map[string]int64  `json:"phaseMs,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	FinishedAt  *time.Time        `json:"finishedAt,omitempty"`
}

// NewJob returns a pending job.
func NewJob(id string, scope Scope, kinds []catalog.Kind) *Job {
	return &Job{
		ID:          id,
		Scope:       scope,
		Collections: slices.Clone(kinds),
		State:       StatePending,
		CreatedAt:   time.Now().UTC(),
	}
}

// Transition moves the job forward, stamping start and finish times.
func (j *Job) Transition(to State) error {
	if !j.State.CanTransition(to) {
		return fmt.Errorf("job %s: illegal transition %s -> %s", j.ID, j.State, to)
	}
	now := time.Now().UTC()
	if j.State == StatePending {
		j.StartedAt = &now
	}
	if to.Terminal() {
		j.FinishedAt = &now
	}
	j.State = to
	return nil
}

// Fail moves the job to Failed from any non-terminal state.
func (j *Job) Fail(err error) {
	if j.State.Terminal() {
		return
	}
	j.Error = err.Error()
	_ = j.Transition(StateFailed)
}

// Skip tallies one record-level failure, keeping a bounded sample.
func (j *Job) Skip(err error) {
	j.Skipped++
	if len(j.Errors) < maxErrorSamples {
		j.Errors = append(j.Errors, err.Error())
	}
}

// Duration is how long the job ran, or has run so far.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	if j.FinishedAt == nil {
		return time.Since(*j.StartedAt)
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// Clone returns a deep copy safe to hand out.
func (j *Job) Clone() Job {
	c := *j
	c.Collections = slices.Clone(j.Collections)
	c.Errors = slices.Clone(j.Errors)
	if j.Ref != nil {
		ref := *j.Ref
		c.Ref = &ref
	}
	if j.PhaseMs != nil {
		c.PhaseMs = make(map[string]int64, len(j.PhaseMs))
		for k, v := range j.PhaseMs {
			c.PhaseMs[k] = v
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}
