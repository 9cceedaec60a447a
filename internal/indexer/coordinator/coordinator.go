// Package coordinator serializes index changes against concurrent queries.
//
// Mutations are resolved on per-document lanes and published strictly in the
// order they were accepted, so successive changes to one document can never
// land out of order. Full and collection builds run on a small pool, build in
// isolation and, at publish time, replay the mutations that were published
// while they were reading the source. Every publish goes through the Engine's
// generation guard while holding publishMu, so generations only grow.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/tracing"
)

// Triggers recorded on jobs.
const (
	TriggerStartup    = "startup"
	TriggerAPI        = "api"
	TriggerChange     = "change"
	TriggerCorruption = "corruption"
)

type Config struct {
	// Workers is the number of mutation lanes.
	Workers      int
	BuildWorkers int
	// QueueSize bounds each lane and the build queue.
	QueueSize       int
	VerifyOnPublish bool
	// VerifyInterval is how often the published snapshot is re-checked.
	// Zero disables the periodic check.
	VerifyInterval time.Duration
}

// JobAck acknowledges an accepted job. The job itself runs asynchronously.
type JobAck struct {
	JobID      string        `json:"jobId"`
	Scope      builder.Scope `json:"scope"`
	Seq        uint64        `json:"seq,omitempty"`
	State      builder.State `json:"state"`
	AcceptedAt time.Time     `json:"acceptedAt"`
}

type tracked struct {
	job  *builder.Job
	done chan struct{}
}

type mutation struct {
	seq    uint64
	change catalog.Change
	t      *tracked
}

type outcome struct {
	seq  uint64
	t    *tracked
	res  builder.Resolution
	err  error
	span *tracing.Span
}

type buildTask struct {
	t      *tracked
	ticket uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// journalEntry is a published mutation kept while builds are in flight.
type journalEntry struct {
	seq uint64
	ref catalog.Ref
	doc *index.Analyzed
}

type Coordinator struct {
	engine  *indexer.Engine
	builder *builder.Builder
	jobs    builder.JobStore
	sink    EventSink
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	verify  func(*index.Snapshot) error

	lanes    []chan mutation
	outcomes chan outcome
	builds   chan *buildTask
	events   chan Event
	sinkDone chan struct{}
	sinkOnce sync.Once

	started  atomic.Bool
	runCtx   context.Context
	cancel   context.CancelFunc
	stopped  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	seqMu   sync.Mutex
	nextSeq uint64

	// publishMu serializes every publish and guards the fields below it.
	publishMu    sync.Mutex
	publishedSeq uint64
	journal      []journalEntry
	active       map[string]uint64

	mu         sync.Mutex
	live       map[string]*tracked
	fullTicket uint64
	fullCancel context.CancelFunc
	lastBuild  *builder.Job
}

// New wires a coordinator. sink and m may be nil.
func New(engine *indexer.Engine, b *builder.Builder, jobs builder.JobStore, cfg Config, sink EventSink, m *metrics.Metrics) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BuildWorkers <= 0 {
		cfg.BuildWorkers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	c := &Coordinator{
		engine:   engine,
		builder:  b,
		jobs:     jobs,
		sink:     sink,
		cfg:      cfg,
		metrics:  m,
		logger:   slog.Default().With("component", "coordinator"),
		verify:   (*index.Snapshot).Verify,
		lanes:    make([]chan mutation, cfg.Workers),
		outcomes: make(chan outcome, cfg.QueueSize),
		builds:   make(chan *buildTask, cfg.QueueSize),
		stopped:  make(chan struct{}),
		active:   make(map[string]uint64),
		live:     make(map[string]*tracked),
	}
	for i := range c.lanes {
		c.lanes[i] = make(chan mutation, cfg.QueueSize)
	}
	if sink != nil {
		c.events = make(chan Event, cfg.QueueSize)
		c.sinkDone = make(chan struct{})
	}
	return c
}

// Start launches the lanes, the publisher, the build pool and the periodic
// verifier. They run until ctx is cancelled or Stop is called.
func (c *Coordinator) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.runCtx, c.cancel = context.WithCancel(ctx)
	for _, lane := range c.lanes {
		c.wg.Add(1)
		go c.runLane(lane)
	}
	c.wg.Add(1)
	go c.runPublisher()
	for range c.cfg.BuildWorkers {
		c.wg.Add(1)
		go c.runBuilds()
	}
	if c.cfg.VerifyInterval > 0 {
		c.wg.Add(1)
		go c.runVerifier()
	}
	if c.sink != nil {
		go c.runSink()
	}
	go func() {
		<-c.runCtx.Done()
		c.stopOnce.Do(func() { close(c.stopped) })
	}()
	c.logger.Info("coordinator started",
		"lanes", len(c.lanes),
		"build_workers", c.cfg.BuildWorkers,
		"verify_on_publish", c.cfg.VerifyOnPublish,
	)
}

// Stop cancels in-flight work, waits for the goroutines to exit and fails
// every job that had not finished.
func (c *Coordinator) Stop() {
	if !c.started.Load() {
		return
	}
	c.cancel()
	c.wg.Wait()
	if c.sink != nil {
		// nothing publishes any more; deliver what is queued
		c.sinkOnce.Do(func() { close(c.events) })
		<-c.sinkDone
	}

	c.mu.Lock()
	remaining := make([]*tracked, 0, len(c.live))
	for _, t := range c.live {
		remaining = append(remaining, t)
	}
	c.mu.Unlock()
	for _, t := range remaining {
		c.finish(t, 0, apperrors.ErrCoordinatorStopped)
	}
	c.logger.Info("coordinator stopped", "abandoned_jobs", len(remaining))
}

func (c *Coordinator) running() bool {
	if !c.started.Load() {
		return false
	}
	select {
	case <-c.stopped:
		return false
	default:
		return true
	}
}

// Notify accepts a committed change and schedules the reindex of the one
// document it names. It returns once the change is queued.
func (c *Coordinator) Notify(ctx context.Context, change catalog.Change) (JobAck, error) {
	change, err := change.Normalize()
	if err != nil {
		return JobAck{}, apperrors.New(apperrors.ErrInvalidInput, 400, err.Error())
	}
	if !c.running() {
		return JobAck{}, apperrors.ErrCoordinatorStopped
	}

	ref := change.Ref()
	job := builder.NewJob(uuid.NewString(), builder.ScopeMutation, []catalog.Kind{change.Kind})
	job.Ref = &ref
	job.Operation = change.Operation
	job.Trigger = TriggerChange
	t := &tracked{job: job, done: make(chan struct{})}
	c.save(ctx, job.Clone())

	lane := c.lanes[laneOf(ref, len(c.lanes))]
	c.seqMu.Lock()
	seq := c.nextSeq + 1
	job.Seq = seq
	c.track(t)
	select {
	case lane <- mutation{seq: seq, change: change, t: t}:
		c.nextSeq = seq
		c.seqMu.Unlock()
	case <-ctx.Done():
		c.seqMu.Unlock()
		c.finish(t, 0, ctx.Err())
		return JobAck{}, ctx.Err()
	case <-c.stopped:
		c.seqMu.Unlock()
		c.finish(t, 0, apperrors.ErrCoordinatorStopped)
		return JobAck{}, apperrors.ErrCoordinatorStopped
	}
	c.metrics.AddQueueDepth(1)

	c.logger.Debug("change accepted",
		"job_id", job.ID,
		"ref", ref.String(),
		"operation", change.Operation,
		"seq", seq,
	)
	return JobAck{
		JobID:      job.ID,
		Scope:      builder.ScopeMutation,
		Seq:        seq,
		State:      builder.StatePending,
		AcceptedAt: job.CreatedAt,
	}, nil
}

// Reindex schedules a rebuild of kinds. An empty kinds, or one naming every
// collection, is a full reindex, which supersedes any full reindex still
// running.
func (c *Coordinator) Reindex(ctx context.Context, kinds []catalog.Kind, trigger string) (JobAck, error) {
	scope := builder.ScopeCollection
	var scoped []catalog.Kind
	for _, k := range kinds {
		if !k.Valid() {
			return JobAck{}, apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown collection %q", k.String())
		}
		if !slices.Contains(scoped, k) {
			scoped = append(scoped, k)
		}
	}
	if len(scoped) == 0 || len(scoped) == len(catalog.Kinds()) {
		scope = builder.ScopeFull
		scoped = catalog.Kinds()
	}
	if !c.running() {
		return JobAck{}, apperrors.ErrCoordinatorStopped
	}

	job := builder.NewJob(uuid.NewString(), scope, scoped)
	job.Trigger = trigger
	t := &tracked{job: job, done: make(chan struct{})}
	task := &buildTask{t: t}
	task.ctx, task.cancel = context.WithCancel(c.runCtx)

	var superseded context.CancelFunc
	c.mu.Lock()
	if scope == builder.ScopeFull {
		c.fullTicket++
		task.ticket = c.fullTicket
		superseded = c.fullCancel
		c.fullCancel = task.cancel
	}
	c.live[job.ID] = t
	c.mu.Unlock()
	if superseded != nil {
		superseded()
	}
	c.save(ctx, job.Clone())

	select {
	case c.builds <- task:
	case <-ctx.Done():
		c.finish(t, 0, ctx.Err())
		return JobAck{}, ctx.Err()
	case <-c.stopped:
		c.finish(t, 0, apperrors.ErrCoordinatorStopped)
		return JobAck{}, apperrors.ErrCoordinatorStopped
	}

	c.logger.Info("reindex accepted",
		"job_id", job.ID,
		"scope", scope,
		"collections", catalog.Names(scoped),
		"trigger", trigger,
	)
	return JobAck{
		JobID:      job.ID,
		Scope:      scope,
		State:      builder.StatePending,
		AcceptedAt: job.CreatedAt,
	}, nil
}

// Job returns the current state of a job.
func (c *Coordinator) Job(ctx context.Context, id string) (builder.Job, error) {
	c.mu.Lock()
	t, ok := c.live[id]
	if ok {
		j := t.job.Clone()
		c.mu.Unlock()
		return j, nil
	}
	c.mu.Unlock()
	return c.jobs.Get(ctx, id)
}

// Jobs lists recent jobs, newest first, with running jobs at their live
// state.
func (c *Coordinator) Jobs(ctx context.Context, limit int) ([]builder.Job, error) {
	jobs, err := c.jobs.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range jobs {
		if t, ok := c.live[jobs[i].ID]; ok {
			jobs[i] = t.job.Clone()
		}
	}
	return jobs, nil
}

// WaitJob blocks until the job is terminal or ctx is done.
func (c *Coordinator) WaitJob(ctx context.Context, id string) (builder.Job, error) {
	c.mu.Lock()
	t, ok := c.live[id]
	c.mu.Unlock()
	if !ok {
		return c.jobs.Get(ctx, id)
	}
	select {
	case <-t.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return t.job.Clone(), nil
	case <-ctx.Done():
		return builder.Job{}, ctx.Err()
	}
}

// LastBuild returns the most recently finished full or collection job.
func (c *Coordinator) LastBuild() (builder.Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastBuild == nil {
		return builder.Job{}, false
	}
	return c.lastBuild.Clone(), true
}

// Verify checks the published snapshot and schedules a full reindex when it
// is corrupt.
func (c *Coordinator) Verify() error {
	snap := c.engine.Current()
	if err := c.verify(snap); err != nil {
		c.logger.Error("published snapshot failed verification",
			"generation", snap.Generation,
			"error", err,
		)
		c.rebuild(err)
		return err
	}
	return nil
}

func (c *Coordinator) runLane(lane <-chan mutation) {
	defer c.wg.Done()
	for {
		select {
		case <-c.runCtx.Done():
			return
		case m := <-lane:
			c.metrics.AddQueueDepth(-1)
			o := c.resolve(m)
			select {
			case c.outcomes <- o:
			case <-c.runCtx.Done():
				return
			}
		}
	}
}

func (c *Coordinator) resolve(m mutation) outcome {
	ctx, span := tracing.StartSpan(c.runCtx, "mutation", m.t.job.ID)
	c.advance(m.t, builder.StateExtracting)
	_, extracting := tracing.StartChildSpan(ctx, "extracting")
	res, err := c.builder.Resolve(ctx, m.change)
	extracting.End()
	if err == nil || recordLevel(err) {
		c.advance(m.t, builder.StateTokenizing)
	}
	return outcome{seq: m.seq, t: m.t, res: res, err: err, span: span}
}

// recordLevel reports whether err is tallied rather than failing the job.
func recordLevel(err error) bool {
	return errors.Is(err, apperrors.ErrMalformedRecord) || errors.Is(err, apperrors.ErrTimeout)
}

// runPublisher applies resolved mutations in seq order. Outcomes that
// arrive early wait in pending until the gap before them closes; contiguous
// runs are published as one generation.
func (c *Coordinator) runPublisher() {
	defer c.wg.Done()
	pending := make(map[uint64]outcome)
	next := uint64(1)
	for {
		select {
		case <-c.runCtx.Done():
			return
		case o := <-c.outcomes:
			pending[o.seq] = o
		drain:
			for {
				select {
				case o := <-c.outcomes:
					pending[o.seq] = o
				default:
					break drain
				}
			}
			var batch []outcome
			for {
				o, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				batch = append(batch, o)
				next++
			}
			if len(batch) > 0 {
				c.publishMutations(batch)
			}
		}
	}
}

type settled struct {
	t   *tracked
	err error
}

func (c *Coordinator) publishMutations(batch []outcome) {
	c.publishMu.Lock()
	base := c.engine.Current()
	var idx *index.MemoryIndex
	var results []settled
	var applied []*tracked
	for _, o := range batch {
		if o.err != nil && !recordLevel(o.err) {
			results = append(results, settled{t: o.t, err: o.err})
			continue
		}
		c.advance(o.t, builder.StatePublishing)
		doc := o.res.Doc
		if o.err != nil {
			c.metrics.ObserveRecordFailure(o.res.Ref.Kind.String(), recordFailureReason(o.err))
			c.logger.Warn("mutation record skipped", "job_id", o.t.job.ID, "ref", o.res.Ref.String(), "error", o.err)
			c.withJob(o.t, func(j *builder.Job) { j.Skip(o.err) })
			if errors.Is(o.err, apperrors.ErrTimeout) {
				results = append(results, settled{t: o.t})
				continue
			}
			// A malformed post-write record no longer describes the document.
			doc = nil
		}
		if idx == nil {
			idx = base.Thaw()
		}
		if doc != nil {
			idx.Upsert(*doc)
			c.withJob(o.t, func(j *builder.Job) { j.Indexed++ })
		} else if idx.Remove(o.res.Ref) {
			c.withJob(o.t, func(j *builder.Job) { j.Removed++ })
		}
		if o.res.Reason != "" {
			c.withJob(o.t, func(j *builder.Job) { j.Errors = append(j.Errors, o.res.Reason) })
		}
		if len(c.active) > 0 {
			c.journal = append(c.journal, journalEntry{seq: o.seq, ref: o.res.Ref, doc: doc})
		}
		applied = append(applied, o.t)
		results = append(results, settled{t: o.t})
	}
	lastSeq := batch[len(batch)-1].seq

	generation := base.Generation
	var publishErr error
	if idx != nil {
		next := idx.Freeze(index.Meta{
			Generation:    base.Generation + 1,
			BuiltAt:       base.BuiltAt,
			BuildDuration: base.BuildDuration,
			Seq:           lastSeq,
		})
		publishErr = c.checkAndPublish(base, next)
		if publishErr == nil {
			generation = next.Generation
			ids := make([]string, 0, len(applied))
			for _, t := range applied {
				ids = append(ids, t.job.ID)
			}
			c.emit(next, builder.ScopeMutation, ids)
		}
	}
	c.publishedSeq = lastSeq
	c.publishMu.Unlock()

	if publishErr != nil {
		for i := range results {
			if slices.Contains(applied, results[i].t) {
				results[i].err = publishErr
			}
		}
		if errors.Is(publishErr, apperrors.ErrIndexCorruption) {
			c.rebuild(publishErr)
		}
	}
	for i, r := range results {
		c.finish(r.t, generation, r.err)
		if span := batch[i].span; span != nil {
			span.End()
		}
	}
}

// checkAndPublish verifies next when configured and swaps it in. The caller
// holds publishMu.
func (c *Coordinator) checkAndPublish(base, next *index.Snapshot) error {
	if c.cfg.VerifyOnPublish {
		if err := c.verify(next); err != nil {
			c.metrics.ObservePublish("corrupt")
			return fmt.Errorf("verifying generation %d: %w", next.Generation, err)
		}
	}
	return c.engine.Publish(base, next)
}

func (c *Coordinator) runBuilds() {
	defer c.wg.Done()
	for {
		select {
		case <-c.runCtx.Done():
			return
		case task := <-c.builds:
			c.runBuild(task)
		}
	}
}

func (c *Coordinator) runBuild(task *buildTask) {
	defer task.cancel()
	t := task.t
	if c.superseded(task) {
		c.finish(t, 0, c.supersededError(t))
		return
	}

	c.publishMu.Lock()
	c.active[t.job.ID] = c.publishedSeq
	c.publishMu.Unlock()
	defer c.release(t.job.ID)

	ctx, span := tracing.StartSpan(task.ctx, "reindex", t.job.ID)
	work := t.job.Clone()
	c.logger.Info("reindex started", "job_id", work.ID, "scope", work.Scope, "collections", catalog.Names(work.Collections))

	res, err := c.builder.Build(ctx, &work, func(s builder.State) error {
		return c.advance(t, s)
	})
	c.withJob(t, func(j *builder.Job) {
		j.Indexed = work.Indexed
		j.Skipped = work.Skipped
		j.Errors = work.Errors
	})
	if err != nil {
		if c.superseded(task) {
			err = c.supersededError(t)
		}
		c.endSpan(t, span)
		c.finish(t, 0, err)
		return
	}

	if err := c.advance(t, builder.StatePublishing); err != nil {
		c.endSpan(t, span)
		c.finish(t, 0, err)
		return
	}
	_, publishing := tracing.StartChildSpan(ctx, "publishing")
	snap, err := c.publishBuild(task, res)
	publishing.End()
	c.endSpan(t, span)
	if err != nil {
		c.finish(t, 0, err)
		if errors.Is(err, apperrors.ErrIndexCorruption) && t.job.Trigger != TriggerCorruption {
			c.rebuild(err)
		}
		return
	}
	c.finish(t, snap.Generation, nil)
}

func (c *Coordinator) publishBuild(task *buildTask, res *builder.Result) (*index.Snapshot, error) {
	id := task.t.job.ID
	var fresh *index.MemoryIndex
	if task.ticket != 0 {
		fresh = index.NewMemoryIndex()
		for _, d := range res.Docs {
			fresh.Upsert(d)
		}
	}
	inScope := make(map[catalog.Kind]bool, len(res.Kinds))
	for _, k := range res.Kinds {
		inScope[k] = true
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if c.superseded(task) {
		return nil, c.supersededError(task.t)
	}
	base := c.engine.Current()
	idx := fresh
	if idx == nil {
		idx = base.Thaw()
		for _, k := range res.Kinds {
			idx.RemoveKind(k)
		}
		for _, d := range res.Docs {
			idx.Upsert(d)
		}
	}

	startSeq := c.active[id]
	replayed := 0
	for _, e := range c.journal {
		if e.seq <= startSeq || !inScope[e.ref.Kind] {
			continue
		}
		if e.doc != nil {
			idx.Upsert(*e.doc)
		} else {
			idx.Remove(e.ref)
		}
		replayed++
	}

	started := time.Now()
	c.mu.Lock()
	if task.t.job.StartedAt != nil {
		started = *task.t.job.StartedAt
	}
	c.mu.Unlock()
	next := idx.Freeze(index.Meta{
		Generation:    base.Generation + 1,
		BuiltAt:       time.Now().UTC(),
		BuildDuration: time.Since(started),
		Seq:           c.publishedSeq,
	})
	if err := c.checkAndPublish(base, next); err != nil {
		return nil, err
	}
	c.emit(next, task.t.job.Scope, []string{id})
	c.logger.Info("reindex published",
		"job_id", id,
		"generation", next.Generation,
		"documents", next.DocumentCount(),
		"terms", next.TermCount(),
		"replayed", replayed,
	)
	return next, nil
}

// release unregisters a build and drops journal entries no remaining build
// needs.
func (c *Coordinator) release(id string) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	delete(c.active, id)
	if len(c.active) == 0 {
		c.journal = nil
		return
	}
	floor := c.publishedSeq
	for _, s := range c.active {
		floor = min(floor, s)
	}
	keep := c.journal[:0]
	for _, e := range c.journal {
		if e.seq > floor {
			keep = append(keep, e)
		}
	}
	c.journal = keep
}

func (c *Coordinator) superseded(task *buildTask) bool {
	if task.ticket == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return task.ticket != c.fullTicket
}

func (c *Coordinator) supersededError(t *tracked) error {
	return fmt.Errorf("full reindex %s: %w", t.job.ID, apperrors.ErrSuperseded)
}

// rebuild schedules a full reindex in response to corruption. It never
// blocks the caller.
func (c *Coordinator) rebuild(cause error) {
	if !c.running() {
		return
	}
	go func() {
		c.logger.Error("index corruption detected, scheduling full reindex", "error", cause)
		if _, err := c.Reindex(c.runCtx, nil, TriggerCorruption); err != nil {
			c.logger.Error("failed to schedule recovery reindex", "error", err)
		}
	}()
}

func (c *Coordinator) runVerifier() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.VerifyInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.runCtx.Done():
			return
		case <-ticker.C:
			_ = c.Verify()
		}
	}
}

func (c *Coordinator) track(t *tracked) {
	c.mu.Lock()
	c.live[t.job.ID] = t
	c.mu.Unlock()
}

func (c *Coordinator) withJob(t *tracked, fn func(*builder.Job)) {
	c.mu.Lock()
	fn(t.job)
	c.mu.Unlock()
}

func (c *Coordinator) advance(t *tracked, s builder.State) error {
	c.mu.Lock()
	err := t.job.Transition(s)
	snap := t.job.Clone()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if snap.Scope != builder.ScopeMutation {
		c.logger.Debug("job advanced", "job_id", snap.ID, "state", s)
		c.save(c.runCtx, snap)
	}
	return nil
}

func (c *Coordinator) endSpan(t *tracked, span *tracing.Span) {
	span.End()
	phases := span.Durations()
	c.withJob(t, func(j *builder.Job) { j.PhaseMs = phases })
	span.Log(c.logger)
}

// finish moves a job to its terminal state, persists it and wakes waiters.
func (c *Coordinator) finish(t *tracked, generation uint64, err error) {
	c.mu.Lock()
	if t.job.State.Terminal() {
		c.mu.Unlock()
		return
	}
	if err != nil {
		t.job.Fail(err)
	} else {
		t.job.Generation = generation
		if terr := t.job.Transition(builder.StateDone); terr != nil {
			t.job.Fail(terr)
		}
	}
	snap := t.job.Clone()
	if snap.Scope != builder.ScopeMutation {
		last := snap
		c.lastBuild = &last
	}
	c.mu.Unlock()

	c.metrics.ObserveJob(string(snap.Scope), string(snap.State), snap.Duration())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	c.save(ctx, snap)
	cancel()

	c.mu.Lock()
	delete(c.live, snap.ID)
	close(t.done)
	c.mu.Unlock()

	attrs := []any{
		"job_id", snap.ID,
		"scope", snap.Scope,
		"state", snap.State,
		"indexed", snap.Indexed,
		"removed", snap.Removed,
		"skipped", snap.Skipped,
		"generation", snap.Generation,
		"duration_ms", snap.Duration().Milliseconds(),
	}
	switch {
	case snap.State == builder.StateFailed:
		c.logger.Warn("job failed", append(attrs, "error", snap.Error)...)
	case snap.Scope == builder.ScopeMutation:
		c.logger.Debug("job finished", attrs...)
	default:
		c.logger.Info("job finished", attrs...)
	}
}

func (c *Coordinator) save(ctx context.Context, job builder.Job) {
	if err := c.jobs.Save(ctx, job); err != nil {
		c.logger.Error("failed to persist job", "job_id", job.ID, "state", job.State, "error", err)
	}
}

func laneOf(ref catalog.Ref, n int) int {
	h := fnv.New32a()
	h.Write([]byte(ref.String()))
	return int(h.Sum32() % uint32(n))
}

func recordFailureReason(err error) string {
	if errors.Is(err, apperrors.ErrTimeout) {
		return "timeout"
	}
	return "malformed"
}
