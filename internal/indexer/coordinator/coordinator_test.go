package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/extract"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/health"
)

type harness struct {
	engine *indexer.Engine
	coord  *Coordinator
}

func newHarness(t *testing.T, store source.Store, cfg Config, sink EventSink) *harness {
	t.Helper()
	engine := indexer.NewEngine(nil)
	b := builder.New(store, extract.New(nil), tokenizer.Default(), builder.Config{
		ExtractTimeout: time.Second,
		VisibilityWait: 20 * time.Millisecond,
		VisibilityPoll: 5 * time.Millisecond,
		Parallelism:    2,
	}, nil)
	c := New(engine, b, builder.NewMemoryJobStore(500), cfg, sink, nil)
	c.Start(context.Background())
	t.Cleanup(c.Stop)
	return &harness{engine: engine, coord: c}
}

func seed(store *source.MemoryStore, kind catalog.Kind, n int) {
	for i := 0; i < n; i++ {
		store.Put(kind, catalog.Record{
			"id":   fmt.Sprintf("%s-%d", kind, i),
			"name": fmt.Sprintf("%s entry %d", kind, i),
		})
	}
}

func waitJob(t *testing.T, c *Coordinator, id string) builder.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := c.WaitJob(ctx, id)
	require.NoError(t, err)
	return job
}

func fullReindex(t *testing.T, c *Coordinator) builder.Job {
	t.Helper()
	ack, err := c.Reindex(context.Background(), nil, TriggerStartup)
	require.NoError(t, err)
	job := waitJob(t, c, ack.JobID)
	require.Equal(t, builder.StateDone, job.State, job.Error)
	return job
}

func notify(t *testing.T, c *Coordinator, kind catalog.Kind, id string, op catalog.Operation) JobAck {
	t.Helper()
	ack, err := c.Notify(context.Background(), catalog.Change{Kind: kind, ID: id, Operation: op})
	require.NoError(t, err)
	return ack
}

func TestFullReindexIndexesEveryRecord(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Models, 30)
	seed(store, catalog.Agreements, 20)
	seed(store, catalog.Domains, 12)
	h := newHarness(t, store, Config{}, nil)

	job := fullReindex(t, h.coord)
	assert.Equal(t, builder.ScopeFull, job.Scope)
	assert.Equal(t, 62, job.Indexed)
	assert.Equal(t, uint64(1), job.Generation)
	assert.Contains(t, job.PhaseMs, "extracting")
	assert.Contains(t, job.PhaseMs, "publishing")

	stats := h.engine.Stats()
	assert.Equal(t, 62, stats.TotalDocuments)
	assert.Equal(t, 30, stats.PerCollectionCounts["models"])
	assert.Equal(t, 0, stats.PerCollectionCounts["lexicon"])

	last, ok := h.coord.LastBuild()
	require.True(t, ok)
	assert.Equal(t, job.ID, last.ID)
}

func TestDeleteRemovesDocument(t *testing.T) {
	store := source.NewMemoryStore()
	store.Put(catalog.Models, catalog.Record{"id": "m1", "name": "Customer"})
	h := newHarness(t, store, Config{}, nil)
	fullReindex(t, h.coord)
	ref := catalog.Ref{Kind: catalog.Models, ID: "m1"}
	require.True(t, h.engine.Current().Contains(ref))

	store.Delete(catalog.Models, "m1")
	ack := notify(t, h.coord, catalog.Models, "m1", catalog.OpDelete)
	job := waitJob(t, h.coord, ack.JobID)

	assert.Equal(t, builder.StateDone, job.State)
	assert.Equal(t, 1, job.Removed)
	assert.Equal(t, uint64(2), job.Generation)
	assert.False(t, h.engine.Current().Contains(ref))
	assert.Empty(t, h.engine.Current().Lookup("customer"))
}

func TestSuccessiveChangesApplyInCommitOrder(t *testing.T) {
	store := source.NewMemoryStore()
	h := newHarness(t, store, Config{Workers: 4}, nil)
	fullReindex(t, h.coord)

	// Delete then create: the document ends present.
	store.Put(catalog.Models, catalog.Record{"id": "m2", "name": "second"})
	del := notify(t, h.coord, catalog.Models, "m2", catalog.OpDelete)
	create := notify(t, h.coord, catalog.Models, "m2", catalog.OpCreate)
	waitJob(t, h.coord, del.JobID)
	last := waitJob(t, h.coord, create.JobID)
	assert.True(t, h.engine.Current().Contains(catalog.Ref{Kind: catalog.Models, ID: "m2"}))
	assert.Greater(t, last.Seq, del.Seq)
}

// laggingReplica serves reads of the listed records from a slow replica that
// has not seen their deletion yet.
type laggingReplica struct {
	*source.MemoryStore
	delay time.Duration
	stale map[catalog.Ref]catalog.Record
}

func (s *laggingReplica) GetRecord(ctx context.Context, kind catalog.Kind, id string) (catalog.Record, error) {
	if r, ok := s.stale[catalog.Ref{Kind: kind, ID: id}]; ok {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return r, nil
	}
	return s.MemoryStore.GetRecord(ctx, kind, id)
}

func TestUpdateThenDeleteEndsAbsentDespiteSlowRead(t *testing.T) {
	ref := catalog.Ref{Kind: catalog.Models, ID: "m1"}
	store := &laggingReplica{
		MemoryStore: source.NewMemoryStore(),
		delay:       80 * time.Millisecond,
		stale:       map[catalog.Ref]catalog.Record{ref: {"id": "m1", "name": "first"}},
	}
	h := newHarness(t, store, Config{Workers: 4}, nil)
	fullReindex(t, h.coord)

	// The update's read is slow and returns the record; the delete resolves
	// at once. Applied out of order the document would survive.
	update := notify(t, h.coord, catalog.Models, "m1", catalog.OpUpdate)
	del := notify(t, h.coord, catalog.Models, "m1", catalog.OpDelete)
	updated := waitJob(t, h.coord, update.JobID)
	deleted := waitJob(t, h.coord, del.JobID)

	require.Equal(t, builder.StateDone, updated.State, updated.Error)
	require.Equal(t, builder.StateDone, deleted.State, deleted.Error)
	assert.Equal(t, 1, updated.Indexed)
	assert.Equal(t, 1, deleted.Removed)
	assert.GreaterOrEqual(t, deleted.Generation, updated.Generation)
	assert.Greater(t, deleted.Seq, updated.Seq)
	assert.False(t, h.engine.Current().Contains(ref))
	assert.Empty(t, h.engine.Current().Lookup("first"))
}

func TestNotifyTrimsPaddedID(t *testing.T) {
	store := source.NewMemoryStore()
	store.Put(catalog.Models, catalog.Record{"id": "m1", "name": "Customer"})
	h := newHarness(t, store, Config{}, nil)
	fullReindex(t, h.coord)
	ref := catalog.Ref{Kind: catalog.Models, ID: "m1"}
	require.True(t, h.engine.Current().Contains(ref))

	store.Delete(catalog.Models, "m1")
	ack := notify(t, h.coord, catalog.Models, " m1 ", "Deleted")
	job := waitJob(t, h.coord, ack.JobID)

	require.NotNil(t, job.Ref)
	assert.Equal(t, ref, *job.Ref)
	assert.Equal(t, catalog.OpDelete, job.Operation)
	assert.Equal(t, 1, job.Removed)
	assert.False(t, h.engine.Current().Contains(ref))
}

func TestGenerationsFollowSeqOrder(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Domains, 40)
	h := newHarness(t, store, Config{Workers: 8}, nil)
	fullReindex(t, h.coord)

	var acks []JobAck
	for i := 0; i < 40; i++ {
		acks = append(acks, notify(t, h.coord, catalog.Domains, fmt.Sprintf("domains-%d", i), catalog.OpUpdate))
	}
	var prev uint64
	for _, ack := range acks {
		job := waitJob(t, h.coord, ack.JobID)
		require.Equal(t, builder.StateDone, job.State)
		assert.GreaterOrEqual(t, job.Generation, prev)
		prev = job.Generation
	}
	assert.Equal(t, 40, h.engine.Stats().TotalDocuments)
	assert.Equal(t, acks[len(acks)-1].Seq, h.engine.Current().Seq)
}

func TestConcurrentChangesKeepIndexConsistent(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Lexicon, 20)
	h := newHarness(t, store, Config{Workers: 4, VerifyOnPublish: true}, nil)
	fullReindex(t, h.coord)

	var wg sync.WaitGroup
	ids := make(chan string, 200)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				id := fmt.Sprintf("lexicon-%d", (w*7+i)%20)
				op := catalog.OpUpdate
				if i%5 == 0 {
					op = catalog.OpDelete
				}
				ack, err := h.coord.Notify(context.Background(), catalog.Change{Kind: catalog.Lexicon, ID: id, Operation: op})
				if err == nil {
					ids <- ack.JobID
				}
			}
		}()
	}
	wg.Wait()
	close(ids)
	for id := range ids {
		waitJob(t, h.coord, id)
	}
	require.NoError(t, h.engine.Current().Verify())
}

func TestCollectionReindexLeavesOtherCollections(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Models, 5)
	seed(store, catalog.Domains, 3)
	h := newHarness(t, store, Config{}, nil)
	fullReindex(t, h.coord)

	store.Put(catalog.Domains, catalog.Record{"id": "extra", "name": "Extra domain"})
	ack, err := h.coord.Reindex(context.Background(), []catalog.Kind{catalog.Domains}, TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, builder.ScopeCollection, ack.Scope)
	job := waitJob(t, h.coord, ack.JobID)
	require.Equal(t, builder.StateDone, job.State, job.Error)

	stats := h.engine.Stats()
	assert.Equal(t, 5, stats.PerCollectionCounts["models"])
	assert.Equal(t, 4, stats.PerCollectionCounts["domains"])
	assert.Equal(t, uint64(2), stats.Generation)
}

func TestReindexRejectsUnknownCollection(t *testing.T) {
	h := newHarness(t, source.NewMemoryStore(), Config{}, nil)
	_, err := h.coord.Reindex(context.Background(), []catalog.Kind{catalog.KindUnknown}, TriggerAPI)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNotifyRejectsInvalidChange(t *testing.T) {
	h := newHarness(t, source.NewMemoryStore(), Config{}, nil)
	_, err := h.coord.Notify(context.Background(), catalog.Change{Kind: catalog.Models, ID: " ", Operation: catalog.OpUpdate})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = h.coord.Notify(context.Background(), catalog.Change{Kind: catalog.Models, ID: "m1", Operation: "upsert"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNotifyAfterStop(t *testing.T) {
	h := newHarness(t, source.NewMemoryStore(), Config{}, nil)
	h.coord.Stop()
	_, err := h.coord.Notify(context.Background(), catalog.Change{Kind: catalog.Models, ID: "m1", Operation: catalog.OpDelete})
	assert.ErrorIs(t, err, apperrors.ErrCoordinatorStopped)
}

func TestFailedSourceKeepsPreviousSnapshot(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Models, 3)
	h := newHarness(t, store, Config{}, nil)
	fullReindex(t, h.coord)

	store.Fail(catalog.Policies, fmt.Errorf("bucket unreachable"))
	ack, err := h.coord.Reindex(context.Background(), nil, TriggerAPI)
	require.NoError(t, err)
	job := waitJob(t, h.coord, ack.JobID)

	assert.Equal(t, builder.StateFailed, job.State)
	assert.Contains(t, job.Error, "source unavailable")
	assert.Equal(t, uint64(1), h.engine.Current().Generation)
	assert.Equal(t, 3, h.engine.Current().DocumentCount())
}

// gatedStore holds ListRecords for one collection until released. The
// listing is taken before blocking, so the build sees a stale view.
type gatedStore struct {
	*source.MemoryStore
	kind    catalog.Kind
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(kind catalog.Kind) *gatedStore {
	return &gatedStore{
		MemoryStore: source.NewMemoryStore(),
		kind:        kind,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) ListRecords(ctx context.Context, kind catalog.Kind) ([]catalog.Record, error) {
	records, err := g.MemoryStore.ListRecords(ctx, kind)
	if kind != g.kind || g.calls.Add(1) != 1 {
		return records, err
	}
	close(g.entered)
	select {
	case <-g.release:
		return records, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitEntered(t *testing.T, g *gatedStore) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("build never reached the source")
	}
}

func TestBuildReplaysChangesPublishedWhileBuilding(t *testing.T) {
	store := newGatedStore(catalog.Models)
	store.Put(catalog.Models, catalog.Record{"id": "m1", "name": "Customer"})
	store.Put(catalog.Models, catalog.Record{"id": "m2", "name": "Account"})
	h := newHarness(t, store, Config{}, nil)

	ack, err := h.coord.Reindex(context.Background(), nil, TriggerStartup)
	require.NoError(t, err)
	waitEntered(t, store)

	store.Delete(catalog.Models, "m1")
	store.Put(catalog.Models, catalog.Record{"id": "m3", "name": "Invoice"})
	del := notify(t, h.coord, catalog.Models, "m1", catalog.OpDelete)
	create := notify(t, h.coord, catalog.Models, "m3", catalog.OpCreate)
	waitJob(t, h.coord, del.JobID)
	waitJob(t, h.coord, create.JobID)

	close(store.release)
	job := waitJob(t, h.coord, ack.JobID)
	require.Equal(t, builder.StateDone, job.State, job.Error)

	snap := h.engine.Current()
	assert.Equal(t, job.Generation, snap.Generation)
	assert.False(t, snap.Contains(catalog.Ref{Kind: catalog.Models, ID: "m1"}))
	assert.True(t, snap.Contains(catalog.Ref{Kind: catalog.Models, ID: "m2"}))
	assert.True(t, snap.Contains(catalog.Ref{Kind: catalog.Models, ID: "m3"}))
	require.NoError(t, snap.Verify())
}

func TestNewerFullReindexSupersedesOlder(t *testing.T) {
	store := newGatedStore(catalog.Models)
	store.Put(catalog.Models, catalog.Record{"id": "m1", "name": "Customer"})
	h := newHarness(t, store, Config{BuildWorkers: 2}, nil)

	older, err := h.coord.Reindex(context.Background(), nil, TriggerAPI)
	require.NoError(t, err)
	waitEntered(t, store)

	newer, err := h.coord.Reindex(context.Background(), nil, TriggerAPI)
	require.NoError(t, err)

	oldJob := waitJob(t, h.coord, older.JobID)
	newJob := waitJob(t, h.coord, newer.JobID)
	assert.Equal(t, builder.StateFailed, oldJob.State)
	assert.Contains(t, oldJob.Error, apperrors.ErrSuperseded.Error())
	assert.Equal(t, builder.StateDone, newJob.State)
	assert.Equal(t, uint64(1), h.engine.Current().Generation)
}

func TestVerifyTriggersFullReindex(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Toolkit, 4)
	h := newHarness(t, store, Config{}, nil)
	fullReindex(t, h.coord)

	var calls atomic.Int32
	h.coord.verify = func(s *index.Snapshot) error {
		if calls.Add(1) == 1 {
			return fmt.Errorf("posting for missing document: %w", apperrors.ErrIndexCorruption)
		}
		return s.Verify()
	}
	err := h.coord.Verify()
	require.ErrorIs(t, err, apperrors.ErrIndexCorruption)

	require.Eventually(t, func() bool {
		last, ok := h.coord.LastBuild()
		return ok && last.Trigger == TriggerCorruption && last.State == builder.StateDone
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(2), h.engine.Current().Generation)
	assert.Equal(t, 4, h.engine.Current().DocumentCount())
}

func TestCorruptPublishIsRejectedAndRebuilt(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Policies, 2)
	h := newHarness(t, store, Config{VerifyOnPublish: true}, nil)
	fullReindex(t, h.coord)

	var calls atomic.Int32
	h.coord.verify = func(s *index.Snapshot) error {
		if calls.Add(1) == 1 {
			return fmt.Errorf("term table mismatch: %w", apperrors.ErrIndexCorruption)
		}
		return s.Verify()
	}
	store.Put(catalog.Policies, catalog.Record{"id": "p-new", "name": "Retention"})
	ack := notify(t, h.coord, catalog.Policies, "p-new", catalog.OpCreate)
	job := waitJob(t, h.coord, ack.JobID)
	assert.Equal(t, builder.StateFailed, job.State)
	assert.Contains(t, job.Error, "index corruption")

	require.Eventually(t, func() bool {
		last, ok := h.coord.LastBuild()
		return ok && last.Trigger == TriggerCorruption && last.State == builder.StateDone
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, h.engine.Current().Contains(catalog.Ref{Kind: catalog.Policies, ID: "p-new"}))
}

func TestMissingRecordResolvesToRemoval(t *testing.T) {
	store := source.NewMemoryStore()
	store.Put(catalog.Models, catalog.Record{"id": "m1", "name": "Customer"})
	h := newHarness(t, store, Config{}, nil)
	fullReindex(t, h.coord)

	store.Delete(catalog.Models, "m1")
	ack := notify(t, h.coord, catalog.Models, "m1", catalog.OpUpdate)
	job := waitJob(t, h.coord, ack.JobID)
	assert.Equal(t, builder.StateDone, job.State)
	assert.Equal(t, 1, job.Removed)
	require.NotEmpty(t, job.Errors)
	assert.Contains(t, job.Errors[0], "not visible")
}

func TestJobsListsNewestFirst(t *testing.T) {
	store := source.NewMemoryStore()
	h := newHarness(t, store, Config{}, nil)
	first := fullReindex(t, h.coord)
	second := fullReindex(t, h.coord)

	jobs, err := h.coord.Jobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)

	got, err := h.coord.Job(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, builder.StateDone, got.State)

	_, err = h.coord.Job(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Published(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func TestSinkSeesEveryPublish(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Reference, 3)
	sink := &recordingSink{}
	h := newHarness(t, store, Config{}, sink)
	job := fullReindex(t, h.coord)
	ack := notify(t, h.coord, catalog.Reference, "reference-0", catalog.OpDelete)
	waitJob(t, h.coord, ack.JobID)

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.events) == 2
	}, 2*time.Second, 5*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, uint64(1), sink.events[0].Generation)
	assert.Equal(t, builder.ScopeFull, sink.events[0].Scope)
	assert.Equal(t, []string{job.ID}, sink.events[0].JobIDs)
	assert.Equal(t, 3, sink.events[0].Documents)
	assert.Equal(t, uint64(2), sink.events[1].Generation)
	assert.Equal(t, 2, sink.events[1].PerKind["reference"])
}

type stuckSink struct {
	release chan struct{}
	calls   atomic.Int32
}

func (s *stuckSink) Published(ctx context.Context, _ Event) error {
	s.calls.Add(1)
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil
}

func TestStuckSinkDoesNotDelayPublishes(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Reference, 5)
	sink := &stuckSink{release: make(chan struct{})}
	h := newHarness(t, store, Config{}, sink)
	t.Cleanup(func() { close(sink.release) })
	fullReindex(t, h.coord)

	start := time.Now()
	for i := 0; i < 5; i++ {
		ack := notify(t, h.coord, catalog.Reference, fmt.Sprintf("reference-%d", i), catalog.OpDelete)
		job := waitJob(t, h.coord, ack.JobID)
		assert.Equal(t, builder.StateDone, job.State)
	}
	assert.Less(t, time.Since(start), sinkTimeout)
	assert.Zero(t, h.engine.Current().DocumentCount())
	// only the first event has reached the sink; the rest wait behind it
	assert.Eventually(t, func() bool { return sink.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHealthCheckFollowsIndexState(t *testing.T) {
	store := source.NewMemoryStore()
	seed(store, catalog.Policies, 3)
	h := newHarness(t, store, Config{}, nil)
	check := h.coord.HealthCheck()

	assert.Equal(t, health.StatusDown, check(context.Background()).Status)

	fullReindex(t, h.coord)
	assert.Equal(t, health.StatusUp, check(context.Background()).Status)
	st := h.coord.Stats()
	assert.Equal(t, 3, st.TotalDocuments)
	require.NotNil(t, st.LastJob)
	assert.Zero(t, st.RecordErrors)

	store.Fail(catalog.Policies, fmt.Errorf("bucket unreachable"))
	ack, err := h.coord.Reindex(context.Background(), []catalog.Kind{catalog.Policies}, TriggerAPI)
	require.NoError(t, err)
	require.Equal(t, builder.StateFailed, waitJob(t, h.coord, ack.JobID).State)

	got := check(context.Background())
	assert.Equal(t, health.StatusDegraded, got.Status)
	assert.Contains(t, got.Message, "bucket unreachable")
	assert.Equal(t, 3, h.coord.Stats().TotalDocuments)
}

func TestReindexLogsCollectionNames(t *testing.T) {
	var buf syncBuffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	store := source.NewMemoryStore()
	seed(store, catalog.Models, 2)
	h := newHarness(t, store, Config{}, nil)
	ack, err := h.coord.Reindex(context.Background(), []catalog.Kind{catalog.Models, catalog.Lexicon}, TriggerAPI)
	require.NoError(t, err)
	waitJob(t, h.coord, ack.JobID)

	assert.Contains(t, buf.String(), `"collections":["models","lexicon"]`)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
