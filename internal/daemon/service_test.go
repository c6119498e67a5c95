package daemon

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/scoring"
	"github.com/notedaemon/noted/internal/source"
	"github.com/notedaemon/noted/internal/store"
)

type fakeSource struct {
	records   []notification.Record
	err       error
	lastAfter int64
	calls     int
}

func (f *fakeSource) ExtractBatch(_ context.Context, afterSeq int64, limit int) ([]notification.Record, error) {
	f.calls++
	f.lastAfter = afterSeq
	if f.err != nil {
		return nil, f.err
	}
	var out []notification.Record
	for _, r := range f.records {
		if r.Seq <= afterSeq {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// failStore breaks persistence while delegating everything else.
type failStore struct {
	Store
}

func (f *failStore) UpsertBatch(context.Context, []notification.Record, int64) (int, error) {
	return 0, fmt.Errorf("store: disk full")
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func rec(seq int64, title string, at time.Time) notification.Record {
	return notification.Record{
		Seq:         seq,
		App:         "com.apple.mail",
		DeliveredAt: at,
		Title:       title,
	}
}

func newService(src Source, st Store, cfg Config) *Service {
	return New(src, st, scoring.New(scoring.Config{}), cfg)
}

func TestRunCycle_ExtractsScoresPersists(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{records: []notification.Record{
		rec(1, "urgent: server down", time.Now().Add(-2*time.Minute)),
		rec(2, "lunch?", time.Now().Add(-time.Minute)),
		rec(3, "payment due today", time.Now()),
	}}
	svc := newService(src, st, Config{})
	ctx := context.Background()

	svc.runCycle(ctx)

	wm, err := st.Watermark(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if wm != 3 {
		t.Errorf("watermark = %d, want 3", wm)
	}
	got, err := st.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Level == notification.LevelUnknown {
		t.Error("record persisted unscored")
	}
	if got.Score <= 0 {
		t.Errorf("score = %v, want > 0 for urgent text", got.Score)
	}
	hb, err := st.ReadHeartbeat(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if hb.LastCycleAt.IsZero() || hb.LastCycleCount != 3 {
		t.Errorf("heartbeat = %+v", hb)
	}
}

func TestRunCycle_ResumesFromWatermark(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{records: []notification.Record{
		rec(4, "a", time.Now()),
		rec(5, "b", time.Now()),
		rec(6, "c", time.Now()),
	}}
	svc := newService(src, st, Config{})
	ctx := context.Background()

	if _, err := st.UpsertBatch(ctx, nil, 5); err != nil {
		t.Fatal(err)
	}

	svc.runCycle(ctx)

	if src.lastAfter != 5 {
		t.Errorf("extracted after %d, want the watermark 5", src.lastAfter)
	}
	wm, _ := st.Watermark(ctx)
	if wm != 6 {
		t.Errorf("watermark = %d, want 6", wm)
	}
	if _, err := st.Get(ctx, 4); err == nil {
		t.Error("seq 4 persisted even though it is below the watermark")
	}
}

func TestRunCycle_IdleCycleWritesHeartbeat(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{}
	svc := newService(src, st, Config{})
	ctx := context.Background()

	svc.runCycle(ctx)

	hb, err := st.ReadHeartbeat(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if hb.LastCycleAt.IsZero() {
		t.Error("idle cycle left no heartbeat")
	}
	if hb.LastCycleCount != 0 {
		t.Errorf("count = %d, want 0", hb.LastCycleCount)
	}
}

func TestRunCycle_UnavailableSourceSkipsCycle(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{err: fmt.Errorf("source: copy db: %w", source.ErrUnavailable)}
	svc := newService(src, st, Config{})
	ctx := context.Background()

	svc.runCycle(ctx)

	wm, _ := st.Watermark(ctx)
	if wm != 0 {
		t.Errorf("watermark = %d, want untouched 0", wm)
	}
	hb, _ := st.ReadHeartbeat(ctx)
	if !hb.LastCycleAt.IsZero() {
		t.Error("skipped cycle wrote a heartbeat")
	}
}

func TestRunCycle_PersistFailureRetriesSameRange(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{records: []notification.Record{rec(1, "a", time.Now())}}
	svc := newService(src, &failStore{Store: st}, Config{})
	ctx := context.Background()

	svc.runCycle(ctx)
	svc.runCycle(ctx)

	wm, _ := st.Watermark(ctx)
	if wm != 0 {
		t.Errorf("watermark = %d, want 0 after failed persists", wm)
	}
	if src.calls != 2 || src.lastAfter != 0 {
		t.Errorf("calls = %d, lastAfter = %d; want the same range re-extracted", src.calls, src.lastAfter)
	}
}

func TestMaybeCleanup_SweepsWhenDue(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	old := rec(1, "stale", time.Now().Add(-72*time.Hour))
	fresh := rec(2, "fresh", time.Now())
	if _, err := st.UpsertBatch(ctx, []notification.Record{old, fresh}, 2); err != nil {
		t.Fatal(err)
	}

	svc := newService(&fakeSource{}, st, Config{
		Retention:   24 * time.Hour,
		CleanupCron: "* * * * *",
	})

	now := time.Now()
	svc.maybeCleanup(ctx, now)
	if _, err := st.Get(ctx, 1); err != nil {
		t.Fatal("first check swept before the schedule came due")
	}

	svc.maybeCleanup(ctx, now.Add(2*time.Minute))
	if _, err := st.Get(ctx, 1); err == nil {
		t.Error("stale record survived a due sweep")
	}
	if _, err := st.Get(ctx, 2); err != nil {
		t.Errorf("fresh record swept: %v", err)
	}
}

func TestMaybeCleanup_DisabledWithoutSchedule(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	old := rec(1, "stale", time.Now().Add(-72*time.Hour))
	if _, err := st.UpsertBatch(ctx, []notification.Record{old}, 1); err != nil {
		t.Fatal(err)
	}

	svc := newService(&fakeSource{}, st, Config{Retention: 24 * time.Hour})
	svc.maybeCleanup(ctx, time.Now())
	svc.maybeCleanup(ctx, time.Now().Add(48*time.Hour))

	if _, err := st.Get(ctx, 1); err != nil {
		t.Errorf("janitor ran without a schedule: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{records: []notification.Record{rec(1, "a", time.Now())}}
	svc := newService(src, st, Config{Poll: time.Hour})

	svc.Start()
	if !svc.IsRunning() {
		t.Fatal("not running after Start")
	}
	svc.Start() // second start is a no-op

	svc.Stop()
	if svc.IsRunning() {
		t.Fatal("still running after Stop")
	}
	svc.Stop() // second stop is a no-op

	// Stop waited for the first cycle, so its work is durable by now.
	wm, err := st.Watermark(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if wm != 1 {
		t.Errorf("watermark = %d, want 1 from the startup cycle", wm)
	}
}
