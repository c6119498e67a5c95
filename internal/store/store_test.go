package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/store"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func rec(seq int64, app, title string, at time.Time) notification.Record {
	return notification.Record{
		Seq:         seq,
		App:         app,
		Title:       title,
		DeliveredAt: at,
		Score:       float64(seq),
		Level:       notification.LevelLow,
		Factors:     []string{"urgency:now(+7)"},
	}
}

func mustUpsert(t *testing.T, s *store.Store, records []notification.Record, advanceTo int64) {
	t.Helper()
	if _, err := s.UpsertBatch(context.Background(), records, advanceTo); err != nil {
		t.Fatalf("upsert batch: %v", err)
	}
}

// ─── Open / Close ────────────────────────────────────────────────────────────

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, "notifications.db")); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s1, err := store.Open(dir)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	mustUpsert(t, s1, []notification.Record{rec(1, "com.apple.mail", "hello", time.Now())}, 1)
	s1.Close()

	s2, err := store.Open(dir)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	got, err := s2.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Title != "hello" {
		t.Errorf("title = %q, want %q", got.Title, "hello")
	}
	wm, err := s2.Watermark(context.Background())
	if err != nil {
		t.Fatalf("watermark: %v", err)
	}
	if wm != 1 {
		t.Errorf("watermark = %d, want 1", wm)
	}
}

// ─── Watermark ───────────────────────────────────────────────────────────────

func TestWatermark_ZeroWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	wm, err := s.Watermark(context.Background())
	if err != nil {
		t.Fatalf("watermark: %v", err)
	}
	if wm != 0 {
		t.Errorf("watermark = %d, want 0", wm)
	}
}

func TestUpsertBatch_AdvancesWatermark(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	records := []notification.Record{
		rec(5, "com.apple.mail", "a", now),
		rec(7, "com.apple.mail", "b", now),
		rec(9, "com.apple.mail", "c", now),
	}
	mustUpsert(t, s, records, 9)

	wm, _ := s.Watermark(context.Background())
	if wm != 9 {
		t.Errorf("watermark = %d, want 9", wm)
	}
}

func TestUpsertBatch_WatermarkNeverMovesBack(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	mustUpsert(t, s, []notification.Record{rec(9, "com.apple.mail", "a", now)}, 9)
	mustUpsert(t, s, []notification.Record{rec(3, "com.apple.mail", "b", now)}, 3)

	wm, _ := s.Watermark(context.Background())
	if wm != 9 {
		t.Errorf("watermark = %d after lower advance, want 9", wm)
	}
}

// ─── Upsert semantics ────────────────────────────────────────────────────────

func TestUpsertBatch_IdempotentBySeq(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	batch := []notification.Record{rec(1, "com.apple.mail", "first", now)}

	mustUpsert(t, s, batch, 1)
	mustUpsert(t, s, batch, 1)

	records, err := s.Recent(context.Background(), store.RecentOptions{Limit: 10})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d after double upsert, want 1", len(records))
	}
}

func TestUpsertBatch_UpdatesContentPreservesFlags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mustUpsert(t, s, []notification.Record{rec(1, "com.apple.mail", "original", now)}, 1)
	if _, err := s.MarkRead(ctx, store.Selection{Seqs: []int64{1}}, false); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if _, err := s.Archive(ctx, store.Selection{Seqs: []int64{1}}, false); err != nil {
		t.Fatalf("archive: %v", err)
	}

	// Re-extraction rewrites content; the user's flags must survive.
	mustUpsert(t, s, []notification.Record{rec(1, "com.apple.mail", "rescored", now)}, 1)

	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "rescored" {
		t.Errorf("title = %q, want rescored", got.Title)
	}
	if !got.Read || !got.Archived {
		t.Errorf("flags = read %v archived %v, want both true", got.Read, got.Archived)
	}
	if len(got.Factors) != 1 || got.Factors[0] != "urgency:now(+7)" {
		t.Errorf("factors = %v", got.Factors)
	}
}

// ─── Reads ───────────────────────────────────────────────────────────────────

func TestRecent_FiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mustUpsert(t, s, []notification.Record{
		rec(1, "com.apple.mail", "oldest", now.Add(-3*time.Hour)),
		rec(2, "com.apple.mobilesms", "middle", now.Add(-2*time.Hour)),
		rec(3, "com.apple.mail", "newest", now.Add(-time.Hour)),
	}, 3)

	all, err := s.Recent(ctx, store.RecentOptions{Limit: 10})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != 3 || all[0].Seq != 3 || all[2].Seq != 1 {
		t.Fatalf("recent order = %+v", seqsOf(all))
	}

	mail, err := s.Recent(ctx, store.RecentOptions{Limit: 10, App: "mail"})
	if err != nil {
		t.Fatalf("recent app: %v", err)
	}
	if len(mail) != 2 {
		t.Fatalf("mail records = %d, want 2", len(mail))
	}

	if _, err := s.MarkRead(ctx, store.Selection{Seqs: []int64{3}}, false); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, err := s.Recent(ctx, store.RecentOptions{Limit: 10, UnreadOnly: true})
	if err != nil {
		t.Fatalf("recent unread: %v", err)
	}
	if len(unread) != 2 {
		t.Fatalf("unread records = %d, want 2", len(unread))
	}
}

func TestRecent_ExcludesArchived(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mustUpsert(t, s, []notification.Record{
		rec(1, "com.apple.mail", "keep", now),
		rec(2, "com.apple.mail", "archive me", now),
	}, 2)
	if _, err := s.Archive(ctx, store.Selection{Seqs: []int64{2}}, false); err != nil {
		t.Fatalf("archive: %v", err)
	}

	records, err := s.Recent(ctx, store.RecentOptions{Limit: 10})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 || records[0].Seq != 1 {
		t.Fatalf("records = %+v", seqsOf(records))
	}
}

func TestTopPriority_LevelCutAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	records := []notification.Record{
		{Seq: 1, App: "a", DeliveredAt: now, Score: 20, Level: notification.LevelCritical},
		{Seq: 2, App: "a", DeliveredAt: now, Score: 12, Level: notification.LevelHigh},
		{Seq: 3, App: "a", DeliveredAt: now, Score: 6, Level: notification.LevelMedium},
		{Seq: 4, App: "a", DeliveredAt: now, Score: 1, Level: notification.LevelLow},
	}
	mustUpsert(t, s, records, 4)

	top, err := s.TopPriority(ctx, notification.LevelHigh, now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("top priority: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top = %d, want 2", len(top))
	}
	if top[0].Seq != 1 || top[1].Seq != 2 {
		t.Errorf("order = %+v, want score desc", seqsOf(top))
	}
}

func TestSince_AscendingWindow(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	mustUpsert(t, s, []notification.Record{
		rec(1, "a", "old", now.Add(-48*time.Hour)),
		rec(2, "a", "in window", now.Add(-2*time.Hour)),
		rec(3, "a", "newer", now.Add(-time.Hour)),
	}, 3)

	got, err := s.Since(context.Background(), now.Add(-3*time.Hour), 0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(got) != 2 || got[0].Seq != 2 || got[1].Seq != 3 {
		t.Fatalf("since = %+v, want [2 3]", seqsOf(got))
	}
}

// ─── Cleanup ─────────────────────────────────────────────────────────────────

func TestCleanup_RemovesOldKeepsArchived(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mustUpsert(t, s, []notification.Record{
		rec(1, "a", "ancient", now.Add(-40*24*time.Hour)),
		rec(2, "a", "ancient but archived", now.Add(-40*24*time.Hour)),
		rec(3, "a", "fresh", now),
	}, 3)
	if _, err := s.Archive(ctx, store.Selection{Seqs: []int64{2}}, false); err != nil {
		t.Fatalf("archive: %v", err)
	}

	n, err := s.Cleanup(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("cleaned = %d, want 1", n)
	}
	if _, err := s.Get(ctx, 2); err != nil {
		t.Errorf("archived record removed: %v", err)
	}
	if _, err := s.Get(ctx, 3); err != nil {
		t.Errorf("fresh record removed: %v", err)
	}
}

// ─── Heartbeat ───────────────────────────────────────────────────────────────

func TestHeartbeat_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hb, err := s.ReadHeartbeat(ctx)
	if err != nil {
		t.Fatalf("read empty heartbeat: %v", err)
	}
	if !hb.LastCycleAt.IsZero() || hb.LastCycleCount != 0 {
		t.Errorf("empty heartbeat = %+v", hb)
	}

	at := time.Date(2025, time.June, 18, 10, 30, 0, 0, time.UTC)
	if err := s.WriteHeartbeat(ctx, at, 42); err != nil {
		t.Fatalf("write heartbeat: %v", err)
	}

	hb, err = s.ReadHeartbeat(ctx)
	if err != nil {
		t.Fatalf("read heartbeat: %v", err)
	}
	if !hb.LastCycleAt.Equal(at) {
		t.Errorf("last cycle at = %v, want %v", hb.LastCycleAt, at)
	}
	if hb.LastCycleCount != 42 {
		t.Errorf("last cycle count = %d, want 42", hb.LastCycleCount)
	}
}

func seqsOf(records []notification.Record) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.Seq
	}
	return out
}
