package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/store"
)

func TestStats_Summary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mustUpsert(t, s, []notification.Record{
		{Seq: 1, App: "com.apple.mail", DeliveredAt: now.Add(-2 * time.Hour), Level: notification.LevelHigh, Score: 12},
		{Seq: 2, App: "com.apple.mail", DeliveredAt: now.Add(-time.Hour), Level: notification.LevelLow, Score: 1},
		{Seq: 3, App: "com.apple.mobilesms", DeliveredAt: now, Level: notification.LevelCritical, Score: 20},
	}, 3)
	if _, err := s.MarkRead(ctx, store.Selection{Seqs: []int64{1}}, false); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if _, err := s.Archive(ctx, store.Selection{Seqs: []int64{2}}, false); err != nil {
		t.Fatalf("archive: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 3 {
		t.Errorf("total = %d, want 3", st.Total)
	}
	if st.Unread != 2 {
		t.Errorf("unread = %d, want 2", st.Unread)
	}
	if st.Archived != 1 {
		t.Errorf("archived = %d, want 1", st.Archived)
	}
	if st.ByLevel["HIGH"] != 1 || st.ByLevel["CRITICAL"] != 1 || st.ByLevel["LOW"] != 1 {
		t.Errorf("by level = %v", st.ByLevel)
	}
	if len(st.TopApps) != 2 || st.TopApps[0].App != "com.apple.mail" || st.TopApps[0].Count != 2 {
		t.Errorf("top apps = %+v", st.TopApps)
	}
	if st.Watermark != 3 {
		t.Errorf("watermark = %d, want 3", st.Watermark)
	}
	if !st.Oldest.Before(st.Newest) {
		t.Errorf("range = %v .. %v", st.Oldest, st.Newest)
	}
}

func TestStats_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 0 || st.Unread != 0 || len(st.TopApps) != 0 {
		t.Errorf("empty stats = %+v", st)
	}
	if !st.Oldest.IsZero() || !st.Newest.IsZero() {
		t.Errorf("empty range = %v .. %v", st.Oldest, st.Newest)
	}
}

func TestHourlyPattern_BucketsByLocalHour(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	mustUpsert(t, s, []notification.Record{
		rec(1, "a", "x", now),
		rec(2, "a", "y", now),
		rec(3, "a", "z", now.Add(-30*24*time.Hour)), // outside the window
	}, 3)

	buckets, err := s.HourlyPattern(context.Background(), 7)
	if err != nil {
		t.Fatalf("hourly pattern: %v", err)
	}
	var total int64
	for _, n := range buckets {
		total += n
	}
	if total != 2 {
		t.Errorf("bucket total = %d, want 2", total)
	}
	if buckets[now.Local().Hour()] != 2 {
		t.Errorf("bucket[%d] = %d, want 2", now.Local().Hour(), buckets[now.Local().Hour()])
	}
}

func TestDailyTrend_FillsGapDays(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	mustUpsert(t, s, []notification.Record{
		rec(1, "a", "today", now),
		rec(2, "a", "also today", now),
	}, 2)

	trend, err := s.DailyTrend(context.Background(), 3)
	if err != nil {
		t.Fatalf("daily trend: %v", err)
	}
	if len(trend) != 3 {
		t.Fatalf("trend days = %d, want 3", len(trend))
	}
	if trend[0].Count != 0 || trend[1].Count != 0 {
		t.Errorf("gap days = %+v, want zero counts", trend[:2])
	}
	last := trend[2]
	if last.Day != now.Local().Format("2006-01-02") || last.Count != 2 {
		t.Errorf("today = %+v, want 2 on %s", last, now.Local().Format("2006-01-02"))
	}
}

func TestAppBreakdown_CountsAndLevels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mustUpsert(t, s, []notification.Record{
		{Seq: 1, App: "com.apple.mail", DeliveredAt: now, Level: notification.LevelHigh, Score: 10},
		{Seq: 2, App: "com.apple.mail", DeliveredAt: now, Level: notification.LevelLow, Score: 2},
		{Seq: 3, App: "com.apple.mobilesms", DeliveredAt: now, Level: notification.LevelCritical, Score: 18},
	}, 3)
	if _, err := s.MarkRead(ctx, store.Selection{Seqs: []int64{1}}, false); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	apps, err := s.AppBreakdown(ctx, 10)
	if err != nil {
		t.Fatalf("app breakdown: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("apps = %d, want 2", len(apps))
	}
	mail := apps[0]
	if mail.App != "com.apple.mail" || mail.Count != 2 || mail.Unread != 1 {
		t.Errorf("mail = %+v", mail)
	}
	if mail.AvgScore != 6 {
		t.Errorf("mail avg score = %v, want 6", mail.AvgScore)
	}
	if mail.ByLevel["HIGH"] != 1 || mail.ByLevel["LOW"] != 1 || mail.ByLevel["CRITICAL"] != 0 {
		t.Errorf("mail levels = %v", mail.ByLevel)
	}
}

func TestAppBreakdown_LimitApplied(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	mustUpsert(t, s, []notification.Record{
		rec(1, "app.one", "a", now),
		rec(2, "app.one", "b", now),
		rec(3, "app.two", "c", now),
		rec(4, "app.three", "d", now),
	}, 4)

	apps, err := s.AppBreakdown(context.Background(), 1)
	if err != nil {
		t.Fatalf("app breakdown: %v", err)
	}
	if len(apps) != 1 || apps[0].App != "app.one" {
		t.Errorf("apps = %+v, want only app.one", apps)
	}
}
