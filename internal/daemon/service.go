// Package daemon runs the periodic extraction cycle: snapshot the live
// Notification Center store, extract records past the watermark, score
// them, and persist batch plus watermark in one transaction. A
// cron-scheduled janitor trims aged records.
//
// Cycles run on their own context, detached from the stop signal;
// cancellation is observed only between cycles, so a stop never aborts
// an in-flight persist and the watermark stays consistent.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/source"
)

// Source produces unscored records newer than a watermark.
type Source interface {
	ExtractBatch(ctx context.Context, afterSeq int64, limit int) ([]notification.Record, error)
}

// Store is the slice of the persisted store the service writes.
type Store interface {
	Watermark(ctx context.Context) (int64, error)
	UpsertBatch(ctx context.Context, records []notification.Record, advanceTo int64) (int, error)
	WriteHeartbeat(ctx context.Context, at time.Time, count int) error
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scorer rates a record against a reference clock.
type Scorer interface {
	ScoreAt(r notification.Record, now time.Time) (float64, notification.Level, []string)
}

// Config tunes the extraction service.
type Config struct {
	Poll        time.Duration
	BatchSize   int
	Retention   time.Duration // 0 disables the janitor
	CleanupCron string        // empty disables the janitor
}

// Service manages the extraction loop.
type Service struct {
	src    Source
	store  Store
	scorer Scorer
	cfg    Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	nextCleanup time.Time // loop goroutine only
}

// New creates an extraction service. Poll and BatchSize fall back to
// 10s and the source default when unset.
func New(src Source, st Store, scorer Scorer, cfg Config) *Service {
	if cfg.Poll <= 0 {
		cfg.Poll = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = source.DefaultBatchSize
	}
	return &Service{src: src, store: st, scorer: scorer, cfg: cfg}
}

// Start begins the extraction loop in a background goroutine. The first
// cycle runs immediately so a fresh start catches up without waiting
// out the interval.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx)
	slog.Info("watch service started",
		"interval", s.cfg.Poll,
		"batch_size", s.cfg.BatchSize,
	)
}

// Stop halts the loop and waits for any in-flight cycle to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	done := s.done
	s.mu.Unlock()

	<-done
	slog.Info("watch service stopped")
}

// IsRunning returns whether the extraction loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ─── Cycle ───────────────────────────────────────────────────────────────────

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)

	s.runCycle(context.Background())

	timer := time.NewTimer(s.cfg.Poll)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.runCycle(context.Background())
			timer.Reset(s.cfg.Poll)
		}
	}
}

// runCycle performs one snapshot-extract-score-persist pass. Failures
// leave the watermark untouched so the same range re-extracts next
// tick; an unavailable source is an expected condition, not an error.
func (s *Service) runCycle(ctx context.Context) {
	wm, err := s.store.Watermark(ctx)
	if err != nil {
		slog.Error("watch cycle: read watermark", "error", err)
		return
	}

	batch, err := s.src.ExtractBatch(ctx, wm, s.cfg.BatchSize)
	if err != nil {
		if errors.Is(err, source.ErrUnavailable) {
			slog.Warn("watch cycle: source unavailable, skipping", "error", err)
		} else {
			slog.Error("watch cycle: extract", "error", err)
		}
		return
	}

	now := time.Now()
	saved := 0
	if len(batch) > 0 {
		advanceTo := wm
		for i := range batch {
			r := &batch[i]
			r.Score, r.Level, r.Factors = s.scorer.ScoreAt(*r, now)
			if r.Seq > advanceTo {
				advanceTo = r.Seq
			}
		}
		saved, err = s.store.UpsertBatch(ctx, batch, advanceTo)
		if err != nil {
			slog.Error("watch cycle: persist", "error", err)
			return
		}
		slog.Info("watch cycle complete", "new", saved, "watermark", advanceTo)
	}

	if err := s.store.WriteHeartbeat(ctx, now, saved); err != nil {
		slog.Error("watch cycle: heartbeat", "error", err)
	}

	s.maybeCleanup(ctx, now)
}

// ─── Janitor ─────────────────────────────────────────────────────────────────

// maybeCleanup runs the retention sweep when the cron schedule says one
// is due, then computes the next due time.
func (s *Service) maybeCleanup(ctx context.Context, now time.Time) {
	if s.cfg.CleanupCron == "" || s.cfg.Retention <= 0 {
		return
	}
	if s.nextCleanup.IsZero() {
		next, err := gronx.NextTickAfter(s.cfg.CleanupCron, now, false)
		if err != nil {
			slog.Error("janitor: compute schedule", "expr", s.cfg.CleanupCron, "error", err)
			return
		}
		s.nextCleanup = next
		return
	}
	if now.Before(s.nextCleanup) {
		return
	}

	removed, err := s.store.Cleanup(ctx, s.cfg.Retention)
	if err != nil {
		slog.Error("janitor: cleanup", "error", err)
	} else {
		slog.Info("janitor: cleanup complete", "removed", removed, "older_than", s.cfg.Retention)
	}

	next, err := gronx.NextTickAfter(s.cfg.CleanupCron, now, false)
	if err == nil {
		s.nextCleanup = next
	}
}
