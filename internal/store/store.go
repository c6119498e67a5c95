// Package store persists scored notifications in SQLite and owns the
// extraction watermark.
//
// The store is written by exactly one extraction loop and read by any
// number of concurrent MCP/CLI requests, so every operation uses a
// short-lived connection or transaction scoped to that one call. Records
// are keyed by the source-assigned seq; re-inserting a seq updates the
// content columns and leaves the user-owned read/archived flags alone,
// which is what makes at-least-once extraction safe.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/notedaemon/noted/internal/notification"
)

// metaWatermark is the meta key holding the highest durably ingested seq.
const (
	metaWatermark  = "last_seq"
	metaCycleAt    = "last_cycle_at"
	metaCycleCount = "last_cycle_count"
	metaSchema     = "schema_version"
)

const recordCols = `seq, app, delivered_at, title, subtitle, body, category, thread,
	score, level, factors, is_read, is_archived, raw`

// Store is the durable notification store backed by SQLite.
type Store struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy // batch IDs sort in issue order
}

// Open creates dataDir if needed, opens (or creates) notifications.db
// inside it with WAL mode, and runs migrations.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "notifications.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS notifications (
			seq          INTEGER PRIMARY KEY,
			app          TEXT    NOT NULL,
			delivered_at INTEGER NOT NULL,
			title        TEXT    NOT NULL DEFAULT '',
			subtitle     TEXT    NOT NULL DEFAULT '',
			body         TEXT    NOT NULL DEFAULT '',
			category     TEXT    NOT NULL DEFAULT '',
			thread       TEXT    NOT NULL DEFAULT '',
			score        REAL    NOT NULL DEFAULT 0,
			level        TEXT    NOT NULL DEFAULT 'UNKNOWN',
			factors      TEXT    NOT NULL DEFAULT '[]',
			is_read      INTEGER NOT NULL DEFAULT 0,
			is_archived  INTEGER NOT NULL DEFAULT 0,
			batch_id     TEXT,
			raw          BLOB,
			created_at   TEXT    NOT NULL DEFAULT (datetime('now')),
			updated_at   TEXT    NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_notif_delivered ON notifications(delivered_at DESC);
		CREATE INDEX IF NOT EXISTS idx_notif_app       ON notifications(app);
		CREATE INDEX IF NOT EXISTS idx_notif_level     ON notifications(level);
		CREATE INDEX IF NOT EXISTS idx_notif_score     ON notifications(score DESC);
		CREATE INDEX IF NOT EXISTS idx_notif_archived  ON notifications(is_archived);

		CREATE TABLE IF NOT EXISTS meta (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS batch_log (
			id         TEXT    PRIMARY KEY,
			action     TEXT    NOT NULL,
			affected   INTEGER NOT NULL,
			dry_run    INTEGER NOT NULL DEFAULT 0,
			criteria   TEXT    NOT NULL DEFAULT '{}',
			created_at TEXT    NOT NULL DEFAULT (datetime('now'))
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES (?, '1')`, metaSchema,
	)
	return err
}

// ─── Ingestion ───────────────────────────────────────────────────────────────

// UpsertBatch persists records and advances the watermark to advanceTo in
// one transaction, so the watermark can never point past rows that are
// not durably stored. Existing seqs have their content columns updated;
// is_read and is_archived are preserved. The watermark only moves
// forward: an advanceTo at or below the current value leaves it alone.
func (s *Store) UpsertBatch(ctx context.Context, records []notification.Record, advanceTo int64) (int, error) {
	if len(records) == 0 && advanceTo <= 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	saved := 0
	for _, r := range records {
		factors, err := json.Marshal(r.Factors)
		if err != nil {
			factors = []byte("[]")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO notifications
				(seq, app, delivered_at, title, subtitle, body, category, thread,
				 score, level, factors, raw, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
			ON CONFLICT(seq) DO UPDATE SET
				app          = excluded.app,
				delivered_at = excluded.delivered_at,
				title        = excluded.title,
				subtitle     = excluded.subtitle,
				body         = excluded.body,
				category     = excluded.category,
				thread       = excluded.thread,
				score        = excluded.score,
				level        = excluded.level,
				factors      = excluded.factors,
				raw          = excluded.raw,
				updated_at   = datetime('now')`,
			r.Seq, r.App, r.DeliveredAt.Unix(),
			r.Title, r.Subtitle, r.Body, r.Category, r.Thread,
			r.Score, string(r.Level), string(factors), r.Raw,
		); err != nil {
			return 0, fmt.Errorf("store: upsert seq %d: %w", r.Seq, err)
		}
		saved++
	}

	current, err := watermarkTx(ctx, tx)
	if err != nil {
		return 0, err
	}
	if advanceTo > current {
		if err := setMetaTx(ctx, tx, metaWatermark, strconv.FormatInt(advanceTo, 10)); err != nil {
			return 0, fmt.Errorf("store: advance watermark: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit upsert: %w", err)
	}
	return saved, nil
}

// Watermark returns the highest durably ingested seq, 0 when nothing has
// been ingested yet.
func (s *Store) Watermark(ctx context.Context) (int64, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, metaWatermark,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read watermark: %w", err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("store: watermark %q is not a number: %w", v, err)
	}
	return n, nil
}

func watermarkTx(ctx context.Context, tx *sql.Tx) (int64, error) {
	var v string
	err := tx.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, metaWatermark,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read watermark: %w", err)
	}
	n, _ := strconv.ParseInt(v, 10, 64)
	return n, nil
}

func setMetaTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		key, value,
	)
	return err
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		key, value,
	)
	return err
}

func (s *Store) getMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// ─── Heartbeat ───────────────────────────────────────────────────────────────

// Heartbeat is the extraction loop's last-cycle marker, read by the
// status tool instead of inspecting the daemon process.
type Heartbeat struct {
	LastCycleAt    time.Time `json:"last_cycle_at"`
	LastCycleCount int       `json:"last_cycle_count"`
}

// WriteHeartbeat records the completion time and new-record count of an
// extraction cycle.
func (s *Store) WriteHeartbeat(ctx context.Context, at time.Time, count int) error {
	if err := s.setMeta(ctx, metaCycleAt, at.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("store: write heartbeat: %w", err)
	}
	if err := s.setMeta(ctx, metaCycleCount, strconv.Itoa(count)); err != nil {
		return fmt.Errorf("store: write heartbeat: %w", err)
	}
	return nil
}

// ReadHeartbeat returns the last extraction cycle marker; the zero value
// when no cycle has ever completed.
func (s *Store) ReadHeartbeat(ctx context.Context) (Heartbeat, error) {
	var hb Heartbeat
	if v, ok, err := s.getMeta(ctx, metaCycleAt); err != nil {
		return hb, fmt.Errorf("store: read heartbeat: %w", err)
	} else if ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			hb.LastCycleAt = t
		}
	}
	if v, ok, err := s.getMeta(ctx, metaCycleCount); err != nil {
		return hb, fmt.Errorf("store: read heartbeat: %w", err)
	} else if ok {
		hb.LastCycleCount, _ = strconv.Atoi(v)
	}
	return hb, nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// Get returns the record with the given seq.
func (s *Store) Get(ctx context.Context, seq int64) (*notification.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordCols+` FROM notifications WHERE seq = ?`, seq,
	)
	r, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("store: get seq %d: %w", seq, err)
	}
	return &r, nil
}

// Select returns records matching a prepared WHERE fragment. The
// fragment and args come from the search predicate builder; an empty
// fragment matches everything. orderBy defaults to delivery time
// descending; limit <= 0 means no limit.
func (s *Store) Select(ctx context.Context, where string, args []any, orderBy string, limit int) ([]notification.Record, error) {
	q := `SELECT ` + recordCols + ` FROM notifications`
	if where != "" {
		q += " WHERE " + where
	}
	if orderBy == "" {
		orderBy = "delivered_at DESC"
	}
	q += " ORDER BY " + orderBy
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: select: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

// RecentOptions filters the Recent listing.
type RecentOptions struct {
	Limit      int
	App        string // substring match on the identifier
	UnreadOnly bool
}

// Recent returns the newest non-archived records.
func (s *Store) Recent(ctx context.Context, opts RecentOptions) ([]notification.Record, error) {
	where := "is_archived = 0"
	args := []any{}
	if opts.App != "" {
		where += " AND LOWER(app) LIKE ?"
		args = append(args, "%"+strings.ToLower(opts.App)+"%")
	}
	if opts.UnreadOnly {
		where += " AND is_read = 0"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	return s.Select(ctx, where, args, "delivered_at DESC", limit)
}

// TopPriority returns non-archived records at or above minLevel
// delivered since the given time, highest score first. A minLevel of
// UNKNOWN disables the level cut.
func (s *Store) TopPriority(ctx context.Context, minLevel notification.Level, since time.Time, limit int) ([]notification.Record, error) {
	where := "is_archived = 0"
	args := []any{}
	if !since.IsZero() {
		where += " AND delivered_at >= ?"
		args = append(args, since.Unix())
	}
	if levels := levelsAtOrAbove(minLevel); len(levels) > 0 {
		where += " AND level IN (" + placeholders(len(levels)) + ")"
		for _, l := range levels {
			args = append(args, string(l))
		}
	}
	if limit <= 0 {
		limit = 10
	}
	return s.Select(ctx, where, args, "score DESC, delivered_at DESC", limit)
}

// Since returns all non-archived records delivered at or after the
// given time, oldest first. Used as cluster input.
func (s *Store) Since(ctx context.Context, t time.Time, limit int) ([]notification.Record, error) {
	return s.Select(ctx,
		"is_archived = 0 AND delivered_at >= ?", []any{t.Unix()},
		"delivered_at ASC", limit,
	)
}

// Cleanup deletes non-archived records older than the retention window
// and returns how many were removed. Archived records are kept
// indefinitely.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE delivered_at < ? AND is_archived = 0`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("store: cleanup: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ─── Scanning ────────────────────────────────────────────────────────────────

type rowLike interface {
	Scan(dest ...any) error
}

func scanRecord(row rowLike) (notification.Record, error) {
	var (
		r         notification.Record
		delivered int64
		level     string
		factors   string
	)
	err := row.Scan(
		&r.Seq, &r.App, &delivered,
		&r.Title, &r.Subtitle, &r.Body, &r.Category, &r.Thread,
		&r.Score, &level, &factors, &r.Read, &r.Archived, &r.Raw,
	)
	if err != nil {
		return r, err
	}
	r.DeliveredAt = time.Unix(delivered, 0)
	r.Level = notification.ParseLevel(level)
	// A factors column this store did not write degrades to no factors.
	_ = json.Unmarshal([]byte(factors), &r.Factors)
	return r, nil
}

func scanRecords(rows *sql.Rows) ([]notification.Record, error) {
	var out []notification.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// levelsAtOrAbove lists the level names ranked at or above min,
// most severe first. UNKNOWN yields nil (no constraint).
func levelsAtOrAbove(min notification.Level) []notification.Level {
	if min.Rank() == 0 {
		return nil
	}
	all := []notification.Level{
		notification.LevelCritical,
		notification.LevelHigh,
		notification.LevelMedium,
		notification.LevelLow,
	}
	var out []notification.Level
	for _, l := range all {
		if l.Rank() >= min.Rank() {
			out = append(out, l)
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
