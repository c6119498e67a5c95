package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/notedaemon/noted/internal/notification"
)

// Selection identifies the records a batch action applies to. Criteria
// combine conjunctively; at least one must be set, so an accidental empty
// selection can never sweep the whole store.
type Selection struct {
	Seqs   []int64            `json:"seqs,omitempty"`
	App    string             `json:"app,omitempty"` // substring match on the identifier
	Level  notification.Level `json:"level,omitempty"`
	Before *time.Time         `json:"before,omitempty"` // delivered strictly before
	After  *time.Time         `json:"after,omitempty"`  // delivered at or after
}

func (sel Selection) empty() bool {
	return len(sel.Seqs) == 0 && sel.App == "" &&
		sel.Level.Rank() == 0 && sel.Before == nil && sel.After == nil
}

// predicate renders the selection as a WHERE fragment.
func (sel Selection) predicate() (string, []any) {
	var conds []string
	var args []any

	if len(sel.Seqs) > 0 {
		conds = append(conds, "seq IN ("+placeholders(len(sel.Seqs))+")")
		for _, seq := range sel.Seqs {
			args = append(args, seq)
		}
	}
	if sel.App != "" {
		conds = append(conds, "LOWER(app) LIKE ?")
		args = append(args, "%"+strings.ToLower(sel.App)+"%")
	}
	if sel.Level.Rank() != 0 {
		conds = append(conds, "level = ?")
		args = append(args, string(sel.Level))
	}
	if sel.Before != nil {
		conds = append(conds, "delivered_at < ?")
		args = append(args, sel.Before.Unix())
	}
	if sel.After != nil {
		conds = append(conds, "delivered_at >= ?")
		args = append(args, sel.After.Unix())
	}
	return strings.Join(conds, " AND "), args
}

// BatchResult reports one batch action. DryRun results carry no BatchID
// because nothing was written.
type BatchResult struct {
	BatchID  string `json:"batch_id,omitempty"`
	Action   string `json:"action"`
	Affected int64  `json:"affected"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

// MarkRead flags the selected unread records as read.
func (s *Store) MarkRead(ctx context.Context, sel Selection, dryRun bool) (BatchResult, error) {
	return s.batchUpdate(ctx, "mark_read", sel, dryRun,
		"is_read = 1", "is_read = 0", nil)
}

// MarkUnread flags the selected read records as unread.
func (s *Store) MarkUnread(ctx context.Context, sel Selection, dryRun bool) (BatchResult, error) {
	return s.batchUpdate(ctx, "mark_unread", sel, dryRun,
		"is_read = 0", "is_read = 1", nil)
}

// Archive flags the selected records as archived, exempting them from
// retention cleanup.
func (s *Store) Archive(ctx context.Context, sel Selection, dryRun bool) (BatchResult, error) {
	return s.batchUpdate(ctx, "archive", sel, dryRun,
		"is_archived = 1", "is_archived = 0", nil)
}

// SetLevel overrides the priority level of the selected records.
func (s *Store) SetLevel(ctx context.Context, sel Selection, level notification.Level, dryRun bool) (BatchResult, error) {
	if level.Rank() == 0 {
		return BatchResult{}, fmt.Errorf("store: set_level: %q is not a level", level)
	}
	return s.batchUpdate(ctx, "set_level", sel, dryRun,
		"level = ?", "level <> ?", []any{string(level)})
}

// batchUpdate runs one guarded UPDATE: set is the assignment, guard skips
// rows already in the target state so Affected counts real flips.
func (s *Store) batchUpdate(ctx context.Context, action string, sel Selection, dryRun bool, set, guard string, setArgs []any) (BatchResult, error) {
	if sel.empty() {
		return BatchResult{}, fmt.Errorf("store: %s: empty selection", action)
	}
	where, args := sel.predicate()
	guardWhere := "(" + where + ") AND " + guard
	guardArgs := append(append([]any{}, args...), setArgs...)

	if dryRun {
		n, err := s.countWhere(ctx, guardWhere, guardArgs)
		if err != nil {
			return BatchResult{}, fmt.Errorf("store: %s dry run: %w", action, err)
		}
		return BatchResult{Action: action, Affected: n, DryRun: true}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BatchResult{}, fmt.Errorf("store: begin %s: %w", action, err)
	}
	defer tx.Rollback() //nolint:errcheck

	id := s.newBatchID()
	stmt := "UPDATE notifications SET " + set + ", batch_id = ?, updated_at = datetime('now') WHERE " + guardWhere
	stmtArgs := append(append(append([]any{}, setArgs...), id), guardArgs...)
	res, err := tx.ExecContext(ctx, stmt, stmtArgs...)
	if err != nil {
		return BatchResult{}, fmt.Errorf("store: %s: %w", action, err)
	}
	affected, _ := res.RowsAffected()

	if err := logBatchTx(ctx, tx, id, action, affected, sel); err != nil {
		return BatchResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return BatchResult{}, fmt.Errorf("store: commit %s: %w", action, err)
	}
	return BatchResult{BatchID: id, Action: action, Affected: affected}, nil
}

// DeleteBatch removes the selected records outright. Unlike retention
// cleanup it also deletes archived records when they match.
func (s *Store) DeleteBatch(ctx context.Context, sel Selection, dryRun bool) (BatchResult, error) {
	if sel.empty() {
		return BatchResult{}, fmt.Errorf("store: delete: empty selection")
	}
	where, args := sel.predicate()

	if dryRun {
		n, err := s.countWhere(ctx, where, args)
		if err != nil {
			return BatchResult{}, fmt.Errorf("store: delete dry run: %w", err)
		}
		return BatchResult{Action: "delete", Affected: n, DryRun: true}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BatchResult{}, fmt.Errorf("store: begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, "DELETE FROM notifications WHERE "+where, args...)
	if err != nil {
		return BatchResult{}, fmt.Errorf("store: delete: %w", err)
	}
	affected, _ := res.RowsAffected()

	id := s.newBatchID()
	if err := logBatchTx(ctx, tx, id, "delete", affected, sel); err != nil {
		return BatchResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return BatchResult{}, fmt.Errorf("store: commit delete: %w", err)
	}
	return BatchResult{BatchID: id, Action: "delete", Affected: affected}, nil
}

// BatchLogEntry is one journaled batch action.
type BatchLogEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Affected  int64     `json:"affected"`
	Criteria  string    `json:"criteria"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchLog returns the most recent batch actions, newest first.
func (s *Store) BatchLog(ctx context.Context, limit int) ([]BatchLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, affected, criteria, created_at
		FROM batch_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: batch log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []BatchLogEntry
	for rows.Next() {
		var e BatchLogEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Action, &e.Affected, &e.Criteria, &created); err != nil {
			return nil, fmt.Errorf("store: scan batch log: %w", err)
		}
		e.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) newBatchID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) countWhere(ctx context.Context, where string, args []any) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE "+where, args...,
	).Scan(&n)
	return n, err
}

func logBatchTx(ctx context.Context, tx *sql.Tx, id, action string, affected int64, sel Selection) error {
	criteria, err := json.Marshal(sel)
	if err != nil {
		criteria = []byte("{}")
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO batch_log (id, action, affected, dry_run, criteria)
		VALUES (?, ?, ?, 0, ?)`,
		id, action, affected, string(criteria),
	); err != nil {
		return fmt.Errorf("store: log batch %s: %w", action, err)
	}
	return nil
}
