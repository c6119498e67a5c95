// Package source reads notifications out of the live macOS Notification
// Center store (owned by the usernoted daemon) without ever locking it.
// Each extraction works on a throwaway snapshot copy: snapshot, query
// rows past the watermark, decode payloads, discard the copy.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/payload"
)

// appleEpochOffset converts the store's delivered_date (seconds since
// 2001-01-01 UTC) to unix seconds.
const appleEpochOffset = 978307200

// DefaultBatchSize caps rows per extraction cycle.
const DefaultBatchSize = 100

// Extractor pulls new records from the live store. Safe for a single
// extraction loop; not meant to be shared across goroutines.
type Extractor struct {
	srcPath string
	tmpRoot string
}

// NewExtractor creates an Extractor for the live store at srcPath.
func NewExtractor(srcPath string) *Extractor {
	return &Extractor{srcPath: srcPath}
}

// ExtractBatch returns up to limit records with seq > afterSeq in
// ascending seq order, payloads decoded, scoring fields unset. A record
// whose payload cannot be decoded keeps empty text fields rather than
// being dropped. When the live store is unreadable the error matches
// ErrUnavailable and the batch is empty; the caller should skip the
// cycle, not fail.
//
// The caller owns the rest of the ingestion contract: score, persist,
// then advance the watermark to the last record's Seq, and only after
// the whole batch is durably stored.
func (e *Extractor) ExtractBatch(ctx context.Context, afterSeq int64, limit int) ([]notification.Record, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	snap, err := TakeSnapshot(e.srcPath, e.tmpRoot)
	if err != nil {
		return nil, err
	}
	defer func() { _ = snap.Close() }()

	db, err := sql.Open("sqlite", snap.DBPath)
	if err != nil {
		return nil, fmt.Errorf("source: open snapshot: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, `
		SELECT rec.rec_id, app.identifier, rec.delivered_date, rec.data
		FROM record rec
		LEFT JOIN app ON rec.app_id = app.app_id
		WHERE rec.delivered_date IS NOT NULL AND rec.rec_id > ?
		ORDER BY rec.rec_id ASC
		LIMIT ?`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("source: query snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batch []notification.Record
	for rows.Next() {
		var (
			seq       int64
			app       sql.NullString
			delivered float64
			data      []byte
		)
		if err := rows.Scan(&seq, &app, &delivered, &data); err != nil {
			return nil, fmt.Errorf("source: scan row: %w", err)
		}

		r := notification.Record{
			Seq:         seq,
			App:         "Unknown",
			DeliveredAt: time.Unix(appleEpochOffset+int64(delivered), 0),
			Raw:         data,
		}
		if app.Valid && app.String != "" {
			r.App = app.String
		}

		// Decode degrades to empty fields on malformed payloads;
		// extraction never drops a row over its blob.
		c := payload.Decode(data)
		r.Title, r.Subtitle, r.Body = c.Title, c.Subtitle, c.Body
		r.Category, r.Thread = c.Category, c.Thread

		batch = append(batch, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source: read snapshot rows: %w", err)
	}
	return batch, nil
}
