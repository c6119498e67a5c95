package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/notedaemon/noted/internal/notification"
)

// Stats is a point-in-time summary of the persisted store.
type Stats struct {
	Total     int64            `json:"total"`
	Unread    int64            `json:"unread"`
	Archived  int64            `json:"archived"`
	ByLevel   map[string]int64 `json:"by_level"`
	TopApps   []AppCount       `json:"top_apps"`
	Oldest    time.Time        `json:"oldest,omitempty"`
	Newest    time.Time        `json:"newest,omitempty"`
	Watermark int64            `json:"watermark"`
}

// AppCount pairs an app identifier with its record count.
type AppCount struct {
	App   string `json:"app"`
	Count int64  `json:"count"`
}

// Stats summarizes the store: totals, unread/archived counts, the level
// histogram, the ten busiest apps, and the delivery time range.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByLevel: map[string]int64{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_archived = 1 THEN 1 ELSE 0 END), 0)
		FROM notifications`,
	).Scan(&st.Total, &st.Unread, &st.Archived)
	if err != nil {
		return st, fmt.Errorf("store: stats totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT level, COUNT(*) FROM notifications GROUP BY level`)
	if err != nil {
		return st, fmt.Errorf("store: stats by level: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var level string
		var n int64
		if err := rows.Scan(&level, &n); err != nil {
			return st, fmt.Errorf("store: stats by level: %w", err)
		}
		st.ByLevel[level] = n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	appRows, err := s.db.QueryContext(ctx, `
		SELECT app, COUNT(*) AS n FROM notifications
		GROUP BY app ORDER BY n DESC, app ASC LIMIT 10`)
	if err != nil {
		return st, fmt.Errorf("store: stats top apps: %w", err)
	}
	defer func() { _ = appRows.Close() }()
	for appRows.Next() {
		var ac AppCount
		if err := appRows.Scan(&ac.App, &ac.Count); err != nil {
			return st, fmt.Errorf("store: stats top apps: %w", err)
		}
		st.TopApps = append(st.TopApps, ac)
	}
	if err := appRows.Err(); err != nil {
		return st, err
	}

	var oldest, newest sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT MIN(delivered_at), MAX(delivered_at) FROM notifications`,
	).Scan(&oldest, &newest)
	if err != nil {
		return st, fmt.Errorf("store: stats range: %w", err)
	}
	if oldest.Valid {
		st.Oldest = time.Unix(oldest.Int64, 0)
	}
	if newest.Valid {
		st.Newest = time.Unix(newest.Int64, 0)
	}

	st.Watermark, err = s.Watermark(ctx)
	if err != nil {
		return st, err
	}
	return st, nil
}

// HourlyPattern counts deliveries per local hour of day over the last
// days. The result always has 24 buckets, index = hour.
func (s *Store) HourlyPattern(ctx context.Context, days int) ([24]int64, error) {
	var buckets [24]int64
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days).Unix()

	// Bucketing happens here rather than in SQL so local-time rules
	// (DST included) come from Go's tz database.
	rows, err := s.db.QueryContext(ctx,
		`SELECT delivered_at FROM notifications WHERE delivered_at >= ?`, since)
	if err != nil {
		return buckets, fmt.Errorf("store: hourly pattern: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var at int64
		if err := rows.Scan(&at); err != nil {
			return buckets, fmt.Errorf("store: hourly pattern: %w", err)
		}
		buckets[time.Unix(at, 0).Local().Hour()]++
	}
	return buckets, rows.Err()
}

// DayCount is one day's delivery count, Day formatted 2006-01-02 local.
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// DailyTrend counts deliveries per local calendar day over the last
// days, oldest day first. Days with no deliveries appear with count 0 so
// gaps are visible.
func (s *Store) DailyTrend(ctx context.Context, days int) ([]DayCount, error) {
	if days <= 0 {
		days = 7
	}
	now := time.Now()
	first := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -(days - 1))

	counts := map[string]int64{}
	rows, err := s.db.QueryContext(ctx,
		`SELECT delivered_at FROM notifications WHERE delivered_at >= ?`, first.Unix())
	if err != nil {
		return nil, fmt.Errorf("store: daily trend: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var at int64
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("store: daily trend: %w", err)
		}
		counts[time.Unix(at, 0).Local().Format("2006-01-02")]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DayCount, 0, days)
	for d := 0; d < days; d++ {
		day := first.AddDate(0, 0, d).Format("2006-01-02")
		out = append(out, DayCount{Day: day, Count: counts[day]})
	}
	return out, nil
}

// AppStats is one app's slice of the store.
type AppStats struct {
	App      string           `json:"app"`
	Count    int64            `json:"count"`
	Unread   int64            `json:"unread"`
	AvgScore float64          `json:"avg_score"`
	ByLevel  map[string]int64 `json:"by_level"`
}

// AppBreakdown returns per-app counts, unread counts, average score, and
// the level split, busiest apps first.
func (s *Store) AppBreakdown(ctx context.Context, limit int) ([]AppStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT app,
		       COUNT(*) AS n,
		       COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(score), 0),
		       COALESCE(SUM(CASE WHEN level = 'CRITICAL' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN level = 'HIGH' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN level = 'MEDIUM' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN level = 'LOW' THEN 1 ELSE 0 END), 0)
		FROM notifications
		GROUP BY app ORDER BY n DESC, app ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: app breakdown: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AppStats
	for rows.Next() {
		var (
			a                           AppStats
			critical, high, medium, low int64
		)
		if err := rows.Scan(&a.App, &a.Count, &a.Unread, &a.AvgScore,
			&critical, &high, &medium, &low); err != nil {
			return nil, fmt.Errorf("store: app breakdown: %w", err)
		}
		a.ByLevel = map[string]int64{
			string(notification.LevelCritical): critical,
			string(notification.LevelHigh):     high,
			string(notification.LevelMedium):   medium,
			string(notification.LevelLow):      low,
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
