// Package search executes parsed queries against the persisted store.
//
// The executor owns the query-to-SQL translation and everything SQLite
// cannot do natively: regex patterns run in Go over the fetched rows
// (the driver has no REGEXP function), and group-by partitioning
// happens after the query. Results are memoized in an expiring LRU so
// an assistant re-asking the same question inside a few minutes does
// not re-scan the store.
package search

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/query"
)

// Store is the slice of the persisted store the executor needs.
type Store interface {
	Select(ctx context.Context, where string, args []any, orderBy string, limit int) ([]notification.Record, error)
}

// Config tunes result bounds and the query result cache. CacheTTL <= 0
// disables caching.
type Config struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
	CacheSize    int
}

// DefaultConfig returns the stock executor tuning.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: 50,
		MaxLimit:     1000,
		CacheTTL:     5 * time.Minute,
		CacheSize:    256,
	}
}

// Group is one partition of a grouped result.
type Group struct {
	Label   string                `json:"label"`
	Records []notification.Record `json:"records"`
}

// Result is the answer to one query: the filter the query parsed to,
// the matching records, and (when the query asked for grouping) the
// partitioned view of those same records.
type Result struct {
	Filter  query.Filter          `json:"filter"`
	Records []notification.Record `json:"records"`
	Groups  []Group               `json:"groups,omitempty"`
}

// Executor runs free-text queries against a Store.
type Executor struct {
	store Store
	cfg   Config
	cache *expirable.LRU[string, Result]
}

// New builds an executor. Zero config fields fall back to DefaultConfig.
func New(store Store, cfg Config) *Executor {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	e := &Executor{store: store, cfg: cfg}
	if cfg.CacheTTL > 0 {
		size := cfg.CacheSize
		if size <= 0 {
			size = def.CacheSize
		}
		e.cache = expirable.NewLRU[string, Result](size, nil, cfg.CacheTTL)
	}
	return e
}

// Search parses rawQuery and executes it. limit <= 0 uses the default
// limit; anything above the max is clamped. Archived records never
// match.
func (e *Executor) Search(ctx context.Context, rawQuery string, limit int) (Result, error) {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	key := strconv.Itoa(limit) + "|" + rawQuery
	if e.cache != nil {
		if res, ok := e.cache.Get(key); ok {
			return res, nil
		}
	}

	f := query.Parse(rawQuery)
	records, err := e.run(ctx, f, limit)
	if err != nil {
		return Result{}, err
	}

	res := Result{Filter: f, Records: records}
	if f.GroupBy != "" {
		res.Groups = partition(records, f.GroupBy)
	}
	if e.cache != nil {
		e.cache.Add(key, res)
	}
	return res, nil
}

func (e *Executor) run(ctx context.Context, f query.Filter, limit int) ([]notification.Record, error) {
	where, args := BuildPredicate(f)
	if where == "" {
		where = "is_archived = 0"
	} else {
		where = "is_archived = 0 AND " + where
	}
	orderBy := orderFor(f.SortBy)

	if f.Pattern == "" {
		return e.store.Select(ctx, where, args, orderBy, limit)
	}

	re, err := regexp.Compile(f.Pattern)
	if err != nil {
		return nil, fmt.Errorf("search: pattern /%s/: %w", f.Pattern, err)
	}
	// Patterns cannot be pushed into SQL, so fetch unbounded and filter
	// until the limit fills.
	candidates, err := e.store.Select(ctx, where, args, orderBy, 0)
	if err != nil {
		return nil, err
	}
	var out []notification.Record
	for _, r := range candidates {
		if !re.MatchString(r.Text()) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func orderFor(sortBy string) string {
	if sortBy == "priority" {
		return "score DESC, delivered_at DESC"
	}
	return "delivered_at DESC"
}

// partition buckets records by a discrete key, keeping the records'
// order inside each bucket and the buckets in first-seen order. This is
// the grouping engine's discrete-key mode; time-window clustering lives
// in the cluster package.
func partition(records []notification.Record, groupBy string) []Group {
	var labels []string
	byLabel := make(map[string][]notification.Record)
	for _, r := range records {
		l := groupLabel(r, groupBy)
		if _, seen := byLabel[l]; !seen {
			labels = append(labels, l)
		}
		byLabel[l] = append(byLabel[l], r)
	}
	groups := make([]Group, 0, len(labels))
	for _, l := range labels {
		groups = append(groups, Group{Label: l, Records: byLabel[l]})
	}
	return groups
}

func groupLabel(r notification.Record, groupBy string) string {
	switch groupBy {
	case "app":
		return r.AppShort()
	case "hour":
		return r.DeliveredAt.Local().Format("2006-01-02 15:00")
	case "day":
		return r.DeliveredAt.Local().Format("2006-01-02")
	}
	return ""
}
