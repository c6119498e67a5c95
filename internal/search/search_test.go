package search_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/query"
	"github.com/notedaemon/noted/internal/search"
)

// ─── Predicate ───────────────────────────────────────────────────────────────

func TestBuildPredicate_EmptyFilter(t *testing.T) {
	where, args := search.BuildPredicate(query.Filter{})
	if where != "" {
		t.Errorf("where = %q, want empty", where)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestBuildPredicate_TimeRange(t *testing.T) {
	start := time.Date(2025, time.June, 18, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	where, args := search.BuildPredicate(query.Filter{Start: &start, End: &end})
	if where != "delivered_at >= ? AND delivered_at <= ?" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 || args[0] != start.Unix() || args[1] != end.Unix() {
		t.Errorf("args = %v", args)
	}
}

func TestBuildPredicate_ImportantExpandsToCriticalOrHigh(t *testing.T) {
	where, args := search.BuildPredicate(query.Filter{Priority: "important"})
	if where != "level IN (?, ?)" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 || args[0] != "CRITICAL" || args[1] != "HIGH" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildPredicate_LevelEquality(t *testing.T) {
	where, args := search.BuildPredicate(query.Filter{Priority: "HIGH"})
	if where != "level = ?" || len(args) != 1 || args[0] != "HIGH" {
		t.Errorf("where = %q, args = %v", where, args)
	}
}

func TestBuildPredicate_AppSet(t *testing.T) {
	where, args := search.BuildPredicate(query.Filter{
		Apps: []string{"com.apple.mail", "com.microsoft.outlook"},
	})
	if where != "app IN (?,?)" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 || args[0] != "com.apple.mail" || args[1] != "com.microsoft.outlook" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildPredicate_KeywordsConjunctiveFieldsDisjunctive(t *testing.T) {
	where, args := search.BuildPredicate(query.Filter{Keywords: []string{"Invoice", "overdue"}})
	if strings.Count(where, " AND ") != 1 {
		t.Errorf("keywords not conjunctive: %q", where)
	}
	if strings.Count(where, " OR ") != 4 {
		t.Errorf("fields not disjunctive per keyword: %q", where)
	}
	if len(args) != 6 {
		t.Fatalf("args = %d, want 3 per keyword", len(args))
	}
	if args[0] != "%invoice%" {
		t.Errorf("args[0] = %v, want lowercased substring", args[0])
	}
}

func TestBuildPredicate_ExclusionsNegated(t *testing.T) {
	where, args := search.BuildPredicate(query.Filter{Exclude: []string{"vehicle"}})
	if !strings.HasPrefix(where, "NOT (") {
		t.Errorf("where = %q, want negated group", where)
	}
	if len(args) != 3 || args[0] != "%vehicle%" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildPredicate_PatternSuppressesKeywords(t *testing.T) {
	where, args := search.BuildPredicate(query.Filter{
		Pattern:  `ERR\d+`,
		Keywords: []string{"leftover"},
		Exclude:  []string{"noise"},
	})
	if strings.Contains(where, "%leftover%") || len(args) != 3 {
		t.Errorf("keywords leaked into predicate: %q %v", where, args)
	}
	if !strings.HasPrefix(where, "NOT (") {
		t.Errorf("exclusions dropped with pattern: %q", where)
	}
}

// ─── Executor ────────────────────────────────────────────────────────────────

type fakeStore struct {
	calls   int
	where   string
	args    []any
	orderBy string
	limit   int
	records []notification.Record
	err     error
}

func (f *fakeStore) Select(_ context.Context, where string, args []any, orderBy string, limit int) ([]notification.Record, error) {
	f.calls++
	f.where, f.args, f.orderBy, f.limit = where, args, orderBy, limit
	return f.records, f.err
}

func text(title string) notification.Record {
	return notification.Record{App: "com.apple.mail", Title: title, DeliveredAt: time.Now()}
}

func TestSearch_LimitDefaultsAndClamps(t *testing.T) {
	fake := &fakeStore{}
	ex := search.New(fake, search.Config{DefaultLimit: 25, MaxLimit: 100})

	if _, err := ex.Search(context.Background(), "invoice", 0); err != nil {
		t.Fatal(err)
	}
	if fake.limit != 25 {
		t.Errorf("limit = %d, want default 25", fake.limit)
	}
	if _, err := ex.Search(context.Background(), "invoice", 5000); err != nil {
		t.Fatal(err)
	}
	if fake.limit != 100 {
		t.Errorf("limit = %d, want clamped to 100", fake.limit)
	}
}

func TestSearch_ExcludesArchived(t *testing.T) {
	fake := &fakeStore{}
	ex := search.New(fake, search.Config{})
	if _, err := ex.Search(context.Background(), "", 0); err != nil {
		t.Fatal(err)
	}
	if fake.where != "is_archived = 0" {
		t.Errorf("where = %q", fake.where)
	}
}

func TestSearch_ComposesClauses(t *testing.T) {
	fake := &fakeStore{}
	ex := search.New(fake, search.Config{})
	if _, err := ex.Search(context.Background(), "critical from mail today", 0); err != nil {
		t.Fatal(err)
	}
	want := "is_archived = 0 AND delivered_at >= ? AND delivered_at <= ? AND level = ? AND app IN (?)"
	if fake.where != want {
		t.Errorf("where = %q\nwant    %q", fake.where, want)
	}
	if fake.orderBy != "delivered_at DESC" {
		t.Errorf("orderBy = %q", fake.orderBy)
	}
}

func TestSearch_PrioritySortOrdersByScore(t *testing.T) {
	fake := &fakeStore{}
	ex := search.New(fake, search.Config{})
	if _, err := ex.Search(context.Background(), "invoice by priority", 0); err != nil {
		t.Fatal(err)
	}
	if fake.orderBy != "score DESC, delivered_at DESC" {
		t.Errorf("orderBy = %q", fake.orderBy)
	}
}

func TestSearch_RegexFiltersInGo(t *testing.T) {
	fake := &fakeStore{records: []notification.Record{
		text("ERR42 disk failing"),
		text("all quiet"),
		text("ERR7 fan stopped"),
	}}
	ex := search.New(fake, search.Config{})

	res, err := ex.Search(context.Background(), `/ERR\d+/`, 0)
	if err != nil {
		t.Fatal(err)
	}
	if fake.limit != 0 {
		t.Errorf("store limit = %d, want unbounded fetch for regex", fake.limit)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	if res.Records[0].Title != "ERR42 disk failing" || res.Records[1].Title != "ERR7 fan stopped" {
		t.Errorf("records = %+v", res.Records)
	}
}

func TestSearch_RegexHonorsLimit(t *testing.T) {
	fake := &fakeStore{records: []notification.Record{
		text("ERR1"), text("ERR2"), text("ERR3"),
	}}
	ex := search.New(fake, search.Config{DefaultLimit: 2})

	res, err := ex.Search(context.Background(), `/ERR\d/`, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 {
		t.Errorf("records = %d, want limit-bounded 2", len(res.Records))
	}
}

func TestSearch_BadRegexIsAnError(t *testing.T) {
	ex := search.New(&fakeStore{}, search.Config{})
	_, err := ex.Search(context.Background(), "/[/", 0)
	if err == nil || !strings.Contains(err.Error(), "pattern") {
		t.Fatalf("err = %v, want pattern error", err)
	}
}

func TestSearch_GroupByApp(t *testing.T) {
	fake := &fakeStore{records: []notification.Record{
		{App: "com.apple.mail", Title: "a"},
		{App: "com.apple.mobilesms", Title: "b"},
		{App: "com.apple.mail", Title: "c"},
	}}
	ex := search.New(fake, search.Config{})

	res, err := ex.Search(context.Background(), "group by app", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(res.Groups))
	}
	if res.Groups[0].Label != "mail" || len(res.Groups[0].Records) != 2 {
		t.Errorf("group[0] = %q with %d records", res.Groups[0].Label, len(res.Groups[0].Records))
	}
	if res.Groups[1].Label != "mobilesms" || len(res.Groups[1].Records) != 1 {
		t.Errorf("group[1] = %q with %d records", res.Groups[1].Label, len(res.Groups[1].Records))
	}
}

func TestSearch_GroupByHourAndDayLabels(t *testing.T) {
	at := time.Date(2025, time.June, 18, 14, 35, 0, 0, time.Local)
	fake := &fakeStore{records: []notification.Record{
		{App: "a", DeliveredAt: at},
		{App: "a", DeliveredAt: at.Add(10 * time.Minute)},
		{App: "a", DeliveredAt: at.Add(time.Hour)},
	}}
	ex := search.New(fake, search.Config{})

	res, err := ex.Search(context.Background(), "group by hour", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("hour groups = %d, want 2", len(res.Groups))
	}
	if res.Groups[0].Label != "2025-06-18 14:00" {
		t.Errorf("hour label = %q", res.Groups[0].Label)
	}

	res, err = ex.Search(context.Background(), "group by day", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Groups) != 1 || res.Groups[0].Label != "2025-06-18" {
		t.Errorf("day groups = %+v", res.Groups)
	}
}

func TestSearch_CacheServesRepeats(t *testing.T) {
	fake := &fakeStore{records: []notification.Record{text("hit")}}
	ex := search.New(fake, search.Config{CacheTTL: time.Minute, CacheSize: 8})

	for i := 0; i < 3; i++ {
		res, err := ex.Search(context.Background(), "invoice", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Records) != 1 {
			t.Fatalf("records = %d", len(res.Records))
		}
	}
	if fake.calls != 1 {
		t.Errorf("store queried %d times, want 1", fake.calls)
	}

	if _, err := ex.Search(context.Background(), "invoice", 20); err != nil {
		t.Fatal(err)
	}
	if fake.calls != 2 {
		t.Errorf("different limit should miss the cache: calls = %d", fake.calls)
	}
}

func TestSearch_CacheDisabledWhenTTLZero(t *testing.T) {
	fake := &fakeStore{}
	ex := search.New(fake, search.Config{CacheTTL: 0})

	for i := 0; i < 2; i++ {
		if _, err := ex.Search(context.Background(), "invoice", 10); err != nil {
			t.Fatal(err)
		}
	}
	if fake.calls != 2 {
		t.Errorf("store queried %d times, want 2 without cache", fake.calls)
	}
}
