// Package query parses free-text notification queries into structured
// filters.
//
// Parsing is order-dependent text stripping: each recognized clause
// records its effect on the Filter and removes the matched text from the
// working copy, so later clause types never re-read it. Anything left
// unmatched falls through to plain keywords. Parsing is total; there is
// no such thing as an invalid query.
package query

import "time"

// Filter is the structured form of one query. It lives for a single
// search; nothing here is persisted.
type Filter struct {
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Priority string     `json:"priority,omitempty"` // level name, or "important" = CRITICAL|HIGH
	Apps     []string   `json:"apps,omitempty"`
	Keywords []string   `json:"keywords,omitempty"` // conjunctive; each matches any text field
	Exclude  []string   `json:"exclude,omitempty"`  // disjunctive veto
	Pattern  string     `json:"pattern,omitempty"`  // regex source; replaces keyword matching
	GroupBy  string     `json:"group_by,omitempty"` // "", app, hour, day
	SortBy   string     `json:"sort_by,omitempty"`  // "", time, priority
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return f.Start == nil && f.End == nil && f.Priority == "" &&
		len(f.Apps) == 0 && len(f.Keywords) == 0 && len(f.Exclude) == 0 &&
		f.Pattern == "" && f.GroupBy == "" && f.SortBy == ""
}

type alias struct {
	name string
	apps []string
}

// appAliases resolves human app names to canonical bundle identifiers.
// Ordered longest name first so "security cameras" wins over "security".
var appAliases = []alias{
	{"security cameras", []string{"com.security.batterycam"}},
	{"security camera", []string{"com.security.batterycam"}},
	{"firewalla", []string{"com.firewalla.firewalla"}},
	{"messages", []string{"com.apple.mobilesms", "com.apple.messages"}},
	{"security", []string{"com.security.batterycam", "com.firewalla.firewalla"}},
	{"cameras", []string{"com.security.batterycam"}},
	{"outlook", []string{"com.microsoft.outlook"}},
	{"camera", []string{"com.security.batterycam"}},
	{"script", []string{"com.apple.scripteditor2"}},
	{"wallet", []string{"com.apple.passbook"}},
	{"teams", []string{"com.microsoft.teams", "com.microsoft.teams2"}},
	{"mail", []string{"com.apple.mail"}},
	{"news", []string{"com.apple.news"}},
}

// priorityPhrases in match order; a later match overwrites an earlier one.
var priorityPhrases = []struct{ phrase, level string }{
	{"critical", "CRITICAL"},
	{"high priority", "HIGH"},
	{"medium priority", "MEDIUM"},
	{"low priority", "LOW"},
	{"important", "important"},
	{"urgent", "CRITICAL"},
}

var sortPhrases = []struct{ phrase, mode string }{
	{"sort by time", "time"},
	{"newest first", "time"},
	{"sort by priority", "priority"},
	{"by priority", "priority"},
}

var namedRanges = []string{
	"today", "yesterday", "this week", "last week", "this month", "last month",
}

var exclusionMarkers = []string{"but not", "except", "without", "excluding"}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "show": true, "me": true, "all": true, "find": true,
	"search": true, "get": true, "list": true,
}
