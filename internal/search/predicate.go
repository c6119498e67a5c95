package search

import (
	"strings"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/query"
)

// textContains matches a lowercased substring against any text field.
const textContains = "(LOWER(title) LIKE ? OR LOWER(subtitle) LIKE ? OR LOWER(body) LIKE ?)"

// BuildPredicate translates a filter into a parameterized WHERE fragment
// over the notifications table. The fragment is a conjunction of the
// filter's clauses; an empty filter yields an empty fragment. Keywords
// are conjunctive, fields within a keyword disjunctive, exclusions
// negated. A regex pattern replaces keyword matching entirely; the
// pattern itself is applied by the executor, not here.
func BuildPredicate(f query.Filter) (string, []any) {
	var conds []string
	var args []any

	if f.Start != nil {
		conds = append(conds, "delivered_at >= ?")
		args = append(args, f.Start.Unix())
	}
	if f.End != nil {
		conds = append(conds, "delivered_at <= ?")
		args = append(args, f.End.Unix())
	}

	switch f.Priority {
	case "":
	case "important":
		conds = append(conds, "level IN (?, ?)")
		args = append(args, string(notification.LevelCritical), string(notification.LevelHigh))
	default:
		conds = append(conds, "level = ?")
		args = append(args, strings.ToUpper(f.Priority))
	}

	if len(f.Apps) > 0 {
		conds = append(conds, "app IN ("+placeholders(len(f.Apps))+")")
		for _, a := range f.Apps {
			args = append(args, a)
		}
	}

	if f.Pattern == "" {
		for _, kw := range f.Keywords {
			conds = append(conds, textContains)
			args = append(args, likeArg(kw), likeArg(kw), likeArg(kw))
		}
	}
	for _, ex := range f.Exclude {
		conds = append(conds, "NOT "+textContains)
		args = append(args, likeArg(ex), likeArg(ex), likeArg(ex))
	}

	return strings.Join(conds, " AND "), args
}

func likeArg(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
