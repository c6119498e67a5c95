package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	betweenPattern = regexp.MustCompile(`between\s+(.+?)\s+and\s+(.+?)(?:\s|$)`)
	groupPattern   = regexp.MustCompile(`group(?:ed)?\s+by\s+(app|hour|day)`)
	regexLiteral   = regexp.MustCompile(`/(.+?)/`)
	numberPattern  = regexp.MustCompile(`\d+`)
	wordPattern    = regexp.MustCompile(`\w+`)
)

// Parse converts a free-text query into a Filter against the current
// clock.
func Parse(q string) Filter { return ParseAt(q, time.Now()) }

// ParseAt is Parse with an explicit reference time for relative phrases
// like "today" or "between 2 hours ago and now".
func ParseAt(raw string, now time.Time) Filter {
	q := strings.ToLower(strings.TrimSpace(raw))

	if f, ok := idiomFor(q); ok {
		return f
	}

	var f Filter
	q = extractTimeRange(q, now, &f)
	q = extractPriority(q, &f)
	q = extractApps(q, &f)
	q = extractExclusions(q, &f)
	q = extractGrouping(q, &f)
	q = extractSort(q, &f)
	q = extractPattern(raw, q, &f)
	f.Keywords = remainingKeywords(q)
	return f
}

// ─────────────────────────── Idiom Shortcuts ───────────────────────────

// idiomFor handles a few whole-query idioms that would parse poorly word
// by word. Exact match only; "show me strangers" goes the normal route.
func idiomFor(q string) (Filter, bool) {
	switch q {
	case "strangers", "stranger detections":
		return Filter{
			Keywords: []string{"stranger"},
			Apps:     []string{"com.security.batterycam"},
			SortBy:   "time",
		}, true
	case "security alerts no vehicles", "security no cars":
		return Filter{
			Apps:    []string{"com.security.batterycam"},
			Exclude: []string{"vehicle", "car"},
			SortBy:  "time",
		}, true
	}
	return Filter{}, false
}

// ─────────────────────────── Time Ranges ───────────────────────────

// extractTimeRange handles an explicit "between X and Y" span first,
// then the named calendar ranges. First match wins.
func extractTimeRange(q string, now time.Time, f *Filter) string {
	if m := betweenPattern.FindStringSubmatchIndex(q); m != nil {
		start := parseBound(q[m[2]:m[3]], now, false)
		end := parseBound(q[m[4]:m[5]], now, true)
		if start != nil && end != nil {
			f.Start, f.End = start, end
			return q[:m[0]] + " " + q[m[1]:]
		}
	}
	for _, name := range namedRanges {
		if strings.Contains(q, name) {
			start, end := rangeFor(name, now)
			f.Start, f.End = &start, &end
			return strings.ReplaceAll(q, name, " ")
		}
	}
	return q
}

// parseBound reads one side of a "between X and Y" span: a relative
// "N hours"/"N days" ago, an absolute date, or (for the end side) a
// bare "now"/"today". Returns nil when the text is not a time at all,
// which leaves the whole span to the keyword stage.
func parseBound(s string, now time.Time, isEnd bool) *time.Time {
	s = strings.TrimSpace(s)
	if isEnd && (strings.Contains(s, "now") || strings.Contains(s, "today")) {
		return &now
	}
	if strings.Contains(s, "hour") {
		if n := firstNumber(s); n > 0 {
			t := now.Add(-time.Duration(n) * time.Hour)
			return &t
		}
	}
	if strings.Contains(s, "day") {
		if n := firstNumber(s); n > 0 {
			t := now.AddDate(0, 0, -n)
			return &t
		}
	}
	for _, layout := range []string{"2006-01-02", "1/2/2006"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return &t
		}
	}
	return nil
}

// rangeFor maps a named phrase to a calendar window. Weeks start on
// Monday.
func rangeFor(name string, now time.Time) (time.Time, time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	switch name {
	case "today":
		return midnight, midnight.AddDate(0, 0, 1)
	case "yesterday":
		return midnight.AddDate(0, 0, -1), midnight
	case "this week":
		monday := midnight.AddDate(0, 0, -daysSinceMonday(now))
		return monday, monday.AddDate(0, 0, 7)
	case "last week":
		monday := midnight.AddDate(0, 0, -daysSinceMonday(now))
		return monday.AddDate(0, 0, -7), monday
	case "this month":
		return first, first.AddDate(0, 1, 0)
	case "last month":
		return first.AddDate(0, -1, 0), first
	}
	return now, now
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func firstNumber(s string) int {
	n, _ := strconv.Atoi(numberPattern.FindString(s))
	return n
}

// ─────────────────────────── Clause Extraction ───────────────────────────

func extractPriority(q string, f *Filter) string {
	for _, p := range priorityPhrases {
		if strings.Contains(q, p.phrase) {
			f.Priority = p.level
			q = strings.ReplaceAll(q, p.phrase, " ")
		}
	}
	return q
}

// extractApps resolves "from <alias>" and "in <alias>" phrases. Aliases
// are tried longest first; matched apps union without duplicates.
func extractApps(q string, f *Filter) string {
	for _, a := range appAliases {
		from := "from " + a.name
		in := "in " + a.name
		if strings.Contains(q, from) || strings.Contains(q, in) {
			f.Apps = appendUnique(f.Apps, a.apps...)
			q = strings.ReplaceAll(q, from, " ")
			q = strings.ReplaceAll(q, in, " ")
		}
	}
	return q
}

// extractExclusions consumes each exclusion marker plus the first
// non-stopword word after it.
func extractExclusions(q string, f *Filter) string {
	for _, marker := range exclusionMarkers {
		for {
			i := strings.Index(q, marker)
			if i < 0 {
				break
			}
			word, rest := firstWord(q[i+len(marker):])
			if word != "" {
				f.Exclude = append(f.Exclude, word)
			}
			q = q[:i] + " " + rest
		}
	}
	return q
}

func extractGrouping(q string, f *Filter) string {
	if m := groupPattern.FindStringSubmatch(q); m != nil {
		f.GroupBy = m[1]
		q = groupPattern.ReplaceAllString(q, " ")
	}
	return q
}

func extractSort(q string, f *Filter) string {
	for _, s := range sortPhrases {
		if strings.Contains(q, s.phrase) {
			f.SortBy = s.mode
			q = strings.ReplaceAll(q, s.phrase, " ")
		}
	}
	return q
}

// extractPattern lifts a /regex/ literal. The pattern is taken verbatim
// from the raw query so character classes keep their case.
func extractPattern(raw, q string, f *Filter) string {
	if m := regexLiteral.FindStringSubmatch(raw); m != nil {
		f.Pattern = m[1]
		q = strings.Replace(q, strings.ToLower(m[0]), " ", 1)
	}
	return q
}

func remainingKeywords(q string) []string {
	var words []string
	for _, w := range strings.Fields(q) {
		if len(w) <= 2 || stopwords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}

// firstWord returns the first non-stopword token of s and the text
// after it.
func firstWord(s string) (string, string) {
	for _, span := range wordPattern.FindAllStringIndex(s, -1) {
		w := s[span[0]:span[1]]
		if stopwords[w] {
			continue
		}
		return w, s[span[1]:]
	}
	return "", ""
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		seen := false
		for _, d := range dst {
			if d == it {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, it)
		}
	}
	return dst
}
