// Package scoring assigns each notification a numeric priority score, a
// discrete level, and an ordered list of factor strings explaining the
// score.
//
// Scoring is deterministic for a fixed clock: the same record scored at
// the same instant always yields the same score, level, and factors.
// Factors are emitted in a fixed sequence (keyword categories, monetary
// amount, date mention, app weight, age multiplier, special patterns).
// No sub-step ever fails; anything unparseable contributes nothing.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/notedaemon/noted/internal/notification"
)

var (
	moneyPattern = regexp.MustCompile(`\$[\d,]+\.?\d*`)
	clockPattern = regexp.MustCompile(`\b\d{1,2}:\d{2}\s*(?:am|pm|AM|PM)?\b`)
)

// Config tunes the engine. Zero fields fall back to the stock values in
// DefaultConfig.
type Config struct {
	CriticalThreshold float64
	HighThreshold     float64
	MediumThreshold   float64
	DecayWindow       time.Duration
	BoostWindow       time.Duration
	AppWeights        []AppWeight
}

// DefaultConfig returns the stock thresholds, time windows, and app
// weight table.
func DefaultConfig() Config {
	return Config{
		CriticalThreshold: 15,
		HighThreshold:     10,
		MediumThreshold:   5,
		DecayWindow:       24 * time.Hour,
		BoostWindow:       time.Hour,
		AppWeights:        defaultAppWeights(),
	}
}

// Engine scores notifications. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// New creates an Engine, filling unset Config fields from DefaultConfig.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.CriticalThreshold == 0 {
		cfg.CriticalThreshold = def.CriticalThreshold
	}
	if cfg.HighThreshold == 0 {
		cfg.HighThreshold = def.HighThreshold
	}
	if cfg.MediumThreshold == 0 {
		cfg.MediumThreshold = def.MediumThreshold
	}
	if cfg.DecayWindow == 0 {
		cfg.DecayWindow = def.DecayWindow
	}
	if cfg.BoostWindow == 0 {
		cfg.BoostWindow = def.BoostWindow
	}
	if cfg.AppWeights == nil {
		cfg.AppWeights = def.AppWeights
	}
	return &Engine{cfg: cfg}
}

// Score rates r against the current clock.
func (e *Engine) Score(r notification.Record) (float64, notification.Level, []string) {
	return e.ScoreAt(r, time.Now())
}

// ScoreAt rates r as of now. The score is rounded to two decimals before
// the level thresholds are applied.
func (e *Engine) ScoreAt(r notification.Record, now time.Time) (float64, notification.Level, []string) {
	text := strings.ToLower(r.Text())
	score := 0.0
	factors := []string{}

	for _, cat := range categories {
		if w, term := cat.bestMatch(text); w > 0 {
			score += w
			factors = append(factors, fmt.Sprintf("%s:%s(+%s)", cat.name, term, trimFloat(w)))
		}
	}

	if pts, factor := moneyBonus(text); pts > 0 {
		score += pts
		factors = append(factors, factor)
	}

	if pts, factor := dateBonus(text); pts > 0 {
		score += pts
		factors = append(factors, factor)
	}

	if w := e.appWeight(r.App); w != 1.0 {
		score *= w
		factors = append(factors, fmt.Sprintf("app_weight:%s(x%s)", r.App, trimFloat(w)))
	}

	if m, factor := e.ageMultiplier(r.DeliveredAt, now); m != 1.0 {
		score *= m
		factors = append(factors, factor)
	}

	if pts, special := e.specialBonus(r, text); pts > 0 {
		score += pts
		factors = append(factors, special...)
	}

	score = math.Round(score*100) / 100
	return score, e.levelFor(score), factors
}

// Level maps a score to its discrete priority bucket.
func (e *Engine) Level(score float64) notification.Level {
	return e.levelFor(score)
}

func (e *Engine) levelFor(score float64) notification.Level {
	switch {
	case score >= e.cfg.CriticalThreshold:
		return notification.LevelCritical
	case score >= e.cfg.HighThreshold:
		return notification.LevelHigh
	case score >= e.cfg.MediumThreshold:
		return notification.LevelMedium
	default:
		return notification.LevelLow
	}
}

// moneyBonus scores the largest dollar amount mentioned in text.
func moneyBonus(text string) (float64, string) {
	matches := moneyPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0, ""
	}

	max := 0.0
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimPrefix(m, "$"), ",", ""), 64)
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}

	amount := trimFloat(max)
	switch {
	case max >= 1000:
		return 8, fmt.Sprintf("high_amount:$%s(+8)", amount)
	case max >= 100:
		return 5, fmt.Sprintf("medium_amount:$%s(+5)", amount)
	case max > 0:
		return 2, fmt.Sprintf("amount:$%s(+2)", amount)
	}
	return 0, ""
}

// dateBonus scores urgency words first, then an explicit clock time.
// Only the first match counts.
func dateBonus(text string) (float64, string) {
	switch {
	case contains(text, "today"):
		return 5, "date:today(+5)"
	case contains(text, "tomorrow"):
		return 4, "date:tomorrow(+4)"
	case contains(text, "tonight"):
		return 5, "date:tonight(+5)"
	}
	if clockPattern.MatchString(text) {
		return 3, "specific_time(+3)"
	}
	return 0, ""
}

func (e *Engine) appWeight(app string) float64 {
	lowered := strings.ToLower(app)
	for _, aw := range e.cfg.AppWeights {
		if contains(lowered, aw.Match) {
			return aw.Weight
		}
	}
	return 1.0
}

// ageMultiplier boosts notifications inside the boost window, decays
// linearly toward a floor across the decay window, and flattens to 0.7x
// beyond it. A zero delivery time is neutral.
func (e *Engine) ageMultiplier(delivered, now time.Time) (float64, string) {
	if delivered.IsZero() {
		return 1.0, ""
	}

	hours := now.Sub(delivered).Hours()
	boost := e.cfg.BoostWindow.Hours()
	decay := e.cfg.DecayWindow.Hours()

	switch {
	case hours < boost:
		return 1.5, fmt.Sprintf("very_recent:%.1fh(x1.5)", hours)
	case hours < decay:
		m := 1 - (hours/decay)*0.3
		return m, fmt.Sprintf("age:%.1fh(x%.2f)", hours, m)
	default:
		return 0.7, fmt.Sprintf("old:%.1fh(x0.7)", hours)
	}
}

func (e *Engine) specialBonus(r notification.Record, text string) (float64, []string) {
	pts := 0.0
	var factors []string

	// Camera events mentioning strangers or motion matter more at night.
	if contains(strings.ToLower(r.App), "batterycam") &&
		(contains(text, "stranger") || contains(text, "motion")) &&
		!r.DeliveredAt.IsZero() {
		if h := r.DeliveredAt.Hour(); h < 6 || h > 22 {
			pts += 5
			factors = append(factors, "security_night(+5)")
		}
	}

	if contains(text, "!!!") || hasShoutedWord(r.Text()) {
		pts += 2
		factors = append(factors, "emphasis(+2)")
	}

	if contains(text, "?") && containsAny(text, responseWords) {
		pts += 3
		factors = append(factors, "question_response(+3)")
	}

	return pts, factors
}

// hasShoutedWord reports whether any word of four or more letters is
// written entirely in capitals. Checked against the original casing, not
// the lowered scan text.
func hasShoutedWord(text string) bool {
	for _, word := range strings.Fields(text) {
		letters := 0
		upper := true
		for _, c := range word {
			if unicode.IsLetter(c) {
				letters++
				if !unicode.IsUpper(c) {
					upper = false
					break
				}
			}
		}
		if upper && letters >= 4 {
			return true
		}
	}
	return false
}

func contains(text, sub string) bool {
	return strings.Contains(text, sub)
}

func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if contains(text, s) {
			return true
		}
	}
	return false
}

// trimFloat formats without trailing zeros: 10 not 10.0, 1.5 not 1.50.
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
