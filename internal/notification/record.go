// Package notification defines the shared record model passed between the
// extraction pipeline, the scoring engine, the persisted store, and the
// MCP/CLI surfaces.
package notification

import (
	"strings"
	"time"
)

// Level is the discrete priority bucket assigned by the scoring engine.
type Level string

const (
	LevelUnknown  Level = "UNKNOWN"
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// ParseLevel maps a case-insensitive level name to a Level.
// Unrecognized names map to LevelUnknown.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return LevelLow
	case "MEDIUM":
		return LevelMedium
	case "HIGH":
		return LevelHigh
	case "CRITICAL":
		return LevelCritical
	default:
		return LevelUnknown
	}
}

// Rank orders levels for threshold comparisons: UNKNOWN < LOW < MEDIUM <
// HIGH < CRITICAL.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelCritical:
		return 4
	default:
		return 0
	}
}

// Record is one notification as it flows through the pipeline. Seq is the
// source-assigned record identifier and the primary key everywhere; the
// extractor fills the content fields, the scoring engine fills Score, Level
// and Factors, and batch actions flip Read/Archived.
type Record struct {
	Seq         int64     `json:"seq"`
	App         string    `json:"app"`
	DeliveredAt time.Time `json:"delivered_at"`
	Title       string    `json:"title,omitempty"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Body        string    `json:"body,omitempty"`
	Category    string    `json:"category,omitempty"`
	Thread      string    `json:"thread,omitempty"`
	Score       float64   `json:"score"`
	Level       Level     `json:"level"`
	Factors     []string  `json:"factors,omitempty"`
	Read        bool      `json:"read"`
	Archived    bool      `json:"archived"`
	Raw         []byte    `json:"-"`
}

// Text concatenates the displayable fields for keyword scanning.
func (r Record) Text() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Title, r.Subtitle, r.Body} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// AppShort returns the last dot-segment of the app identifier, used as a
// compact display label ("com.apple.mobilesms" -> "mobilesms").
func (r Record) AppShort() string {
	return lastSegment(r.App)
}

// displayNames maps well-known bundle identifiers to friendly names.
var displayNames = map[string]string{
	"com.apple.mobilesms":       "Messages",
	"com.apple.mail":            "Mail",
	"com.microsoft.outlook":     "Outlook",
	"com.microsoft.teams":       "Teams",
	"com.microsoft.teams2":      "Teams",
	"com.apple.facetime":        "FaceTime",
	"com.security.batterycam":   "Security Camera",
	"com.apple.news":            "News",
	"com.apple.passbook":        "Wallet",
	"com.apple.scripteditor2":   "Script Editor",
	"com.weather.twc":           "Weather",
	"com.apple.home":            "Home",
	"com.firewalla.firewalla":   "Firewalla",
	"com.flightyapp.flighty":    "Flighty",
	"com.eero.eero-ios":         "Eero",
	"com.spotify.client":        "Spotify",
	"com.amazon.ring":           "Ring",
	"com.apple.reminders":       "Reminders",
	"com.apple.ical":            "Calendar",
	"com.tinyspeck.slackmacgap": "Slack",
}

// DisplayName returns a human-friendly name for an app identifier,
// falling back to a capitalized last segment for unknown apps.
func DisplayName(app string) string {
	if name, ok := displayNames[strings.ToLower(app)]; ok {
		return name
	}
	seg := lastSegment(app)
	if seg == "" {
		return "Unknown"
	}
	return strings.ToUpper(seg[:1]) + seg[1:]
}

func lastSegment(app string) string {
	if i := strings.LastIndex(app, "."); i >= 0 && i+1 < len(app) {
		return app[i+1:]
	}
	return app
}
