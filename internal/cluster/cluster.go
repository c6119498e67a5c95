// Package cluster segments time-ordered notifications into key-affine
// runs and writes a one-line summary per run. A cluster key is the app
// identifier refined by camera subtype and location, or by thread, or by
// the normalized title, so structurally identical notifications land in
// the same bucket even when amounts, times or counters differ.
package cluster

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/notedaemon/noted/internal/notification"
)

// Cluster kinds, derived from the owning app identifier.
const (
	TypeCamera  = "security_camera"
	TypeMessage = "message"
	TypeEmail   = "email"
	TypeGeneral = "general"
)

// Cluster is one key-affine run of notifications. Transient; built per
// request and never persisted.
type Cluster struct {
	Key      string                `json:"key"`
	Type     string                `json:"type"`
	Subtype  string                `json:"subtype,omitempty"`  // camera clusters only
	Location string                `json:"location,omitempty"` // camera clusters only
	Count    int                   `json:"count"`
	FirstAt  time.Time             `json:"first_at"`
	LastAt   time.Time             `json:"last_at"`
	Summary  string                `json:"summary"`
	Records  []notification.Record `json:"records"`
}

// Config bounds segmentation. Zero values fall back to defaults.
type Config struct {
	Window  time.Duration // max gap between adjacent members, default 15m
	MinSize int           // clusters below this size are dropped, default 2
}

// DefaultConfig returns the stock segmentation bounds.
func DefaultConfig() Config {
	return Config{Window: 15 * time.Minute, MinSize: 2}
}

// Engine groups notifications. Stateless apart from its config; safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// New builds an Engine, filling config zero values from DefaultConfig.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = def.MinSize
	}
	return &Engine{cfg: cfg}
}

// ─────────────────────────── Normalization ───────────────────────────

var variablePatterns = []struct {
	re    *regexp.Regexp
	token string
}{
	{regexp.MustCompile(`\$[\d,]+\.?\d*`), "[AMOUNT]"},
	{regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*[AP]M`), "[TIME]"},
	{regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`), "[DATE]"},
	{regexp.MustCompile(`#\d+`), "[NUMBER]"},
	{regexp.MustCompile(`\b\d+\b`), "[COUNT]"},
}

// Normalize replaces variable fragments (amounts, clock times, dates,
// reference numbers, bare integers) with placeholder tokens. Idempotent:
// the tokens contain nothing the patterns match.
func Normalize(text string) string {
	for _, p := range variablePatterns {
		text = p.re.ReplaceAllString(text, p.token)
	}
	return strings.TrimSpace(text)
}

// ─────────────────────────── Keying ───────────────────────────

// cameraPatterns in priority order; the first hit names the subtype.
var cameraPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"vehicle", regexp.MustCompile(`(?i)vehicle.*detected|car.*detected`)},
	{"stranger", regexp.MustCompile(`(?i)stranger.*detected`)},
	{"motion", regexp.MustCompile(`(?i)motion.*detected`)},
	{"person", regexp.MustCompile(`(?i)person.*detected`)},
}

var locationPattern = regexp.MustCompile(`^([^:]+):`)

func typeFor(app string) string {
	a := strings.ToLower(app)
	switch {
	case strings.Contains(a, "com.security.batterycam"):
		return TypeCamera
	case strings.Contains(a, "mobilesms"):
		return TypeMessage
	case strings.Contains(a, "mail"):
		return TypeEmail
	}
	return TypeGeneral
}

// cameraSubtype classifies a detection event from title+body.
func cameraSubtype(r notification.Record) string {
	text := r.Title + " " + r.Body
	for _, p := range cameraPatterns {
		if p.re.MatchString(text) {
			return p.name
		}
	}
	return ""
}

// cameraLocation pulls the label from a leading "Label:" body prefix.
func cameraLocation(r notification.Record) string {
	if m := locationPattern.FindStringSubmatch(r.Body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// keyFor derives the grouping key and presentation metadata for one
// record. Camera keys carry subtype and location; everything else keys
// on thread when set, else the normalized title.
func keyFor(r notification.Record) (key, typ, subtype, location string) {
	typ = typeFor(r.App)
	parts := []string{r.App}
	if typ == TypeCamera {
		subtype = cameraSubtype(r)
		location = cameraLocation(r)
		if subtype != "" {
			parts = append(parts, "camera_"+subtype)
		}
		if location != "" {
			parts = append(parts, strings.ReplaceAll(strings.ToLower(location), " ", "_"))
		}
	} else if r.Thread != "" {
		parts = append(parts, r.Thread)
	} else if r.Title != "" {
		parts = append(parts, Normalize(r.Title))
	}
	return strings.Join(parts, "|"), typ, subtype, location
}

// ─────────────────────────── Segmentation ───────────────────────────

// Cluster segments records into per-key runs. Records are processed in
// delivery order; a gap larger than the window closes the key's open run
// and the next record starts a fresh one. Runs below MinSize are
// dropped. Returned clusters keep chronological order of their first
// member.
func (e *Engine) Cluster(records []notification.Record) []Cluster {
	ordered := make([]notification.Record, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DeliveredAt.Before(ordered[j].DeliveredAt)
	})

	var all []*Cluster
	open := make(map[string]*Cluster)
	for _, r := range ordered {
		key, typ, subtype, location := keyFor(r)
		c := open[key]
		if c != nil && r.DeliveredAt.Sub(c.LastAt) > e.cfg.Window {
			c = nil
		}
		if c == nil {
			c = &Cluster{
				Key:      key,
				Type:     typ,
				Subtype:  subtype,
				Location: location,
				FirstAt:  r.DeliveredAt,
			}
			open[key] = c
			all = append(all, c)
		}
		c.Records = append(c.Records, r)
		c.LastAt = r.DeliveredAt
	}

	var out []Cluster
	for _, c := range all {
		if len(c.Records) < e.cfg.MinSize {
			continue
		}
		c.Count = len(c.Records)
		c.Summary = summarize(*c)
		out = append(out, *c)
	}
	return out
}

// ─────────────────────────── Summaries ───────────────────────────

func summarize(c Cluster) string {
	span := fmt.Sprintf("%s - %s", c.FirstAt.Format("3:04 PM"), c.LastAt.Format("3:04 PM"))
	switch c.Type {
	case TypeCamera:
		location := c.Location
		if location == "" {
			location = "Camera"
		}
		if hasStranger(c.Records) {
			return fmt.Sprintf("%s: %d detections including STRANGER ⚠️ (%s)", location, c.Count, span)
		}
		subtype := c.Subtype
		if subtype == "" {
			subtype = "activity"
		}
		return fmt.Sprintf("%s: %d %s detections (%s)", location, c.Count, subtype, span)
	case TypeMessage:
		return fmt.Sprintf("%s: %d messages", senderOf(c.Records), c.Count)
	case TypeEmail:
		if subject := c.Records[0].Subtitle; subject != "" {
			return fmt.Sprintf("%s: %s (%d emails)", senderOf(c.Records), subject, c.Count)
		}
		return fmt.Sprintf("%s: %d emails", senderOf(c.Records), c.Count)
	}
	return fmt.Sprintf("%s: %d notifications (%s)", c.Records[0].AppShort(), c.Count, span)
}

func senderOf(records []notification.Record) string {
	if title := records[0].Title; title != "" {
		return title
	}
	return "Unknown"
}

func hasStranger(records []notification.Record) bool {
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Body), "stranger") {
			return true
		}
	}
	return false
}
