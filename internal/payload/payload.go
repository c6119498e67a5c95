// Package payload decodes the binary plist blobs the macOS Notification
// Center stores per delivered notification.
//
// The blob layout changed across macOS versions: the top-level plist is a
// dictionary whose "req" entry is either the request dictionary itself or
// a nested binary plist holding it. Both shapes are handled; anything
// else degrades to an empty Content rather than an error, because the
// pipeline must keep moving past blobs it cannot read.
package payload

import (
	"howett.net/plist"
)

// Content holds the structured text recovered from one payload blob.
// Fields are empty when absent or unreadable.
type Content struct {
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Body     string `json:"body,omitempty"`
	Category string `json:"category,omitempty"`
	Thread   string `json:"thread,omitempty"`
}

// Empty reports whether nothing was recovered from the blob.
func (c Content) Empty() bool {
	return c == Content{}
}

// Decode parses a notification payload blob. It never panics and never
// fails: malformed or unrecognized blobs yield an empty Content.
func Decode(raw []byte) (c Content) {
	defer func() {
		if recover() != nil {
			c = Content{}
		}
	}()

	if len(raw) == 0 {
		return Content{}
	}

	var top map[string]interface{}
	if _, err := plist.Unmarshal(raw, &top); err != nil {
		return Content{}
	}

	switch req := top["req"].(type) {
	case map[string]interface{}:
		return fromRequest(req)
	case []byte:
		// Older payloads nest the request as a second binary plist.
		var inner map[string]interface{}
		if _, err := plist.Unmarshal(req, &inner); err != nil {
			return Content{}
		}
		return fromRequest(inner)
	default:
		return Content{}
	}
}

func fromRequest(req map[string]interface{}) Content {
	return Content{
		Title:    stringKey(req, "titl", "title"),
		Subtitle: stringKey(req, "subt", "subtitle"),
		Body:     stringKey(req, "body", "mesg"),
		Category: stringKey(req, "cate"),
		Thread:   stringKey(req, "thre"),
	}
}

// stringKey returns the first non-empty string value among keys.
func stringKey(d map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := d[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
