package payload

import (
	"testing"

	"howett.net/plist"
)

func binaryPlist(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := plist.Marshal(v, plist.BinaryFormat)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

func TestDecode_InlineRequestDict(t *testing.T) {
	raw := binaryPlist(t, map[string]interface{}{
		"req": map[string]interface{}{
			"titl": "Payment Due",
			"subt": "Visa ending 4242",
			"body": "Your statement is ready",
			"cate": "finance",
			"thre": "billing",
		},
	})

	c := Decode(raw)
	if c.Title != "Payment Due" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Subtitle != "Visa ending 4242" {
		t.Errorf("Subtitle = %q", c.Subtitle)
	}
	if c.Body != "Your statement is ready" {
		t.Errorf("Body = %q", c.Body)
	}
	if c.Category != "finance" {
		t.Errorf("Category = %q", c.Category)
	}
	if c.Thread != "billing" {
		t.Errorf("Thread = %q", c.Thread)
	}
}

func TestDecode_NestedRequestBlob(t *testing.T) {
	inner := binaryPlist(t, map[string]interface{}{
		"titl": "Motion Detected",
		"body": "Front Door: Motion detected",
	})
	raw := binaryPlist(t, map[string]interface{}{"req": inner})

	c := Decode(raw)
	if c.Title != "Motion Detected" {
		t.Errorf("Title = %q, want Motion Detected", c.Title)
	}
	if c.Body != "Front Door: Motion detected" {
		t.Errorf("Body = %q", c.Body)
	}
}

func TestDecode_FallbackKeys(t *testing.T) {
	raw := binaryPlist(t, map[string]interface{}{
		"req": map[string]interface{}{
			"title":    "Long Title Key",
			"mesg":     "Legacy message key",
			"subtitle": "Long Subtitle Key",
		},
	})

	c := Decode(raw)
	if c.Title != "Long Title Key" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Body != "Legacy message key" {
		t.Errorf("Body = %q", c.Body)
	}
	if c.Subtitle != "Long Subtitle Key" {
		t.Errorf("Subtitle = %q", c.Subtitle)
	}
}

func TestDecode_ShortKeysWinOverFallbacks(t *testing.T) {
	raw := binaryPlist(t, map[string]interface{}{
		"req": map[string]interface{}{
			"titl":  "Short",
			"title": "Long",
		},
	})

	if c := Decode(raw); c.Title != "Short" {
		t.Errorf("Title = %q, want Short", c.Title)
	}
}

func TestDecode_PartialFields(t *testing.T) {
	raw := binaryPlist(t, map[string]interface{}{
		"req": map[string]interface{}{"body": "body only"},
	})

	c := Decode(raw)
	if c.Title != "" || c.Subtitle != "" {
		t.Errorf("unexpected fields: %+v", c)
	}
	if c.Body != "body only" {
		t.Errorf("Body = %q", c.Body)
	}
	if c.Empty() {
		t.Error("partial content should not report Empty")
	}
}

func TestDecode_Degrades(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"garbage", []byte("not a plist at all")},
		{"truncated header", []byte("bplist0")},
		{"no req key", binaryPlist(t, map[string]interface{}{"other": "x"})},
		{"req wrong type", binaryPlist(t, map[string]interface{}{"req": "a string"})},
		{"nested garbage", binaryPlist(t, map[string]interface{}{"req": []byte("junk")})},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Decode(c.raw)
			if !got.Empty() {
				t.Errorf("Decode(%s) = %+v, want empty", c.name, got)
			}
		})
	}
}

func TestDecode_NonStringValuesIgnored(t *testing.T) {
	raw := binaryPlist(t, map[string]interface{}{
		"req": map[string]interface{}{
			"titl": 42,
			"body": "still readable",
		},
	})

	c := Decode(raw)
	if c.Title != "" {
		t.Errorf("Title = %q, want empty for non-string value", c.Title)
	}
	if c.Body != "still readable" {
		t.Errorf("Body = %q", c.Body)
	}
}
