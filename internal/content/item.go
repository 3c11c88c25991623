package content

import (
	"strings"
	"time"
)

// Item is one postable content unit. The URL doubles as its identity and is
// the key used for last-posted updates.
type Item struct {
	URL        string `json:"url"`
	Image      string `json:"image,omitempty"`
	Title      string `json:"title,omitempty"`
	Messages   string `json:"messages"`
	LastPosted string `json:"last_posted,omitempty"`
}

// lastPostedLayouts are accepted on read. Writes always use RFC3339 UTC;
// the extra layouts tolerate rows edited by hand.
var lastPostedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LastPostedTime parses the stored last-posted value.
// ok is false when the field is empty or unparseable.
func (i Item) LastPostedTime() (t time.Time, ok bool) {
	raw := strings.TrimSpace(i.LastPosted)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range lastPostedLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// MessageVariants splits the pipe-delimited message field into trimmed,
// non-empty variants.
func (i Item) MessageVariants() []string {
	parts := strings.Split(i.Messages, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
