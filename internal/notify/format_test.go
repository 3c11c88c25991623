package notify

import (
	"strings"
	"testing"
	"time"

	"autopost/internal/content"
	"autopost/internal/publish"
)

var formatAt = time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

func TestFormatPublished(t *testing.T) {
	t.Parallel()
	item := content.Item{URL: "https://blog/a?x=1&y=2"}
	outcomes := publish.OutcomeSet{
		"twitter":  {PostID: "123"},
		"linkedin": {Error: "token is unauthorized - needs refresh", Class: publish.FailCredential},
	}

	got := formatPublished(item, "Hello <world>", outcomes, formatAt)

	if !strings.Contains(got, "New post published!") {
		t.Fatalf("missing headline: %q", got)
	}
	if !strings.Contains(got, "Hello &lt;world&gt;") {
		t.Fatalf("message not HTML-escaped: %q", got)
	}
	if !strings.Contains(got, "https://blog/a?x=1&amp;y=2") {
		t.Fatalf("url not HTML-escaped: %q", got)
	}
	if !strings.Contains(got, "𝕏 Twitter") {
		t.Fatalf("missing platform label: %q", got)
	}
	if !strings.Contains(got, "💼 LinkedIn: token is unauthorized") {
		t.Fatalf("missing failure line: %q", got)
	}
	if !strings.Contains(got, "10 Mar 2026, 09:15") {
		t.Fatalf("missing display timestamp: %q", got)
	}
}

func TestFormatPublishedAllOK(t *testing.T) {
	t.Parallel()
	got := formatPublished(content.Item{URL: "u"}, "m", publish.OutcomeSet{
		"twitter":  {PostID: "1"},
		"linkedin": {PostID: "2"},
	}, formatAt)
	if strings.Contains(got, "Failed") {
		t.Fatalf("no failure section expected: %q", got)
	}
	if !strings.Contains(got, "𝕏 Twitter, 💼 LinkedIn") {
		t.Fatalf("platforms should be sorted and joined: %q", got)
	}
}

func TestFormatSkipped(t *testing.T) {
	t.Parallel()
	got := formatSkipped("probability check failed", "Window: EU_MORNING", formatAt)
	if !strings.Contains(got, "Post skipped") || !strings.Contains(got, "probability check failed") {
		t.Fatalf("message = %q", got)
	}
	if !strings.Contains(got, "Window: EU_MORNING") {
		t.Fatalf("missing detail: %q", got)
	}
}

func TestFormatFailed(t *testing.T) {
	t.Parallel()
	got := formatFailed("no platforms posted successfully", "twitter: down\nlinkedin: down", formatAt)
	if !strings.Contains(got, "Posting error") {
		t.Fatalf("message = %q", got)
	}
	if !strings.Contains(got, "twitter: down") {
		t.Fatalf("missing detail: %q", got)
	}
}

func TestPlatformLabelFallback(t *testing.T) {
	t.Parallel()
	if got := platformLabel("mastodon"); got != "mastodon" {
		t.Fatalf("label = %q, want raw name for unknown platform", got)
	}
}
