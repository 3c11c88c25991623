package notify

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"autopost/internal/content"
	"autopost/internal/publish"
)

const displayTimeFormat = "02 Jan 2006, 15:04"

var platformLabels = map[string]string{
	"twitter":  "𝕏 Twitter",
	"linkedin": "💼 LinkedIn",
}

func platformLabel(name string) string {
	if l, ok := platformLabels[name]; ok {
		return l
	}
	return name
}

func formatPublished(item content.Item, message string, outcomes publish.OutcomeSet, at time.Time) string {
	names := make([]string, 0, len(outcomes))
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)

	var platforms []string
	var failures []string
	for _, name := range names {
		o := outcomes[name]
		if o.OK() {
			platforms = append(platforms, platformLabel(name))
		} else {
			failures = append(failures, fmt.Sprintf("%s: %s", platformLabel(name), html.EscapeString(o.Error)))
		}
	}

	var b strings.Builder
	b.WriteString("🚀 <b>New post published!</b>\n\n")
	fmt.Fprintf(&b, "📝 <b>Message:</b>\n%s\n\n", html.EscapeString(message))
	fmt.Fprintf(&b, "🔗 <b>Link:</b>\n%s\n\n", html.EscapeString(item.URL))
	fmt.Fprintf(&b, "📢 <b>Platforms:</b> %s\n", strings.Join(platforms, ", "))
	if len(failures) > 0 {
		fmt.Fprintf(&b, "\n⚠️ <b>Failed:</b>\n%s\n", strings.Join(failures, "\n"))
	}
	fmt.Fprintf(&b, "\n🕐 <b>Posted at:</b> %s", at.Format(displayTimeFormat))
	return b.String()
}

func formatSkipped(reason, detail string, at time.Time) string {
	var b strings.Builder
	b.WriteString("⏭️ <b>Post skipped</b>\n\n")
	b.WriteString(html.EscapeString(reason))
	if detail != "" {
		fmt.Fprintf(&b, "\n\nℹ️ <b>Details:</b>\n%s", html.EscapeString(detail))
	}
	fmt.Fprintf(&b, "\n\n🕐 <b>Time:</b> %s", at.Format(displayTimeFormat))
	return b.String()
}

func formatFailed(message, detail string, at time.Time) string {
	var b strings.Builder
	b.WriteString("❌ <b>Posting error</b>\n\n")
	fmt.Fprintf(&b, "⚠️ <b>Error:</b>\n%s", html.EscapeString(message))
	if detail != "" {
		fmt.Fprintf(&b, "\n\nℹ️ <b>Details:</b>\n%s", html.EscapeString(detail))
	}
	fmt.Fprintf(&b, "\n\n🕐 <b>Time:</b> %s", at.Format(displayTimeFormat))
	return b.String()
}
