package publish

import (
	"context"
	"fmt"
	"time"
)

// Post is the unit handed to every platform publisher.
type Post struct {
	Message  string
	URL      string
	Title    string
	ImageURL string
}

// Publisher posts to one platform. Implementations must be safe to call
// concurrently with other publishers; they share no state.
type Publisher interface {
	Name() string
	// Publish returns the platform-assigned post id on success.
	Publish(ctx context.Context, post Post) (string, error)
}

// CredentialVerifier is implemented by publishers whose tokens can expire
// (short-lived credentials). A failed verification yields a clear
// "credential expired" signal before any publish is attempted.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context) error
}

// FailureClass tags platform failures for operators.
type FailureClass string

const (
	FailCredential FailureClass = "credential"
	FailRateLimit  FailureClass = "rate_limit"
	FailTimeout    FailureClass = "timeout"
	FailPlatform   FailureClass = "platform"
)

// Error is a classified platform failure.
type Error struct {
	Class      FailureClass
	StatusCode int
	Msg        string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Msg, e.StatusCode)
	}
	return e.Msg
}

// Outcome is one platform's slot in an OutcomeSet.
type Outcome struct {
	PostID string       `json:"id,omitempty"`
	Error  string       `json:"error,omitempty"`
	Class  FailureClass `json:"class,omitempty"`
}

func (o Outcome) OK() bool { return o.Error == "" }

// OutcomeSet aggregates per-platform results, keyed by platform name.
// Disabled platforms have no slot at all.
type OutcomeSet map[string]Outcome

// Success reports whether at least one platform accepted the post.
// An empty set (zero enabled platforms) is not a success.
func (s OutcomeSet) Success() bool {
	for _, o := range s {
		if o.OK() {
			return true
		}
	}
	return false
}

// Succeeded returns the names of platforms that accepted the post.
func (s OutcomeSet) Succeeded() []string {
	var out []string
	for name, o := range s {
		if o.OK() {
			out = append(out, name)
		}
	}
	return out
}

// FormatUntilReset renders the time remaining until a rate-limit reset in a
// form operators can act on ("2h 13m", "45s").
func FormatUntilReset(reset, now time.Time) string {
	d := reset.Sub(now)
	if d <= 0 {
		return "now"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
