package run

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"autopost/internal/config"
	"autopost/internal/content"
	"autopost/internal/publish"
	"autopost/internal/window"
	logx "autopost/pkg/logx"
)

type fakeSource struct {
	mu      sync.Mutex
	items   []content.Item
	listErr error
	setErr  error
	commits []string
	panics  bool
}

func (f *fakeSource) List(ctx context.Context) ([]content.Item, error) {
	if f.panics {
		panic("source blew up")
	}
	return f.items, f.listErr
}

func (f *fakeSource) SetLastPosted(ctx context.Context, url string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.commits = append(f.commits, url)
	return nil
}

func (f *fakeSource) Close() error { return nil }

type event struct {
	kind   string
	reason string
	detail string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) Published(item content.Item, message string, outcomes publish.OutcomeSet) {
	n.record(event{kind: "published", detail: item.URL})
}

func (n *recordingNotifier) Skipped(reason, detail string) {
	n.record(event{kind: "skipped", reason: reason, detail: detail})
}

func (n *recordingNotifier) Failed(message, detail string) {
	n.record(event{kind: "failed", reason: message, detail: detail})
}

func (n *recordingNotifier) record(e event) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

func (n *recordingNotifier) last(t *testing.T) event {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		t.Fatal("no notification events recorded")
	}
	return n.events[len(n.events)-1]
}

type stubPublisher struct {
	name string
	id   string
	err  error
}

func (s stubPublisher) Name() string { return s.name }

func (s stubPublisher) Publish(ctx context.Context, post publish.Post) (string, error) {
	return s.id, s.err
}

var runNow = time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

func newRunner(t *testing.T, src content.Source, notifier Notifier, pubs ...publish.Publisher) *Runner {
	t.Helper()
	reg, err := window.NewRegistry(map[string]config.WindowConfig{
		"EU_MORNING": {Start: "09:00", End: "09:30"},
	})
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	return New(Deps{
		Evaluator:  window.NewEvaluator(reg, window.ModeHTTP, logx.Nop()),
		Source:     src,
		Selector:   content.NewSelector(),
		Committer:  content.NewCommitter(src, logx.Nop()),
		Orch:       publish.NewOrchestrator(time.Second, logx.Nop()),
		Publishers: pubs,
		Notifier:   notifier,
		Now:        func() time.Time { return runNow },
	})
}

func TestRunPublishesAndCommits(t *testing.T) {
	t.Parallel()
	src := &fakeSource{items: []content.Item{
		{URL: "https://blog/a", Title: "A", Messages: "hello"},
	}}
	notifier := &recordingNotifier{}
	r := newRunner(t, src, notifier, stubPublisher{name: "twitter", id: "123"})

	out := r.Run(context.Background(), Trigger{Window: "EU_MORNING"})
	if out.Class != ClassPublished {
		t.Fatalf("class = %s (reason %q, err %v), want published", out.Class, out.Reason, out.Err)
	}
	if out.Outcomes["twitter"].PostID != "123" {
		t.Fatalf("outcomes = %+v, want twitter id 123", out.Outcomes)
	}
	if len(src.commits) != 1 || src.commits[0] != "https://blog/a" {
		t.Fatalf("commits = %v, want exactly one for the published item", src.commits)
	}
	if e := notifier.last(t); e.kind != "published" || e.detail != "https://blog/a" {
		t.Fatalf("event = %+v, want published notification", e)
	}
	if out.HTTPStatus() != 200 {
		t.Fatalf("status = %d, want 200", out.HTTPStatus())
	}
}

func TestRunMissingWindow(t *testing.T) {
	t.Parallel()
	notifier := &recordingNotifier{}
	r := newRunner(t, &fakeSource{}, notifier)

	out := r.Run(context.Background(), Trigger{Window: "  "})
	if out.Class != ClassInput {
		t.Fatalf("class = %s, want input error", out.Class)
	}
	if out.HTTPStatus() != 400 {
		t.Fatalf("status = %d, want 400", out.HTTPStatus())
	}
}

func TestRunUnknownWindow(t *testing.T) {
	t.Parallel()
	notifier := &recordingNotifier{}
	r := newRunner(t, &fakeSource{}, notifier)

	out := r.Run(context.Background(), Trigger{Window: "NOPE"})
	if out.Class != ClassInput || out.Reason != window.ReasonUnknownWindow {
		t.Fatalf("outcome = %+v, want unknown-window input error", out)
	}
	if e := notifier.last(t); e.kind != "skipped" {
		t.Fatalf("event = %+v, want skipped notification", e)
	}
}

func TestRunNothingEligible(t *testing.T) {
	t.Parallel()
	src := &fakeSource{items: []content.Item{
		{URL: "https://blog/a", Messages: "m", LastPosted: runNow.Add(-time.Hour).Format(time.RFC3339)},
	}}
	notifier := &recordingNotifier{}
	r := newRunner(t, src, notifier, stubPublisher{name: "twitter", id: "1"})

	out := r.Run(context.Background(), Trigger{Window: "EU_MORNING"})
	if out.Class != ClassSkipped || out.Reason != "no eligible posts" {
		t.Fatalf("outcome = %+v, want cooldown skip", out)
	}
	if len(src.commits) != 0 {
		t.Fatalf("commits = %v, want none on skip", src.commits)
	}
}

func TestRunNoUsableMessage(t *testing.T) {
	t.Parallel()
	src := &fakeSource{items: []content.Item{{URL: "https://blog/a", Messages: " | "}}}
	notifier := &recordingNotifier{}
	r := newRunner(t, src, notifier, stubPublisher{name: "twitter", id: "1"})

	out := r.Run(context.Background(), Trigger{Window: "EU_MORNING"})
	if out.Class != ClassSkipped || out.Reason != "no usable message variants" {
		t.Fatalf("outcome = %+v, want message skip", out)
	}
}

func TestRunAllPlatformsFail(t *testing.T) {
	t.Parallel()
	src := &fakeSource{items: []content.Item{{URL: "https://blog/a", Messages: "m"}}}
	notifier := &recordingNotifier{}
	r := newRunner(t, src, notifier,
		stubPublisher{name: "twitter", err: errors.New("down")},
		stubPublisher{name: "linkedin", err: errors.New("also down")})

	out := r.Run(context.Background(), Trigger{Window: "EU_MORNING"})
	if out.Class != ClassPublishFailed {
		t.Fatalf("class = %s, want publish failed", out.Class)
	}
	if len(src.commits) != 0 {
		t.Fatalf("commits = %v, want none when nothing posted", src.commits)
	}
	if e := notifier.last(t); e.kind != "failed" {
		t.Fatalf("event = %+v, want failure notification", e)
	}
	if out.HTTPStatus() != 200 {
		t.Fatalf("status = %d, completed invocations answer 200", out.HTTPStatus())
	}
}

func TestRunPartialFailureStillCommits(t *testing.T) {
	t.Parallel()
	src := &fakeSource{items: []content.Item{{URL: "https://blog/a", Messages: "m"}}}
	notifier := &recordingNotifier{}
	r := newRunner(t, src, notifier,
		stubPublisher{name: "twitter", id: "123"},
		stubPublisher{name: "linkedin", err: errors.New("down")})

	out := r.Run(context.Background(), Trigger{Window: "EU_MORNING"})
	if out.Class != ClassPublished {
		t.Fatalf("class = %s, want published with one platform up", out.Class)
	}
	if len(src.commits) != 1 {
		t.Fatalf("commits = %v, want exactly one", src.commits)
	}
}

func TestRunCommitFailure(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		items:  []content.Item{{URL: "https://blog/a", Messages: "m"}},
		setErr: content.ErrNotFound,
	}
	notifier := &recordingNotifier{}
	r := newRunner(t, src, notifier, stubPublisher{name: "twitter", id: "123"})

	out := r.Run(context.Background(), Trigger{Window: "EU_MORNING"})
	if out.Class != ClassCommitFailed {
		t.Fatalf("class = %s, want commit failed", out.Class)
	}
	if !errors.Is(out.Err, content.ErrNotFound) {
		t.Fatalf("err = %v, want wrapped ErrNotFound", out.Err)
	}
	if out.HTTPStatus() != 500 {
		t.Fatalf("status = %d, want 500", out.HTTPStatus())
	}
}

func TestRunListFailure(t *testing.T) {
	t.Parallel()
	src := &fakeSource{listErr: errors.New("disk gone")}
	notifier := &recordingNotifier{}
	r := newRunner(t, src, notifier, stubPublisher{name: "twitter", id: "1"})

	out := r.Run(context.Background(), Trigger{Window: "EU_MORNING"})
	if out.Class != ClassInternal {
		t.Fatalf("class = %s, want internal error", out.Class)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	t.Parallel()
	src := &fakeSource{panics: true}
	notifier := &recordingNotifier{}
	r := newRunner(t, src, notifier, stubPublisher{name: "twitter", id: "1"})

	out := r.Run(context.Background(), Trigger{Window: "EU_MORNING"})
	if out.Class != ClassInternal || out.Err == nil {
		t.Fatalf("outcome = %+v, want internal error from recovered panic", out)
	}
}
