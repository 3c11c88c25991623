package publish

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logx "autopost/pkg/logx"
)

type fakePublisher struct {
	name   string
	id     string
	err    error
	delay  time.Duration
	calls  atomic.Int32
	verify error
}

func (f *fakePublisher) Name() string { return f.name }

func (f *fakePublisher) Publish(ctx context.Context, post Post) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type verifyingPublisher struct{ fakePublisher }

func (v *verifyingPublisher) VerifyCredential(ctx context.Context) error { return v.verify }

func TestPublishPartialFailure(t *testing.T) {
	t.Parallel()
	a := &fakePublisher{name: "a", id: "123"}
	b := &fakePublisher{name: "b", err: errors.New("boom")}

	set := NewOrchestrator(time.Second, logx.Nop()).Publish(context.Background(), Post{Message: "hi"}, []Publisher{a, b})

	if !set.Success() {
		t.Fatal("expected overall success with one platform up")
	}
	if got := set["a"]; !got.OK() || got.PostID != "123" {
		t.Fatalf("slot a = %+v, want success id 123", got)
	}
	if got := set["b"]; got.OK() || got.Class != FailPlatform {
		t.Fatalf("slot b = %+v, want platform failure", got)
	}
}

func TestPublishAllFail(t *testing.T) {
	t.Parallel()
	a := &fakePublisher{name: "a", err: errors.New("down")}
	b := &fakePublisher{name: "b", err: errors.New("also down")}

	set := NewOrchestrator(time.Second, logx.Nop()).Publish(context.Background(), Post{}, []Publisher{a, b})
	if set.Success() {
		t.Fatal("expected overall failure")
	}
	if len(set) != 2 {
		t.Fatalf("len(set) = %d, want 2", len(set))
	}
}

func TestPublishZeroPlatforms(t *testing.T) {
	t.Parallel()
	set := NewOrchestrator(time.Second, logx.Nop()).Publish(context.Background(), Post{}, nil)
	if set.Success() {
		t.Fatal("zero platforms must not count as success")
	}
	if len(set) != 0 {
		t.Fatalf("len(set) = %d, want 0", len(set))
	}
}

func TestPublishFailureDoesNotStopSibling(t *testing.T) {
	t.Parallel()
	fast := &fakePublisher{name: "fast", err: errors.New("immediate failure")}
	slow := &fakePublisher{name: "slow", id: "ok", delay: 50 * time.Millisecond}

	set := NewOrchestrator(time.Second, logx.Nop()).Publish(context.Background(), Post{}, []Publisher{fast, slow})

	if got := set["slow"]; !got.OK() {
		t.Fatalf("slow slot = %+v, want success despite fast failing first", got)
	}
	if slow.calls.Load() != 1 {
		t.Fatalf("slow calls = %d, want 1", slow.calls.Load())
	}
}

func TestPublishTimeoutClassified(t *testing.T) {
	t.Parallel()
	hung := &fakePublisher{name: "hung", id: "never", delay: time.Minute}

	set := NewOrchestrator(20*time.Millisecond, logx.Nop()).Publish(context.Background(), Post{}, []Publisher{hung})
	got := set["hung"]
	if got.OK() || got.Class != FailTimeout {
		t.Fatalf("slot = %+v, want timeout failure", got)
	}
}

func TestPublishCredentialPrecheck(t *testing.T) {
	t.Parallel()
	bad := &verifyingPublisher{fakePublisher: fakePublisher{name: "li", id: "x", verify: errors.New("expired")}}
	ok := &fakePublisher{name: "tw", id: "42"}

	set := NewOrchestrator(time.Second, logx.Nop()).Publish(context.Background(), Post{}, []Publisher{bad, ok})

	got := set["li"]
	if got.OK() || got.Class != FailCredential {
		t.Fatalf("slot li = %+v, want credential failure", got)
	}
	// The publish itself must have been skipped.
	if bad.calls.Load() != 0 {
		t.Fatalf("publish calls = %d, want 0 after failed verification", bad.calls.Load())
	}
	if !set.Success() {
		t.Fatal("sibling platform should still succeed")
	}
}

func TestClassifyTypedError(t *testing.T) {
	t.Parallel()
	out := classify(&Error{Class: FailRateLimit, StatusCode: 429, Msg: "limit reached"})
	if out.Class != FailRateLimit {
		t.Fatalf("class = %s, want rate_limit", out.Class)
	}
}

func TestFormatUntilReset(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		d    time.Duration
		want string
	}{
		{3*time.Hour + 12*time.Minute, "3h 12m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{45 * time.Second, "45s"},
		{-time.Minute, "now"},
	}
	for _, tt := range tests {
		if got := FormatUntilReset(now.Add(tt.d), now); got != tt.want {
			t.Fatalf("FormatUntilReset(+%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
