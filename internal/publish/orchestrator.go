package publish

import (
	"context"
	"errors"
	"sync"
	"time"

	logx "autopost/pkg/logx"
)

// DefaultTimeout bounds each platform call when no timeout is configured.
// A hung platform must not block the whole invocation forever.
const DefaultTimeout = 30 * time.Second

// Orchestrator fans one post out to all configured publishers.
//
// Platforms are independent side-effecting operations: they run
// concurrently, a failure in one never cancels or rolls back another, and
// every call is awaited to completion before the OutcomeSet is returned.
type Orchestrator struct {
	timeout time.Duration
	log     logx.Logger
}

func NewOrchestrator(timeout time.Duration, log logx.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Orchestrator{timeout: timeout, log: log}
}

// Publish attempts the post on every publisher and collects per-platform
// outcomes. It never returns an error: failures live in the slots.
func (o *Orchestrator) Publish(ctx context.Context, post Post, pubs []Publisher) OutcomeSet {
	set := make(OutcomeSet, len(pubs))
	if len(pubs) == 0 {
		return set
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, p := range pubs {
		wg.Add(1)
		go func(p Publisher) {
			defer wg.Done()
			out := o.publishOne(ctx, post, p)
			mu.Lock()
			set[p.Name()] = out
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return set
}

func (o *Orchestrator) publishOne(ctx context.Context, post Post, p Publisher) Outcome {
	log := o.log.With(logx.String("platform", p.Name()))

	// Expired credentials get their own signal instead of a generic
	// platform error, and skip the publish attempt entirely.
	if v, ok := p.(CredentialVerifier); ok {
		vctx, cancel := context.WithTimeout(ctx, o.timeout)
		err := v.VerifyCredential(vctx)
		cancel()
		if err != nil {
			log.Error("credential verification failed", logx.Err(err))
			return Outcome{Error: "credential expired: " + err.Error(), Class: FailCredential}
		}
	}

	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	id, err := p.Publish(cctx, post)
	if err != nil {
		out := classify(err)
		log.Error("publish failed",
			logx.String("class", string(out.Class)),
			logx.Duration("took", time.Since(start)),
			logx.Err(err))
		return out
	}

	log.Info("publish ok",
		logx.String("post_id", id),
		logx.Duration("took", time.Since(start)))
	return Outcome{PostID: id}
}

func classify(err error) Outcome {
	var perr *Error
	if errors.As(err, &perr) {
		return Outcome{Error: perr.Error(), Class: perr.Class}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Error: "platform call timed out", Class: FailTimeout}
	}
	return Outcome{Error: err.Error(), Class: FailPlatform}
}
