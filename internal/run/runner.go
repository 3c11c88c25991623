// Package run drives one autopost invocation end to end: eligibility,
// candidate selection, multi-platform publish, state commit, notification.
package run

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"autopost/internal/content"
	"autopost/internal/publish"
	"autopost/internal/window"
	logx "autopost/pkg/logx"
)

// Notifier receives outcome events. Implementations must never block or
// fail the posting flow. *notify.Service satisfies this.
type Notifier interface {
	Published(item content.Item, message string, outcomes publish.OutcomeSet)
	Skipped(reason, detail string)
	Failed(message, detail string)
}

type nopNotifier struct{}

func (nopNotifier) Published(content.Item, string, publish.OutcomeSet) {}
func (nopNotifier) Skipped(string, string)                            {}
func (nopNotifier) Failed(string, string)                             {}

// Trigger is one invocation request. Window is required; its absence is an
// input error, distinct from "not eligible".
type Trigger struct {
	Window string
}

// Runner owns the invocation pipeline. It is stateless across invocations
// except for the injected best-effort daily counter.
type Runner struct {
	log       logx.Logger
	eval      *window.Evaluator
	counter   *window.DailyCounter
	source    content.Source
	selector  *content.Selector
	committer *content.Committer
	orch      *publish.Orchestrator
	pubs      []publish.Publisher
	notifier  Notifier
	cooldown  time.Duration

	now func() time.Time
}

type Deps struct {
	Log        logx.Logger
	Evaluator  *window.Evaluator
	Counter    *window.DailyCounter
	Source     content.Source
	Selector   *content.Selector
	Committer  *content.Committer
	Orch       *publish.Orchestrator
	Publishers []publish.Publisher
	Notifier   Notifier
	Cooldown   time.Duration
	Now        func() time.Time
}

func New(d Deps) *Runner {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Cooldown <= 0 {
		d.Cooldown = content.DefaultCooldown
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	return &Runner{
		log:       d.Log,
		eval:      d.Evaluator,
		counter:   d.Counter,
		source:    d.Source,
		selector:  d.Selector,
		committer: d.Committer,
		orch:      d.Orch,
		pubs:      d.Publishers,
		notifier:  d.Notifier,
		cooldown:  d.Cooldown,
		now:       d.Now,
	}
}

// Run executes one invocation. It always returns a structured Outcome;
// nothing propagates past it, including panics.
func (r *Runner) Run(ctx context.Context, trig Trigger) (out Outcome) {
	log := r.log.With(
		logx.String("run_id", uuid.NewString()),
		logx.String("window", trig.Window))

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			log.Error("invocation panicked", logx.Err(err))
			r.notifier.Failed("unexpected failure during posting", err.Error())
			out = Outcome{Class: ClassInternal, Window: trig.Window, Err: err}
		}
	}()

	if strings.TrimSpace(trig.Window) == "" {
		log.Warn("trigger missing window name")
		r.notifier.Skipped("no posting window specified in request", "")
		return Outcome{Class: ClassInput, Reason: "no window name provided"}
	}

	now := r.now()
	decision := r.eval.Decide(now, trig.Window, r.counter)
	if !decision.Eligible {
		if decision.Reason == window.ReasonUnknownWindow {
			log.Warn("trigger for unknown window")
			r.notifier.Skipped("unknown posting window", "Window: "+trig.Window)
			return Outcome{Class: ClassInput, Reason: decision.Reason, Window: trig.Window}
		}
		log.Info("skipping post", logx.String("reason", decision.Reason))
		r.notifier.Skipped(decision.Reason, "Window: "+trig.Window)
		return Outcome{Class: ClassSkipped, Reason: decision.Reason, Window: trig.Window}
	}

	items, err := r.source.List(ctx)
	if err != nil {
		log.Error("listing content items failed", logx.Err(err))
		r.notifier.Failed("could not read content source", err.Error())
		return Outcome{Class: ClassInternal, Window: trig.Window, Err: err}
	}
	log.Debug("content items loaded", logx.Int("count", len(items)))

	item, err := r.selector.Pick(items, now, r.cooldown)
	if err != nil {
		if errors.Is(err, content.ErrNoEligible) {
			log.Info("no eligible posts, all items inside cooldown")
			r.notifier.Skipped("no eligible posts", "All items posted within the cooldown period.")
			return Outcome{Class: ClassSkipped, Reason: "no eligible posts", Window: trig.Window}
		}
		r.notifier.Failed("candidate selection failed", err.Error())
		return Outcome{Class: ClassInternal, Window: trig.Window, Err: err}
	}

	message, err := r.selector.PickMessage(item)
	if err != nil {
		log.Warn("selected item has no usable message variants",
			logx.String("url", item.URL))
		r.notifier.Skipped("no usable message variants", "Item: "+item.URL)
		return Outcome{Class: ClassSkipped, Reason: "no usable message variants", Window: trig.Window, ItemURL: item.URL}
	}

	log.Info("publishing",
		logx.String("url", item.URL),
		logx.Int("platforms", len(r.pubs)))

	outcomes := r.orch.Publish(ctx, publish.Post{
		Message:  message,
		URL:      item.URL,
		Title:    item.Title,
		ImageURL: item.Image,
	}, r.pubs)

	base := Outcome{
		Window:   trig.Window,
		ItemURL:  item.URL,
		Message:  message,
		Outcomes: outcomes,
	}

	if !outcomes.Success() {
		log.Error("no platforms posted successfully")
		r.notifier.Failed("no platforms posted successfully", outcomeDetail(outcomes))
		base.Class = ClassPublishFailed
		base.Reason = "all platforms failed"
		return base
	}

	// Post is live on at least one platform; commit the marker exactly once.
	if err := r.committer.Commit(ctx, item.URL, now); err != nil {
		// The platform shows the post but the source of truth was not
		// updated. Logged distinctly so operators can reconcile by hand.
		log.Error("commit failed after successful publish",
			logx.String("url", item.URL), logx.Err(err))
		r.notifier.Failed("post published but last-posted update failed", err.Error())
		base.Class = ClassCommitFailed
		base.Err = err
		return base
	}

	r.notifier.Published(item, message, outcomes)
	log.Info("invocation complete",
		logx.Any("platforms", outcomes.Succeeded()))
	base.Class = ClassPublished
	return base
}

func outcomeDetail(outcomes publish.OutcomeSet) string {
	names := make([]string, 0, len(outcomes))
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		o := outcomes[name]
		if !o.OK() {
			parts = append(parts, name+": "+o.Error)
		}
	}
	if len(parts) == 0 {
		return "no platforms enabled"
	}
	return strings.Join(parts, "\n")
}
