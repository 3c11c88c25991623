// Package trigger runs the self-scheduled (cron) trigger mode: the process
// fires its own window triggers instead of waiting for an external
// scheduler's webhook.
package trigger

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"autopost/internal/run"
	"autopost/internal/window"
	logx "autopost/pkg/logx"
)

type Cron struct {
	mu sync.Mutex

	log    logx.Logger
	reg    *window.Registry
	runner *run.Runner

	c *cron.Cron

	// runMu keeps invocations sequential; the content source's single-row
	// update is the only cross-invocation guard, so overlapping runs in one
	// process would double-post.
	runMu sync.Mutex
}

func NewCron(reg *window.Registry, runner *run.Runner, log logx.Logger) *Cron {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Cron{log: log.With(logx.String("comp", "trigger")), reg: reg, runner: runner}
}

// Specs returns the name→cron mapping for every window, deriving a daily
// spec from the range start for windows without an explicit cron. This is
// also what operators use to provision an external scheduler in http mode.
func Specs(reg *window.Registry) map[string]string {
	out := map[string]string{}
	for _, w := range reg.All() {
		out[w.Name] = windowSpec(w)
	}
	return out
}

func windowSpec(w window.Window) string {
	if w.Cron != "" {
		if w.Loc != nil && w.Loc.String() != "UTC" && w.Loc.String() != "Local" {
			return fmt.Sprintf("CRON_TZ=%s %s", w.Loc, w.Cron)
		}
		return w.Cron
	}
	spec := fmt.Sprintf("%d %d * * *", w.Start.Minute, w.Start.Hour)
	if w.Loc != nil && w.Loc.String() != "UTC" && w.Loc.String() != "Local" {
		return fmt.Sprintf("CRON_TZ=%s %s", w.Loc, spec)
	}
	return spec
}

// Start registers every window and starts the cron loop.
func (t *Cron) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c != nil {
		return nil
	}

	c := cron.New()
	for _, w := range t.reg.All() {
		name := w.Name
		spec := windowSpec(w)
		if _, err := c.AddFunc(spec, func() { t.fire(ctx, name) }); err != nil {
			return fmt.Errorf("windows.%s: invalid cron spec %q: %w", name, spec, err)
		}
		t.log.Info("window scheduled",
			logx.String("window", name),
			logx.String("spec", spec))
	}
	t.c = c
	c.Start()
	return nil
}

func (t *Cron) Stop(ctx context.Context) {
	t.mu.Lock()
	c := t.c
	t.c = nil
	t.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

func (t *Cron) fire(ctx context.Context, name string) {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	out := t.runner.Run(ctx, run.Trigger{Window: name})
	t.log.Info("trigger fired",
		logx.String("window", name),
		logx.String("class", string(out.Class)),
		logx.String("reason", out.Reason))
}
