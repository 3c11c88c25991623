package window

import (
	"math/rand"
	"time"

	logx "autopost/pkg/logx"
)

// Mode selects the trust boundary for trigger timing.
type Mode string

const (
	// ModeHTTP trusts the external scheduler that fired the trigger: the
	// window only has to exist, and the probability gate still applies.
	ModeHTTP Mode = "http"
	// ModeCron verifies time-of-day membership itself, then applies the
	// daily guard and the probability gate.
	ModeCron Mode = "cron"
)

// Skip reasons, stable strings surfaced in responses and notifications.
const (
	ReasonUnknownWindow = "unknown window"
	ReasonOutsideWindow = "outside window"
	ReasonAlreadyPosted = "already posted today"
	ReasonProbability   = "probability check failed"
)

// Decision is the outcome of one eligibility check. Never persisted.
type Decision struct {
	Eligible bool
	Window   string
	Reason   string
}

// Evaluator decides whether a trigger for a named window should post.
//
// The random source is injected so tests can supply deterministic draws;
// fairness, not security, is the requirement here.
type Evaluator struct {
	reg        *Registry
	mode       Mode
	dailyGuard bool
	randFloat  func() float64
	log        logx.Logger
}

type EvaluatorOption func(*Evaluator)

// WithRand replaces the probability-gate random source.
func WithRand(f func() float64) EvaluatorOption {
	return func(e *Evaluator) { e.randFloat = f }
}

// WithDailyGuard toggles the one-post-per-window-per-day check (cron mode).
func WithDailyGuard(enabled bool) EvaluatorOption {
	return func(e *Evaluator) { e.dailyGuard = enabled }
}

func NewEvaluator(reg *Registry, mode Mode, log logx.Logger, opts ...EvaluatorOption) *Evaluator {
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Evaluator{
		reg:        reg,
		mode:       mode,
		dailyGuard: mode == ModeCron,
		randFloat:  rand.Float64,
		log:        log,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Decide evaluates the posting gate for windowName at now.
//
// counter may be nil; when present and the decision is eligible, the post is
// recorded into it. That recording is the only state mutation here.
func (e *Evaluator) Decide(now time.Time, windowName string, counter *DailyCounter) Decision {
	w, ok := e.reg.Lookup(windowName)
	if !ok {
		return Decision{Window: windowName, Reason: ReasonUnknownWindow}
	}

	if e.mode == ModeCron {
		// Cron-only windows fire exactly on their spec; there is no range
		// to re-verify.
		if w.HasRange && !w.InRange(now) {
			e.log.Debug("trigger outside window range",
				logx.String("window", w.Name),
				logx.Time("now", now.In(w.Loc)))
			return Decision{Window: w.Name, Reason: ReasonOutsideWindow}
		}
		if e.dailyGuard && counter != nil && counter.Count(w.DayKey(now), w.Name) > 0 {
			return Decision{Window: w.Name, Reason: ReasonAlreadyPosted}
		}
	}

	if w.Probability < 1 {
		draw := e.randFloat()
		if draw >= w.Probability {
			e.log.Info("probability gate suppressed post",
				logx.String("window", w.Name),
				logx.Float64("p", w.Probability),
				logx.Float64("draw", draw))
			return Decision{Window: w.Name, Reason: ReasonProbability}
		}
	}

	if counter != nil {
		counter.Record(w.DayKey(now), w.Name)
	}
	return Decision{Eligible: true, Window: w.Name}
}
