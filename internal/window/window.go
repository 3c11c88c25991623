package window

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"autopost/internal/config"
)

// Clock is a time of day, minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) minuteOfDay() int { return c.Hour*60 + c.Minute }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Window is one named posting window. Immutable after registry construction.
type Window struct {
	Name   string
	Region string

	// Cron is the external trigger spec (may be empty if Start/End are set).
	Cron string

	// Start/End bound a time-of-day range in Loc, inclusive on both ends.
	// HasRange reports whether the range is configured.
	Start    Clock
	End      Clock
	HasRange bool
	Loc      *time.Location

	// Probability in [0,1]; 1 means always eligible once triggered.
	Probability float64
}

// InRange reports whether now (converted to the window's timezone) falls in
// [Start, End]. Both minute boundaries are inclusive. A range spans at most
// two clock hours, which the registry enforces, so the membership test only
// has to consider the start hour and the end hour.
func (w Window) InRange(now time.Time) bool {
	if !w.HasRange {
		return false
	}
	local := now.In(w.Loc)
	hour, minute := local.Hour(), local.Minute()

	switch {
	case w.Start.Hour == w.End.Hour:
		return hour == w.Start.Hour && minute >= w.Start.Minute && minute <= w.End.Minute
	case hour == w.Start.Hour:
		return minute >= w.Start.Minute
	case hour == w.End.Hour:
		return minute <= w.End.Minute
	default:
		return false
	}
}

// DayKey returns the calendar day of now in the window's reference timezone.
// Day boundary is local midnight.
func (w Window) DayKey(now time.Time) string {
	loc := w.Loc
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}

// Registry is the static posting-window table. Built once at load time,
// read-only afterwards.
type Registry struct {
	windows map[string]Window
	names   []string
}

// NewRegistry validates and indexes the configured windows.
func NewRegistry(cfgs map[string]config.WindowConfig) (*Registry, error) {
	r := &Registry{windows: make(map[string]Window, len(cfgs))}

	for name, wc := range cfgs {
		w, err := buildWindow(name, wc)
		if err != nil {
			return nil, err
		}
		r.windows[name] = w
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)

	if err := checkOverlap(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup returns the window for name.
func (r *Registry) Lookup(name string) (Window, bool) {
	w, ok := r.windows[name]
	return w, ok
}

// Names returns all window names, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// All returns windows in name order.
func (r *Registry) All() []Window {
	out := make([]Window, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.windows[n])
	}
	return out
}

func buildWindow(name string, wc config.WindowConfig) (Window, error) {
	if strings.TrimSpace(name) == "" {
		return Window{}, fmt.Errorf("window name must not be empty")
	}

	w := Window{
		Name:        name,
		Region:      wc.Region,
		Cron:        strings.TrimSpace(wc.Cron),
		Probability: 1,
		Loc:         time.UTC,
	}
	if wc.Probability != nil {
		w.Probability = *wc.Probability
	}

	tz := strings.TrimSpace(wc.Timezone)
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Window{}, fmt.Errorf("windows.%s: invalid timezone %q: %w", name, tz, err)
		}
		w.Loc = loc
	}

	hasStart := strings.TrimSpace(wc.Start) != ""
	hasEnd := strings.TrimSpace(wc.End) != ""
	if hasStart != hasEnd {
		return Window{}, fmt.Errorf("windows.%s: start and end must be set together", name)
	}
	if hasStart {
		start, err := parseHHMM(wc.Start)
		if err != nil {
			return Window{}, fmt.Errorf("windows.%s: start: %w", name, err)
		}
		end, err := parseHHMM(wc.End)
		if err != nil {
			return Window{}, fmt.Errorf("windows.%s: end: %w", name, err)
		}
		// At most two clock hours: same hour, or the next one.
		if end.Hour != start.Hour && end.Hour != (start.Hour+1)%24 {
			return Window{}, fmt.Errorf("windows.%s: range %s-%s spans more than two clock hours", name, start, end)
		}
		if end.Hour == start.Hour && end.Minute < start.Minute {
			return Window{}, fmt.Errorf("windows.%s: end %s is before start %s", name, end, start)
		}
		w.Start, w.End, w.HasRange = start, end, true
	}

	if !w.HasRange && w.Cron == "" {
		return Window{}, fmt.Errorf("windows.%s: either cron or start/end is required", name)
	}
	return w, nil
}

// checkOverlap rejects ranged windows whose same-day intervals intersect.
// Overlapping ranges would break one-post-per-window-per-day accounting:
// a single instant could satisfy two windows at once.
func checkOverlap(r *Registry) error {
	type span struct {
		name     string
		from, to int // minutes of day; to may exceed 1440 for midnight wrap
	}
	var spans []span
	for _, n := range r.names {
		w := r.windows[n]
		if !w.HasRange {
			continue
		}
		from := w.Start.minuteOfDay()
		to := w.End.minuteOfDay()
		if to < from {
			to += 24 * 60
		}
		spans = append(spans, span{name: n, from: from, to: to})
	}
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			// Compare in modular day space so a midnight wrap still collides.
			for _, shift := range []int{-24 * 60, 0, 24 * 60} {
				if a.from <= b.to+shift && b.from+shift <= a.to {
					return fmt.Errorf("windows %s and %s overlap", a.name, b.name)
				}
			}
		}
	}
	return nil
}

func parseHHMM(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}
