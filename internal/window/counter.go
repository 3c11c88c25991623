package window

import "sync"

// DailyCounter tracks posts per calendar day within one process.
//
// It is best-effort only: the map is lost on restart and is never shared
// across instances. It exists to suppress duplicate posts inside a single
// long-lived process, not to provide cross-invocation exclusion.
type DailyCounter struct {
	mu        sync.Mutex
	day       string
	total     int
	perWindow map[string]int
}

func NewDailyCounter() *DailyCounter {
	return &DailyCounter{perWindow: map[string]int{}}
}

// Count returns how many posts were recorded for window on day.
func (c *DailyCounter) Count(day, window string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollLocked(day)
	return c.perWindow[window]
}

// Total returns the day's overall post count.
func (c *DailyCounter) Total(day string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollLocked(day)
	return c.total
}

// Record notes one post for window on day.
func (c *DailyCounter) Record(day, window string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollLocked(day)
	c.total++
	c.perWindow[window]++
}

func (c *DailyCounter) rollLocked(day string) {
	if c.day == day {
		return
	}
	c.day = day
	c.total = 0
	c.perWindow = map[string]int{}
}
