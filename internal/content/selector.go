package content

import (
	"errors"
	"math/rand"
	"time"
)

var (
	// ErrNoEligible means every item is still inside its cooldown.
	ErrNoEligible = errors.New("no eligible posts")
	// ErrNoMessages means the chosen item has no usable message variants.
	// This is a data problem, distinct from ErrNoEligible.
	ErrNoMessages = errors.New("no usable message variants")
)

// DefaultCooldown is how long an item sits out after being posted.
const DefaultCooldown = 30 * 24 * time.Hour

// Selector picks a random eligible item and one of its message variants.
//
// The index picker is injected so tests can drive the selection
// deterministically; a plain rand.Intn is fine in production.
type Selector struct {
	intn func(n int) int
}

type SelectorOption func(*Selector)

// WithIntn replaces the random index source.
func WithIntn(f func(n int) int) SelectorOption {
	return func(s *Selector) { s.intn = f }
}

func NewSelector(opts ...SelectorOption) *Selector {
	s := &Selector{intn: rand.Intn}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Eligible filters items whose cooldown has elapsed at now.
//
// An item with an unparseable last-posted value is kept (fail-open): a
// malformed stored timestamp must never permanently drop an item from the
// rotation.
func (s *Selector) Eligible(items []Item, now time.Time, cooldown time.Duration) []Item {
	cutoff := now.Add(-cooldown)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		last, ok := it.LastPostedTime()
		if ok && !last.Before(cutoff) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Pick selects one eligible item uniformly at random.
func (s *Selector) Pick(items []Item, now time.Time, cooldown time.Duration) (Item, error) {
	eligible := s.Eligible(items, now, cooldown)
	if len(eligible) == 0 {
		return Item{}, ErrNoEligible
	}
	return eligible[s.intn(len(eligible))], nil
}

// PickMessage selects one of the item's message variants uniformly at random.
func (s *Selector) PickMessage(item Item) (string, error) {
	variants := item.MessageVariants()
	if len(variants) == 0 {
		return "", ErrNoMessages
	}
	return variants[s.intn(len(variants))], nil
}
