// Package clock provides the time source used by command handlers. Activity
// rows are ordered by their stored timestamps, so two writes in one process
// must never share an instant.
package clock

import (
	"sync"
	"time"
)

// Clock yields timestamps for persisted rows.
type Clock interface {
	// Now returns a UTC instant strictly later than any previous return value.
	Now() time.Time
}

type monotonic struct {
	mu   sync.Mutex
	last time.Time
}

// NewMonotonic returns a Clock that nudges repeated readings forward by one
// microsecond. Readings are truncated to microseconds, the resolution of the
// stored timestamp format, so persisted values round-trip exactly.
func NewMonotonic() Clock {
	return &monotonic{}
}

func (c *monotonic) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

type fixed struct {
	mu   sync.Mutex
	next time.Time
}

// Fixed returns a deterministic Clock for tests: the first reading is t and
// each subsequent reading advances by one microsecond.
func Fixed(t time.Time) Clock {
	return &fixed{next: t.UTC()}
}

func (c *fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(time.Microsecond)
	return now
}
