// Package clock hands out strictly increasing UTC timestamps.
//
// Every value is truncated to microseconds (the precision postgres keeps) and
// is at least one microsecond after the previous value returned in this
// process, so updated_at columns always move forward and created_at gives a
// total order for rows created by one process.
package clock

import (
	"sync"
	"time"
)

type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// New returns a monotonic clock reading from source (time.Now when nil).
func New(source func() time.Time) *Clock {
	if source == nil {
		source = time.Now
	}
	return &Clock{now: source}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

var std = New(nil)

// Now returns the next timestamp from the process-wide clock.
func Now() time.Time { return std.Now() }
