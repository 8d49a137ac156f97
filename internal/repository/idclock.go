package repository

import (
	"sync"
	"time"
)

// IDClock hands out millisecond-timestamp ids that never repeat within the
// process, even for several creates in the same millisecond.
type IDClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDClock creates a clock on the wall time.
func NewIDClock() *IDClock {
	return &IDClock{now: time.Now}
}

// Next returns max(now in ms, last issued + 1, floor + 1). floor is the largest
// id already present in the target collection, which keeps ids unique across
// restarts and clock skew.
func (c *IDClock) Next(floor int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.now().UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	if id <= floor {
		id = floor + 1
	}
	c.last = id
	return id
}
