package expr

import "sync/atomic"

// IDClock hands out node IDs.
//
// IDs are strictly increasing and never reused. The first ID is the clock's
// start value (0 for NewIDClock).
//
// Thread-safety: IDClock is safe for concurrent use (atomic operations),
// although node construction is expected to happen on one goroutine.
type IDClock struct {
	next atomic.Int64
}

// NewIDClock creates a clock whose first ID is 0.
func NewIDClock() *IDClock {
	return &IDClock{}
}

// NewIDClockAt creates a clock whose first ID is start.
// Used to keep IDs from separate States disjoint.
func NewIDClockAt(start int) *IDClock {
	c := &IDClock{}
	c.next.Store(int64(start))
	return c
}

// Next returns a fresh ID.
func (c *IDClock) Next() int {
	return int(c.next.Add(1) - 1)
}

// Max returns the largest ID handed out so far, or start-1 if none.
func (c *IDClock) Max() int {
	return int(c.next.Load() - 1)
}
