package agent

import "time"

// Clock supplies the reporter's millisecond timestamps. Values wrap at
// 2^32 ms; the reporter subtracts them with unsigned arithmetic.
type Clock interface {
	NowMs() uint32
}

// MonotonicClock counts milliseconds since it was created using Go's
// monotonic time reading.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a clock reading zero now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// NowMs returns the elapsed milliseconds truncated to 32 bits.
func (c *MonotonicClock) NowMs() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}
