// Pulse accounting shared between the edge source and the reporter loop
package pulse

import "sync/atomic"

// Counter accumulates sensor edges. OnEdge may be called from any
// goroutine; it never blocks or allocates.
type Counter struct {
	n atomic.Uint32
}

// OnEdge records one falling edge.
func (c *Counter) OnEdge() {
	c.n.Add(1)
}

// Peek returns the pending pulse total without consuming it.
func (c *Counter) Peek() uint32 {
	return c.n.Load()
}

// TakeAndReset returns the pending total and resets it to zero in one
// atomic step.
func (c *Counter) TakeAndReset() uint32 {
	return c.n.Swap(0)
}

// Consume removes exactly n previously peeked pulses and returns what is
// left. Edges counted after the peek stay pending.
func (c *Counter) Consume(n uint32) uint32 {
	return c.n.Add(^(n - 1))
}
