package pulse

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestCounterTakeAndReset(t *testing.T) {
	var c Counter
	for i := 0; i < 49; i++ {
		c.OnEdge()
	}
	if got := c.Peek(); got != 49 {
		t.Fatalf("peek = %d, want 49", got)
	}
	if got := c.TakeAndReset(); got != 49 {
		t.Fatalf("take = %d, want 49", got)
	}
	if got := c.Peek(); got != 0 {
		t.Fatalf("expected counter reset, got %d", got)
	}
}

func TestCounterConsumeKeepsLateEdges(t *testing.T) {
	var c Counter
	for i := 0; i < 10; i++ {
		c.OnEdge()
	}
	seen := c.Peek()
	c.OnEdge()
	c.OnEdge()
	if left := c.Consume(seen); left != 2 {
		t.Fatalf("remaining = %d, want 2", left)
	}
	if left := c.Consume(0); left != 2 {
		t.Fatalf("consume(0) changed counter: %d", left)
	}
}

// Edges fired concurrently with a single TakeAndReset must all be
// accounted for either in the taken value or in what remains.
func TestCounterNoLoss(t *testing.T) {
	const (
		workers = 8
		perG    = 20000
	)
	for round := 0; round < 20; round++ {
		var c Counter
		var wg sync.WaitGroup
		var ready sync.WaitGroup
		var fired atomic.Uint32
		ready.Add(workers)
		wg.Add(workers)
		for g := 0; g < workers; g++ {
			go func() {
				defer wg.Done()
				ready.Done()
				for i := 0; i < perG; i++ {
					c.OnEdge()
					fired.Add(1)
				}
			}()
		}
		ready.Wait()
		taken := c.TakeAndReset()
		wg.Wait()
		if sum := taken + c.Peek(); sum != workers*perG {
			t.Fatalf("round %d: taken %d + remaining %d != %d", round, taken, c.Peek(), workers*perG)
		}
		if fired.Load() != workers*perG {
			t.Fatalf("round %d: fired %d", round, fired.Load())
		}
	}
}

func TestCounterConcurrentConsume(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	const total = 50000
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			c.OnEdge()
		}
	}()
	var reported uint64
	for i := 0; i < 100; i++ {
		n := c.Peek()
		c.Consume(n)
		reported += uint64(n)
	}
	wg.Wait()
	reported += uint64(c.TakeAndReset())
	if reported != total {
		t.Fatalf("reported %d pulses, want %d", reported, total)
	}
}
