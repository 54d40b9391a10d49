package pulse

import (
	"context"
	"math/rand"
	"time"

	"flowmeter-agent/internal/profile"
)

const defaultSimStep = 10 * time.Millisecond

// SimulatedSource generates edges for a virtual flow sensor following a
// flow profile. Edges are emitted from the Run goroutine, mirroring an
// interrupt arriving outside the reporter loop.
type SimulatedSource struct {
	Profile *profile.Profile
	// KFactor is the virtual sensor's pulses per litre.
	KFactor float64
	// Jitter is the relative flow noise, 0 disables it.
	Jitter float64
	Step   time.Duration

	rand  *rand.Rand
	carry float64
}

// NewSimulatedSource creates a simulated sensor.
func NewSimulatedSource(p *profile.Profile, kFactor, jitter float64) *SimulatedSource {
	if kFactor <= 0 {
		kFactor = 49
	}
	if jitter < 0 {
		jitter = 0
	}
	return &SimulatedSource{
		Profile: p,
		KFactor: kFactor,
		Jitter:  jitter,
		Step:    defaultSimStep,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run emits edges until ctx is done.
func (s *SimulatedSource) Run(ctx context.Context, onEdge func()) error {
	step := s.Step
	if step <= 0 {
		step = defaultSimStep
	}
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	start := time.Now()
	last := start
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n := s.advance(now.Sub(start), now.Sub(last))
			last = now
			for i := 0; i < n; i++ {
				onEdge()
			}
		}
	}
}

// advance returns the whole number of edges produced during dt, keeping
// the fractional remainder for the next step.
func (s *SimulatedSource) advance(elapsed, dt time.Duration) int {
	flow := 0.0
	if s.Profile != nil {
		flow = s.Profile.FlowAt(elapsed)
	}
	if flow > 0 && s.Jitter > 0 && s.rand != nil {
		flow += s.rand.NormFloat64() * s.Jitter * flow
		if flow < 0 {
			flow = 0
		}
	}
	pulses := flow/60*s.KFactor*dt.Seconds() + s.carry
	n := int(pulses)
	s.carry = pulses - float64(n)
	return n
}
