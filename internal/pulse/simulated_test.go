package pulse

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"flowmeter-agent/internal/profile"
)

func constantProfile(lpm float64) *profile.Profile {
	return &profile.Profile{
		Loop:   true,
		Phases: []profile.Phase{{Name: "const", FlowLPM: lpm, Duration: time.Hour}},
	}
}

func TestSimulatedAdvance(t *testing.T) {
	// 60 L/min is one litre per second, i.e. k pulses per second.
	s := NewSimulatedSource(constantProfile(60), 49, 0)
	total := 0
	for i := 0; i < 100; i++ {
		total += s.advance(time.Duration(i)*10*time.Millisecond, 10*time.Millisecond)
	}
	if total < 48 || total > 49 {
		t.Fatalf("expected ~49 pulses in one second, got %d", total)
	}
}

func TestSimulatedAdvanceIdle(t *testing.T) {
	s := NewSimulatedSource(constantProfile(0), 49, 0.2)
	if n := s.advance(time.Second, time.Second); n != 0 {
		t.Fatalf("expected no pulses for idle flow, got %d", n)
	}
}

func TestSimulatedRunCounts(t *testing.T) {
	s := NewSimulatedSource(constantProfile(600), 49, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	var n atomic.Int64
	if err := s.Run(ctx, func() { n.Add(1) }); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n.Load() == 0 {
		t.Fatalf("expected edges from simulated source")
	}
}
