package profile

import (
	"testing"
	"time"
)

func TestPhaseAt(t *testing.T) {
	p := Profile{
		Phases: []Phase{
			{Name: "a", FlowLPM: 10, Duration: 10 * time.Second},
			{Name: "b", FlowLPM: 20, Duration: 5 * time.Second},
		},
	}
	cases := []struct {
		elapsed time.Duration
		want    string
		ok      bool
	}{
		{0, "a", true},
		{9 * time.Second, "a", true},
		{10 * time.Second, "b", true},
		{14 * time.Second, "b", true},
		{15 * time.Second, "", false},
	}
	for _, c := range cases {
		ph, ok := p.PhaseAt(c.elapsed)
		if ok != c.ok || ph.Name != c.want {
			t.Errorf("PhaseAt(%v) = %q,%v want %q,%v", c.elapsed, ph.Name, ok, c.want, c.ok)
		}
	}
	if got := p.FlowAt(20 * time.Second); got != 0 {
		t.Errorf("expected zero flow after profile end, got %f", got)
	}
}

func TestPhaseAtLoop(t *testing.T) {
	p := Profile{
		Loop: true,
		Phases: []Phase{
			{Name: "a", FlowLPM: 10, Duration: 10 * time.Second},
			{Name: "b", FlowLPM: 20, Duration: 5 * time.Second},
		},
	}
	if got := p.FlowAt(26 * time.Second); got != 20 {
		t.Fatalf("expected looped phase b flow 20, got %f", got)
	}
}

func TestLoadProfile(t *testing.T) {
	p, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if p.Name != "example" {
		t.Fatalf("unexpected name %s", p.Name)
	}
	if len(p.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(p.Phases))
	}
	if p.Phases[0].Duration != 10*time.Second {
		t.Fatalf("unexpected duration %v", p.Phases[0].Duration)
	}
	if p.Total() != 15*time.Second {
		t.Fatalf("unexpected total %v", p.Total())
	}
}

func TestValidateRejectsEmptyPhase(t *testing.T) {
	p := Profile{Name: "bad", Phases: []Phase{{Name: "x", FlowLPM: 1}}}
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for zero duration")
	}
}

func TestBuiltInProfiles(t *testing.T) {
	for name, p := range BuiltIn() {
		if p.Description == "" {
			t.Fatalf("profile %s missing description", name)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("profile %s invalid: %v", name, err)
		}
	}
	if _, err := Resolve("shower"); err != nil {
		t.Fatalf("resolve shower: %v", err)
	}
	if _, err := Resolve("testdata/simple.yaml"); err != nil {
		t.Fatalf("resolve file: %v", err)
	}
}
