package profile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile describes how flow through a simulated sensor evolves over time
// as an ordered list of phases.
type Profile struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Loop        bool    `yaml:"loop,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase holds a constant flow rate for a fixed duration.
type Phase struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	FlowLPM     float64       `yaml:"flow_lpm"`
	Duration    time.Duration `yaml:"duration"`
}

// Load reads a YAML profile definition from disk.
func Load(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Resolve returns the built-in profile called name, or loads name as a
// file path when no built-in matches.
func Resolve(name string) (*Profile, error) {
	if name == "" {
		name = "steady"
	}
	if p, ok := BuiltIn()[name]; ok {
		return &p, nil
	}
	return Load(name)
}

// Validate checks phase durations and rates.
func (p *Profile) Validate() error {
	if len(p.Phases) == 0 {
		return fmt.Errorf("profile %q has no phases", p.Name)
	}
	for _, ph := range p.Phases {
		if ph.Duration <= 0 {
			return fmt.Errorf("phase %q: duration must be positive", ph.Name)
		}
		if ph.FlowLPM < 0 {
			return fmt.Errorf("phase %q: negative flow", ph.Name)
		}
	}
	return nil
}

// Total returns the length of one pass through all phases.
func (p *Profile) Total() time.Duration {
	var d time.Duration
	for _, ph := range p.Phases {
		d += ph.Duration
	}
	return d
}

// PhaseAt returns the phase active after elapsed. Once a non-looping
// profile has run out, ok is false.
func (p *Profile) PhaseAt(elapsed time.Duration) (Phase, bool) {
	total := p.Total()
	if total <= 0 || elapsed < 0 {
		return Phase{}, false
	}
	if elapsed >= total {
		if !p.Loop {
			return Phase{}, false
		}
		elapsed %= total
	}
	for _, ph := range p.Phases {
		if elapsed < ph.Duration {
			return ph, true
		}
		elapsed -= ph.Duration
	}
	return Phase{}, false
}

// FlowAt returns the flow rate in litres per minute after elapsed.
func (p *Profile) FlowAt(elapsed time.Duration) float64 {
	ph, ok := p.PhaseAt(elapsed)
	if !ok {
		return 0
	}
	return ph.FlowLPM
}
