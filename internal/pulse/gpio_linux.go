//go:build linux

package pulse

import (
	"context"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOSource counts falling edges on a GPIO character-device line. The
// input is pulled up so an open-collector sensor pulls it low per pulse.
type GPIOSource struct {
	Chip string
	Line int
}

// NewGPIOSource returns a source for the given chip (e.g. "gpiochip0")
// and line offset.
func NewGPIOSource(chip string, line int) (*GPIOSource, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	if line < 0 {
		return nil, fmt.Errorf("pulse: invalid gpio line %d", line)
	}
	return &GPIOSource{Chip: chip, Line: line}, nil
}

// Run requests the line and forwards every falling edge to onEdge until
// ctx is done.
func (s *GPIOSource) Run(ctx context.Context, onEdge func()) error {
	l, err := gpiocdev.RequestLine(s.Chip, s.Line,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { onEdge() }),
	)
	if err != nil {
		return fmt.Errorf("request %s line %d: %w", s.Chip, s.Line, err)
	}
	defer l.Close()
	<-ctx.Done()
	return nil
}
