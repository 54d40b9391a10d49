//go:build !linux

package pulse

import "context"

// GPIOSource is only available on linux.
type GPIOSource struct {
	Chip string
	Line int
}

// NewGPIOSource always fails on this platform.
func NewGPIOSource(chip string, line int) (*GPIOSource, error) {
	return nil, ErrUnsupported
}

// Run always fails on this platform.
func (s *GPIOSource) Run(ctx context.Context, onEdge func()) error {
	return ErrUnsupported
}
