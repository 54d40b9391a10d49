package pulse

import (
	"context"
	"errors"
)

// ErrUnsupported is returned when an edge source is not available on the
// current platform.
var ErrUnsupported = errors.New("pulse: edge source not supported on this platform")

// Source delivers sensor edges. Run blocks until ctx is cancelled and
// calls onEdge once per falling edge from its own goroutine.
type Source interface {
	Run(ctx context.Context, onEdge func()) error
}
