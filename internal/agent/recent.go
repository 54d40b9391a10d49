package agent

import (
	"sync"

	"flowmeter-agent/internal/telemetry"
)

// RecentRows keeps the last delivered rows in a ring buffer for the admin
// server.
type RecentRows struct {
	mu   sync.Mutex
	buf  []telemetry.Row
	next int
	full bool
}

// NewRecentRows returns a buffer holding up to size rows.
func NewRecentRows(size int) *RecentRows {
	if size < 1 {
		size = 1
	}
	return &RecentRows{buf: make([]telemetry.Row, size)}
}

// Write implements TelemetryWriter.
func (r *RecentRows) Write(row telemetry.Row) error {
	r.mu.Lock()
	r.buf[r.next] = row
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
	return nil
}

// Rows returns the buffered rows, oldest first.
func (r *RecentRows) Rows() []telemetry.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]telemetry.Row(nil), r.buf[:r.next]...)
	}
	out := make([]telemetry.Row, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
