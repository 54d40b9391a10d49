package agent

import (
	"context"
	"errors"
	"sync"

	"flowmeter-agent/internal/telemetry"
)

type manualClock struct{ ms uint32 }

func (c *manualClock) NowMs() uint32 { return c.ms }

var errOffline = errors.New("offline")

type fakePublisher struct {
	mu      sync.Mutex
	fail    bool
	calls   int
	records []telemetry.Record
	// during runs inside Publish, before the result is returned
	during func()
}

func (p *fakePublisher) Publish(ctx context.Context, rec telemetry.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.during != nil {
		p.during()
	}
	if p.fail {
		return errOffline
	}
	p.records = append(p.records, rec)
	return nil
}

type collectWriter struct {
	mu       sync.Mutex
	rows     []telemetry.Row
	statuses []Status
	err      error
}

func (w *collectWriter) Write(r telemetry.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, r)
	return w.err
}

func (w *collectWriter) SetStatus(s Status) {
	w.mu.Lock()
	w.statuses = append(w.statuses, s)
	w.mu.Unlock()
}

func (w *collectWriter) Rows() []telemetry.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]telemetry.Row(nil), w.rows...)
}

type restartRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *restartRecorder) Restart(reason string) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
}

func (r *restartRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}
