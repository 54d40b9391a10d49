package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Bounds and defaults of the runtime tunables.
const (
	DefaultTelemetryIntervalMs = 1000
	MinTelemetryIntervalMs     = 1
	MaxTelemetryIntervalMs     = 60000

	DefaultKFactor = 49
	MinKFactor     = 1
	MaxKFactor     = 1000
)

// Runtime holds the reporting interval and calibration factor. It is
// owned by the reporter loop; callers on other goroutines must go through
// the loop's inbox.
type Runtime struct {
	intervalMs uint32
	kFactor    uint32
}

// NewRuntime returns a Runtime initialised to defaults.
func NewRuntime() *Runtime {
	return &Runtime{intervalMs: DefaultTelemetryIntervalMs, kFactor: DefaultKFactor}
}

// IntervalMs returns the telemetry interval in milliseconds.
func (r *Runtime) IntervalMs() uint32 { return r.intervalMs }

// CalibrationFactor returns the k-factor in pulses per litre.
func (r *Runtime) CalibrationFactor() uint32 { return r.kFactor }

// RuntimeSnapshot is a copy of the runtime tunables.
type RuntimeSnapshot struct {
	TelemetryIntervalMs uint32 `json:"telemetryIntervalMs"`
	KFactor             uint32 `json:"kFactor"`
}

// Snapshot copies the current values.
func (r *Runtime) Snapshot() RuntimeSnapshot {
	return RuntimeSnapshot{TelemetryIntervalMs: r.intervalMs, KFactor: r.kFactor}
}

// Update is a partial configuration change. Nil fields are left alone.
type Update struct {
	TelemetryIntervalMs *int64
	KFactor             *int64
}

// Empty reports whether the update carries no fields.
func (u Update) Empty() bool {
	return u.TelemetryIntervalMs == nil && u.KFactor == nil
}

// Apply sets every present field, clamped into its documented range.
// Out-of-range values are never rejected.
func (r *Runtime) Apply(u Update) {
	if u.TelemetryIntervalMs != nil {
		r.intervalMs = clamp(*u.TelemetryIntervalMs, MinTelemetryIntervalMs, MaxTelemetryIntervalMs)
	}
	if u.KFactor != nil {
		r.kFactor = clamp(*u.KFactor, MinKFactor, MaxKFactor)
	}
}

func clamp(v, lo, hi int64) uint32 {
	if v < lo {
		return uint32(lo)
	}
	if v > hi {
		return uint32(hi)
	}
	return uint32(v)
}

// ErrInvalidPayload is returned for payloads that are not a JSON object.
var ErrInvalidPayload = errors.New("config: payload is not a JSON object")

// DecodeUpdate parses an inbound configuration message. Recognised keys
// are telemetryIntervalMs and kFactor (calibrationFactor is accepted as an
// alias). Unknown keys and non-numeric values are ignored; fractional
// numbers are truncated.
func DecodeUpdate(payload []byte) (Update, error) {
	var u Update
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return u, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if v, ok := integer(fields["telemetryIntervalMs"]); ok {
		u.TelemetryIntervalMs = &v
	}
	if v, ok := integer(fields["calibrationFactor"]); ok {
		u.KFactor = &v
	}
	if v, ok := integer(fields["kFactor"]); ok {
		u.KFactor = &v
	}
	return u, nil
}

func integer(raw any) (int64, bool) {
	n, ok := raw.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil {
		// Out of float range: still a number, saturate by sign.
		if len(n) > 0 && n[0] == '-' {
			return math.MinInt64, true
		}
		return math.MaxInt64, true
	}
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(f), true
}
