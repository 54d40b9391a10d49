package config

import (
	"errors"
	"testing"
)

func i64(v int64) *int64 { return &v }

func TestRuntimeDefaults(t *testing.T) {
	r := NewRuntime()
	if r.IntervalMs() != 1000 || r.CalibrationFactor() != 49 {
		t.Fatalf("unexpected defaults: %+v", r.Snapshot())
	}
}

func TestRuntimeApplyClamps(t *testing.T) {
	cases := []struct {
		name         string
		update       Update
		wantInterval uint32
		wantK        uint32
	}{
		{"interval above max", Update{TelemetryIntervalMs: i64(999999)}, 60000, 49},
		{"k above max", Update{KFactor: i64(5000)}, 1000, 1000},
		{"empty", Update{}, 1000, 49},
		{"in range", Update{TelemetryIntervalMs: i64(250), KFactor: i64(450)}, 250, 450},
		{"zero clamps to min", Update{TelemetryIntervalMs: i64(0), KFactor: i64(0)}, 1, 1},
		{"negative clamps to min", Update{TelemetryIntervalMs: i64(-5), KFactor: i64(-100)}, 1, 1},
		{"bounds kept", Update{TelemetryIntervalMs: i64(60000), KFactor: i64(1)}, 60000, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewRuntime()
			r.Apply(c.update)
			if r.IntervalMs() != c.wantInterval {
				t.Errorf("interval = %d, want %d", r.IntervalMs(), c.wantInterval)
			}
			if r.CalibrationFactor() != c.wantK {
				t.Errorf("k = %d, want %d", r.CalibrationFactor(), c.wantK)
			}
		})
	}
}

func TestRuntimeApplyPartialKeepsOtherField(t *testing.T) {
	r := NewRuntime()
	r.Apply(Update{TelemetryIntervalMs: i64(5000), KFactor: i64(330)})
	r.Apply(Update{KFactor: i64(5000)})
	if r.IntervalMs() != 5000 {
		t.Fatalf("interval changed by k-only update: %d", r.IntervalMs())
	}
	if r.CalibrationFactor() != 1000 {
		t.Fatalf("k = %d, want 1000", r.CalibrationFactor())
	}
	r.Apply(Update{})
	if got := r.Snapshot(); got.TelemetryIntervalMs != 5000 || got.KFactor != 1000 {
		t.Fatalf("empty update changed state: %+v", got)
	}
}

func TestDecodeUpdate(t *testing.T) {
	cases := []struct {
		payload  string
		interval *int64
		k        *int64
	}{
		{`{}`, nil, nil},
		{`{"telemetryIntervalMs": 999999}`, i64(999999), nil},
		{`{"kFactor": 5000, "other": true}`, nil, i64(5000)},
		{`{"calibrationFactor": 12}`, nil, i64(12)},
		{`{"calibrationFactor": 12, "kFactor": 13}`, nil, i64(13)},
		{`{"telemetryIntervalMs": 1500.9}`, i64(1500), nil},
		{`{"telemetryIntervalMs": "fast"}`, nil, nil},
		{`{"kFactor": -3}`, nil, i64(-3)},
		{`{"kFactor": 1e40}`, nil, i64(9223372036854775807)},
	}
	for _, c := range cases {
		u, err := DecodeUpdate([]byte(c.payload))
		if err != nil {
			t.Fatalf("%s: %v", c.payload, err)
		}
		if !eqPtr(u.TelemetryIntervalMs, c.interval) {
			t.Errorf("%s: interval = %v, want %v", c.payload, deref(u.TelemetryIntervalMs), deref(c.interval))
		}
		if !eqPtr(u.KFactor, c.k) {
			t.Errorf("%s: k = %v, want %v", c.payload, deref(u.KFactor), deref(c.k))
		}
	}
}

func TestDecodeUpdateRejectsNonObject(t *testing.T) {
	for _, p := range []string{`[1,2]`, `"x"`, `not json`} {
		if _, err := DecodeUpdate([]byte(p)); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("%s: expected ErrInvalidPayload, got %v", p, err)
		}
	}
}

func eqPtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
