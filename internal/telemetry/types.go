// Telemetry records and their sink representation
package telemetry

import (
	"math"
	"time"
)

// Record is the outbound telemetry payload. It carries exactly the three
// fields the management system expects.
type Record struct {
	ElapsedMs  uint32 `json:"elapsedMs"`
	PulseCount uint32 `json:"pulseCount"`
	VolumeMls  uint32 `json:"volumeMls"`
}

// Row is a delivered record as stored by local sinks.
type Row struct {
	DeviceID   string    `json:"device_id"`   // TAG
	ElapsedMs  uint32    `json:"elapsed_ms"`  // FIELD
	PulseCount uint32    `json:"pulse_count"` // FIELD
	VolumeMls  uint32    `json:"volume_mls"`  // FIELD
	FlowLPM    float64   `json:"flow_lpm"`    // FIELD
	Timestamp  time.Time `json:"ts"`          // TIME INDEX
}

// DefaultTableName is the table rows are written to when none is
// configured.
const DefaultTableName = "flow_telemetry"

// VolumeMilliLitres converts a pulse count to millilitres using k pulses
// per litre, truncating. The product is formed in 64 bits; results that
// do not fit in 32 bits saturate. k must be at least 1.
func VolumeMilliLitres(pulses, k uint32) uint32 {
	if k == 0 {
		return 0
	}
	v := uint64(pulses) * 1000 / uint64(k)
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// NewRecord builds a record from the elapsed window and pulse total.
func NewRecord(elapsedMs, pulses, k uint32) Record {
	return Record{
		ElapsedMs:  elapsedMs,
		PulseCount: pulses,
		VolumeMls:  VolumeMilliLitres(pulses, k),
	}
}

// FlowLPM returns the average flow rate of the record in litres per
// minute.
func (r Record) FlowLPM() float64 {
	if r.ElapsedMs == 0 {
		return 0
	}
	return float64(r.VolumeMls) / float64(r.ElapsedMs) * 60
}

// NewRow stamps a delivered record for the local sinks.
func NewRow(deviceID string, r Record, ts time.Time) Row {
	return Row{
		DeviceID:   deviceID,
		ElapsedMs:  r.ElapsedMs,
		PulseCount: r.PulseCount,
		VolumeMls:  r.VolumeMls,
		FlowLPM:    r.FlowLPM(),
		Timestamp:  ts,
	}
}

// Record returns the wire record a row was built from.
func (r Row) Record() Record {
	return Record{ElapsedMs: r.ElapsedMs, PulseCount: r.PulseCount, VolumeMls: r.VolumeMls}
}
