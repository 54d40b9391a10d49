package agent

import "flowmeter-agent/internal/telemetry"

// TelemetryWriter receives every delivered telemetry row.
type TelemetryWriter interface {
	Write(telemetry.Row) error
}

// Optional: writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.Row) error
}

// StatusWriter is implemented by writers that display reporter status.
type StatusWriter interface {
	SetStatus(Status)
}

// AdminStatusWriter allows writers to receive admin server status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
