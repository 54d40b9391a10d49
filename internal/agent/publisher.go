package agent

import (
	"context"

	"flowmeter-agent/internal/telemetry"
)

// Publisher delivers a telemetry record. A nil error means the record
// was accepted by the transport.
type Publisher interface {
	Publish(ctx context.Context, rec telemetry.Record) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, rec telemetry.Record) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, rec telemetry.Record) error {
	return f(ctx, rec)
}

// NopPublisher accepts every record. Used when the agent only feeds
// local sinks.
type NopPublisher struct{}

// Publish always succeeds.
func (NopPublisher) Publish(context.Context, telemetry.Record) error { return nil }
