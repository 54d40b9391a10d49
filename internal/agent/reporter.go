// Reporter turning accumulated pulses into delivered telemetry
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"flowmeter-agent/internal/config"
	"flowmeter-agent/internal/logging"
	"flowmeter-agent/internal/pulse"
	"flowmeter-agent/internal/telemetry"
)

// FailurePolicy selects what a failed delivery does to the reporting
// window.
type FailurePolicy int

const (
	// PolicyRetry keeps the counter and the clock anchor on failure so the
	// next tick reports the whole window again.
	PolicyRetry FailurePolicy = iota
	// PolicyAtMostOnce consumes the counter and advances the anchor on
	// every expiry, dropping the pulses of a failed delivery.
	PolicyAtMostOnce
)

// ParseFailurePolicy maps a configuration value to a policy. Empty means
// PolicyRetry.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(s) {
	case "", "retry":
		return PolicyRetry, nil
	case "at-most-once", "at_most_once":
		return PolicyAtMostOnce, nil
	}
	return PolicyRetry, fmt.Errorf("unknown failure policy %q", s)
}

func (p FailurePolicy) String() string {
	if p == PolicyAtMostOnce {
		return "at-most-once"
	}
	return "retry"
}

// ErrInboxFull is returned by SubmitConfig and SubmitCommand when the
// loop has not drained earlier messages yet.
var ErrInboxFull = errors.New("reporter inbox full")

const (
	defaultLoopInterval = 10 * time.Millisecond
	inboxSize           = 32
)

// Options wires a Reporter to its collaborators.
type Options struct {
	DeviceID       string
	Counter        *pulse.Counter
	Runtime        *config.Runtime
	Publisher      Publisher
	Writer         TelemetryWriter
	Clock          Clock
	Policy         FailurePolicy
	LoopInterval   time.Duration
	PublishTimeout time.Duration
	Restarter      Restarter
	// Now stamps rows handed to the writers. Defaults to time.Now.
	Now func() time.Time
}

// Status is a point-in-time view of the reporter.
type Status struct {
	BootID              string            `json:"bootId"`
	DeviceID            string            `json:"deviceId"`
	Policy              string            `json:"failurePolicy"`
	TelemetryIntervalMs uint32            `json:"telemetryIntervalMs"`
	KFactor             uint32            `json:"kFactor"`
	PendingPulses       uint32            `json:"pendingPulses"`
	Delivered           uint64            `json:"delivered"`
	Failed              uint64            `json:"failed"`
	DroppedPulses       uint64            `json:"droppedPulses"`
	LastRecord          *telemetry.Record `json:"lastRecord,omitempty"`
	LastDeliveredAt     time.Time         `json:"lastDeliveredAt,omitempty"`
}

type inboxMsg struct {
	update *config.Update
	cmd    *Command
}

// Reporter runs the cooperative reporting loop. Tick, the inbox handlers
// and the runtime configuration belong to the loop goroutine; Status,
// SubmitConfig and SubmitCommand are safe from any goroutine.
type Reporter struct {
	deviceID       string
	bootID         string
	counter        *pulse.Counter
	rt             *config.Runtime
	pub            Publisher
	writer         TelemetryWriter
	clock          Clock
	policy         FailurePolicy
	loopInterval   time.Duration
	publishTimeout time.Duration
	restarter      Restarter
	now            func() time.Time

	lastMs          uint32
	delivered       uint64
	failed          uint64
	dropped         uint64
	lastRecord      *telemetry.Record
	lastDeliveredAt time.Time

	inbox  chan inboxMsg
	status atomic.Pointer[Status]
}

// NewReporter creates a reporter anchored at the clock's current reading.
func NewReporter(o Options) *Reporter {
	if o.Counter == nil {
		o.Counter = &pulse.Counter{}
	}
	if o.Runtime == nil {
		o.Runtime = config.NewRuntime()
	}
	if o.Publisher == nil {
		o.Publisher = NopPublisher{}
	}
	if o.Clock == nil {
		o.Clock = NewMonotonicClock()
	}
	if o.LoopInterval <= 0 {
		o.LoopInterval = defaultLoopInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	r := &Reporter{
		deviceID:       o.DeviceID,
		bootID:         uuid.NewString(),
		counter:        o.Counter,
		rt:             o.Runtime,
		pub:            o.Publisher,
		writer:         o.Writer,
		clock:          o.Clock,
		policy:         o.Policy,
		loopInterval:   o.LoopInterval,
		publishTimeout: o.PublishTimeout,
		restarter:      o.Restarter,
		now:            o.Now,
		inbox:          make(chan inboxMsg, inboxSize),
	}
	r.lastMs = r.clock.NowMs()
	r.refreshStatus()
	return r
}

// Counter returns the pulse counter edges should be fed into.
func (r *Reporter) Counter() *pulse.Counter { return r.counter }

// BootID identifies this process run.
func (r *Reporter) BootID() string { return r.bootID }

// Tick evaluates the reporting schedule once. It returns the delivered
// record and true when a report went out.
func (r *Reporter) Tick(now uint32) (telemetry.Record, bool) {
	return r.TickContext(context.Background(), now)
}

// TickContext is Tick with a context for the transport call and logging.
func (r *Reporter) TickContext(ctx context.Context, now uint32) (telemetry.Record, bool) {
	elapsed := now - r.lastMs
	if elapsed < r.rt.IntervalMs() {
		return telemetry.Record{}, false
	}
	log := logging.FromContext(ctx)

	var pending uint32
	if r.policy == PolicyAtMostOnce {
		pending = r.counter.TakeAndReset()
	} else {
		pending = r.counter.Peek()
	}
	rec := telemetry.NewRecord(elapsed, pending, r.rt.CalibrationFactor())
	err := r.publish(ctx, rec)

	switch {
	case err != nil && r.policy == PolicyAtMostOnce:
		r.lastMs = now
		r.failed++
		r.dropped += uint64(pending)
		log.Warn("telemetry delivery failed, pulses dropped", "pulses", pending, "elapsed_ms", elapsed, "err", err)
		r.refreshStatus()
		return telemetry.Record{}, false
	case err != nil:
		r.failed++
		log.Warn("telemetry delivery failed, retrying next interval", "pulses", pending, "elapsed_ms", elapsed, "err", err)
		r.refreshStatus()
		return telemetry.Record{}, false
	case r.policy == PolicyRetry:
		r.counter.Consume(pending)
	}
	r.lastMs = now
	r.delivered++
	r.lastRecord = &rec
	r.lastDeliveredAt = r.now()
	log.Debug("telemetry delivered", "elapsed_ms", rec.ElapsedMs, "pulses", rec.PulseCount, "volume_mls", rec.VolumeMls)

	if r.writer != nil {
		row := telemetry.NewRow(r.deviceID, rec, r.lastDeliveredAt)
		if err := r.writer.Write(row); err != nil {
			log.Error("write failed", "err", err)
		}
	}
	r.refreshStatus()
	return rec, true
}

func (r *Reporter) publish(ctx context.Context, rec telemetry.Record) error {
	if r.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.publishTimeout)
		defer cancel()
	}
	return r.pub.Publish(ctx, rec)
}

// SubmitConfig decodes an inbound configuration message and queues it for
// the loop.
func (r *Reporter) SubmitConfig(payload []byte) error {
	u, err := config.DecodeUpdate(payload)
	if err != nil {
		return err
	}
	return r.enqueue(inboxMsg{update: &u})
}

// SubmitCommand decodes an inbound command message and queues it for the
// loop.
func (r *Reporter) SubmitCommand(payload []byte) error {
	cmd, err := DecodeCommand(payload)
	if err != nil {
		return err
	}
	return r.enqueue(inboxMsg{cmd: &cmd})
}

func (r *Reporter) enqueue(m inboxMsg) error {
	select {
	case r.inbox <- m:
		return nil
	default:
		return ErrInboxFull
	}
}

// drain applies every queued message without blocking.
func (r *Reporter) drain(ctx context.Context) {
	for {
		select {
		case m := <-r.inbox:
			r.handle(ctx, m)
		default:
			return
		}
	}
}

func (r *Reporter) handle(ctx context.Context, m inboxMsg) {
	log := logging.FromContext(ctx)
	if m.update != nil {
		if m.update.Empty() {
			log.Debug("config message without known fields ignored")
			return
		}
		r.rt.Apply(*m.update)
		log.Info("config applied", "interval_ms", r.rt.IntervalMs(), "k_factor", r.rt.CalibrationFactor())
		r.refreshStatus()
	}
	if m.cmd != nil && m.cmd.Restart {
		if r.restarter == nil {
			log.Warn("restart requested but no restarter configured")
			return
		}
		log.Info("restart requested")
		r.restarter.Restart("command")
	}
}

// Run drives the loop until ctx is cancelled: apply queued messages, then
// tick.
func (r *Reporter) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("starting reporter",
		"interval_ms", r.rt.IntervalMs(),
		"k_factor", r.rt.CalibrationFactor(),
		"failure_policy", r.policy.String(),
		"boot_id", r.bootID)
	ticker := time.NewTicker(r.loopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping reporter", "delivered", r.delivered, "failed", r.failed)
			return nil
		case <-ticker.C:
			r.drain(ctx)
			r.TickContext(ctx, r.clock.NowMs())
		}
	}
}

func (r *Reporter) refreshStatus() {
	s := &Status{
		BootID:              r.bootID,
		DeviceID:            r.deviceID,
		Policy:              r.policy.String(),
		TelemetryIntervalMs: r.rt.IntervalMs(),
		KFactor:             r.rt.CalibrationFactor(),
		Delivered:           r.delivered,
		Failed:              r.failed,
		DroppedPulses:       r.dropped,
		LastRecord:          r.lastRecord,
		LastDeliveredAt:     r.lastDeliveredAt,
	}
	r.status.Store(s)
	if sw, ok := r.writer.(StatusWriter); ok {
		sw.SetStatus(*s)
	}
}

// Status returns the latest snapshot with the live pending pulse total.
func (r *Reporter) Status() Status {
	s := *r.status.Load()
	s.PendingPulses = r.counter.Peek()
	return s
}
