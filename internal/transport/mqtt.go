package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"flowmeter-agent/internal/telemetry"
)

const (
	onlinePayload  = `{"online":true}`
	offlinePayload = `{"online":false}`
)

// mqttClient is the subset of mqtt.Client used here.
type mqttClient interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// MQTTOptions configures the MQTT transport.
type MQTTOptions struct {
	Broker         string
	Username       string
	Password       string
	Topics         Topics
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	Logger         *slog.Logger
	// Adopt returns the adoption document published on every connect.
	Adopt func() any
	// OnConnect and OnDisconnect observe connection changes, e.g. to
	// attach the remote log writer.
	OnConnect    func()
	OnDisconnect func()
}

// MQTT publishes telemetry and feeds configuration and command messages
// to an Inbound handler.
type MQTT struct {
	opts    MQTTOptions
	client  mqttClient
	inbound Inbound
	log     *slog.Logger
	up      atomic.Bool
}

// NewMQTT creates the transport. The connection is opened by Start.
func NewMQTT(o MQTTOptions, in Inbound) *MQTT {
	m := newMQTT(o, nil, in)
	co := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.Topics.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetWill(o.Topics.LWT(), offlinePayload, 1, true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(func(mqtt.Client) { m.connected() }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) { m.lost(err) }).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			m.log.Info("mqtt reconnecting", "broker", o.Broker)
		})
	if o.ConnectTimeout > 0 {
		co.SetConnectTimeout(o.ConnectTimeout)
	}
	m.client = mqtt.NewClient(co)
	return m
}

func newMQTT(o MQTTOptions, c mqttClient, in Inbound) *MQTT {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 2 * time.Second
	}
	return &MQTT{opts: o, client: c, inbound: in, log: o.Logger}
}

// Topics returns the topic layout in use.
func (m *MQTT) Topics() Topics { return m.opts.Topics }

// Start begins connecting in the background. The client keeps retrying
// until ctx is cancelled or Close is called.
func (m *MQTT) Start(ctx context.Context) {
	m.log.Info("mqtt connecting", "broker", m.opts.Broker, "client_id", m.opts.Topics.ClientID)
	tok := m.client.Connect()
	go func() {
		select {
		case <-tok.Done():
			if err := tok.Error(); err != nil {
				m.log.Error("mqtt connect failed", "err", err)
			}
		case <-ctx.Done():
		}
	}()
}

// Connected reports whether the broker connection is up.
func (m *MQTT) Connected() bool {
	return m.up.Load() && m.client.IsConnectionOpen()
}

func (m *MQTT) connected() {
	t := m.opts.Topics
	m.up.Store(true)
	m.client.Subscribe(t.Config(), m.opts.QoS, m.onConfig)
	m.client.Subscribe(t.Command(), m.opts.QoS, m.onCommand)
	m.client.Publish(t.LWT(), 1, true, onlinePayload)

	if m.opts.Adopt != nil {
		if b, err := json.Marshal(m.opts.Adopt()); err != nil {
			m.log.Error("adoption document encode failed", "err", err)
		} else {
			m.client.Publish(t.Adopt(), 1, true, b)
		}
	}
	if m.opts.OnConnect != nil {
		m.opts.OnConnect()
	}
	m.log.Info("mqtt connected", "broker", m.opts.Broker, "telemetry_topic", t.Telemetry())
}

func (m *MQTT) lost(err error) {
	m.up.Store(false)
	if m.opts.OnDisconnect != nil {
		m.opts.OnDisconnect()
	}
	m.log.Warn("mqtt connection lost", "err", err)
}

func (m *MQTT) onConfig(_ mqtt.Client, msg mqtt.Message) {
	if err := m.inbound.SubmitConfig(msg.Payload()); err != nil {
		m.log.Warn("config message rejected", "topic", msg.Topic(), "err", err)
	}
}

func (m *MQTT) onCommand(_ mqtt.Client, msg mqtt.Message) {
	if err := m.inbound.SubmitCommand(msg.Payload()); err != nil {
		m.log.Warn("command message rejected", "topic", msg.Topic(), "err", err)
	}
}

// Publish sends a telemetry record and waits for the client to accept
// it. A nil error means the record was handed to the broker.
func (m *MQTT) Publish(ctx context.Context, rec telemetry.Record) error {
	if !m.Connected() {
		return ErrNotConnected
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tok := m.client.Publish(m.opts.Topics.Telemetry(), m.opts.QoS, false, b)
	timer := time.NewTimer(m.opts.PublishTimeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt publish: %w", err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("mqtt publish: timed out after %s", m.opts.PublishTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLog forwards a log line without waiting for delivery.
func (m *MQTT) PublishLog(line []byte) error {
	if !m.Connected() {
		return ErrNotConnected
	}
	m.client.Publish(m.opts.Topics.Log(), 0, false, line)
	return nil
}

// Close marks the device offline and disconnects.
func (m *MQTT) Close() error {
	if m.Connected() {
		m.client.Publish(m.opts.Topics.LWT(), 1, true, offlinePayload).WaitTimeout(time.Second)
	}
	m.up.Store(false)
	m.client.Disconnect(250)
	return nil
}
