package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"flowmeter-agent/internal/telemetry"
)

type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	Close() error
}

// Redis publishes telemetry on a pub/sub channel and listens for
// configuration and command messages. Channel names follow the MQTT topic
// layout.
type Redis struct {
	client  redisClient
	topics  Topics
	inbound Inbound
	log     *slog.Logger
}

// NewRedis connects to addr.
func NewRedis(addr, password string, topics Topics, in Inbound, log *slog.Logger) *Redis {
	cli := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return newRedis(cli, topics, in, log)
}

func newRedis(c redisClient, topics Topics, in Inbound, log *slog.Logger) *Redis {
	if log == nil {
		log = slog.Default()
	}
	return &Redis{client: c, topics: topics, inbound: in, log: log}
}

// Publish sends a telemetry record. Zero subscribers still counts as
// delivered.
func (r *Redis) Publish(ctx context.Context, rec telemetry.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.topics.Telemetry(), b).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Listen dispatches inbound messages until ctx is cancelled.
func (r *Redis) Listen(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.topics.Config(), r.topics.Command())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	r.log.Info("redis subscribed", "config", r.topics.Config(), "command", r.topics.Command())
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.dispatch(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (r *Redis) dispatch(channel string, payload []byte) {
	var err error
	switch channel {
	case r.topics.Config():
		err = r.inbound.SubmitConfig(payload)
	case r.topics.Command():
		err = r.inbound.SubmitCommand(payload)
	default:
		return
	}
	if err != nil {
		r.log.Warn("redis message rejected", "channel", channel, "err", err)
	}
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
