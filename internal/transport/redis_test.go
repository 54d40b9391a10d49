package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"

	"flowmeter-agent/internal/telemetry"
)

type fakeRedis struct {
	channel string
	message interface{}
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message = message
	return redis.NewIntResult(1, f.err)
}

func (f *fakeRedis) Subscribe(ctx context.Context, channels ...string) *redis.PubSub { return nil }
func (f *fakeRedis) Close() error                                                    { return nil }

func TestRedisPublish(t *testing.T) {
	f := &fakeRedis{}
	r := newRedis(f, Topics{Prefix: "flow", ClientID: "a1b2c3"}, &fakeInbound{}, nil)
	rec := telemetry.Record{ElapsedMs: 1000, PulseCount: 49, VolumeMls: 1000}
	if err := r.Publish(context.Background(), rec); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if f.channel != "flow/tele/a1b2c3" {
		t.Fatalf("channel = %q", f.channel)
	}
	if got := string(f.message.([]byte)); got != `{"elapsedMs":1000,"pulseCount":49,"volumeMls":1000}` {
		t.Fatalf("payload = %s", got)
	}

	f.err = errors.New("conn refused")
	if err := r.Publish(context.Background(), rec); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRedisDispatch(t *testing.T) {
	in := &fakeInbound{}
	r := newRedis(&fakeRedis{}, Topics{ClientID: "a1b2c3"}, in, nil)
	r.dispatch("conf/a1b2c3", []byte(`{"kFactor":10}`))
	r.dispatch("cmnd/a1b2c3", []byte(`{"restart":true}`))
	r.dispatch("other", []byte(`{}`))
	if len(in.configs) != 1 || len(in.commands) != 1 {
		t.Fatalf("unexpected dispatch: %+v", in)
	}
	in.err = errors.New("bad")
	r.dispatch("conf/a1b2c3", []byte(`x`))
}
