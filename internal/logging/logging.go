package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how log records are written.
type Options struct {
	Level      string
	Format     string // "text" or "json"
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Remote receives a JSON copy of every record when set.
	Remote *RemoteWriter
	// Stdout overrides the console writer, mainly for tests.
	Stdout io.Writer
}

// New returns a logger configured with a text handler writing to STDOUT.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// NewWithOptions builds a logger fanning records out to the console, an
// optional rotating file and an optional remote writer.
func NewWithOptions(o Options) (*slog.Logger, error) {
	level, err := ParseLevel(o.Level)
	if err != nil {
		return nil, err
	}
	hopts := &slog.HandlerOptions{Level: level}

	out := o.Stdout
	if out == nil {
		out = os.Stdout
	}
	var console slog.Handler
	if o.Format == "json" {
		console = slog.NewJSONHandler(out, hopts)
	} else {
		console = slog.NewTextHandler(out, hopts)
	}
	handlers := []slog.Handler{console}

	if o.File != "" {
		lj := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
		}
		handlers = append(handlers, slog.NewJSONHandler(lj, hopts))
	}
	if o.Remote != nil {
		handlers = append(handlers, slog.NewJSONHandler(o.Remote, hopts))
	}
	if len(handlers) == 1 {
		return slog.New(console), nil
	}
	return slog.New(fanout(handlers)), nil
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// RemoteWriter forwards log lines to a publish function that is attached
// once the messaging channel is up. Lines written while detached are
// discarded.
type RemoteWriter struct {
	mu      sync.Mutex
	publish func([]byte) error
}

// Attach sets the destination. A nil fn detaches.
func (w *RemoteWriter) Attach(fn func([]byte) error) {
	w.mu.Lock()
	w.publish = fn
	w.mu.Unlock()
}

// Write implements io.Writer. Publish errors are swallowed so a broken
// channel never fails local logging.
func (w *RemoteWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	fn := w.publish
	w.mu.Unlock()
	if fn == nil {
		return len(p), nil
	}
	line := make([]byte, len(p))
	copy(line, p)
	_ = fn(bytes.TrimRight(line, "\n"))
	return len(p), nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx with the logger stored.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves a logger from ctx or returns slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
