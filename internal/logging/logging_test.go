package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"", "debug", "INFO", "warn", "error"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewWithOptions_FanOut(t *testing.T) {
	var console bytes.Buffer
	var remote [][]byte
	rw := &RemoteWriter{}
	rw.Attach(func(b []byte) error {
		remote = append(remote, b)
		return nil
	})
	file := filepath.Join(t.TempDir(), "agent.log")

	l, err := NewWithOptions(Options{Level: "debug", File: file, MaxSizeMB: 1, Remote: rw, Stdout: &console})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	l.Info("telemetry published", "pulses", 49)

	if !strings.Contains(console.String(), "telemetry published") {
		t.Errorf("console missing record: %q", console.String())
	}
	if len(remote) != 1 {
		t.Fatalf("expected one remote line, got %d", len(remote))
	}
	var rec map[string]any
	if err := json.Unmarshal(remote[0], &rec); err != nil {
		t.Fatalf("remote line not JSON: %v", err)
	}
	if rec["msg"] != "telemetry published" || rec["pulses"] != float64(49) {
		t.Errorf("unexpected remote record: %v", rec)
	}
	data, err := os.ReadFile(file)
	if err != nil || !bytes.Contains(data, []byte("telemetry published")) {
		t.Errorf("file sink missing record: %v %q", err, data)
	}
}

func TestNewWithOptions_LevelFilter(t *testing.T) {
	var console bytes.Buffer
	l, err := NewWithOptions(Options{Level: "warn", Format: "json", Stdout: &console})
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(console.String(), "hidden") || !strings.Contains(console.String(), "shown") {
		t.Errorf("level filter not applied: %q", console.String())
	}
}

func TestRemoteWriterDetached(t *testing.T) {
	rw := &RemoteWriter{}
	n, err := rw.Write([]byte("x\n"))
	if n != 2 || err != nil {
		t.Fatalf("detached write = %d, %v", n, err)
	}
}

func TestRemoteWriterTrimsAndCopies(t *testing.T) {
	var got []byte
	rw := &RemoteWriter{}
	rw.Attach(func(b []byte) error {
		got = b
		return nil
	})
	p := []byte("level=info msg=hello\n")
	n, err := rw.Write(p)
	if n != len(p) || err != nil {
		t.Fatalf("write = %d, %v", n, err)
	}
	if string(got) != "level=info msg=hello" {
		t.Fatalf("forwarded %q", got)
	}
	// the handler reuses its buffer after Write returns
	copy(p, "XXXXX")
	if string(got) != "level=info msg=hello" {
		t.Fatalf("forwarded line aliases the caller's buffer: %q", got)
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := New()
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Fatalf("logger not returned from context")
	}
}
