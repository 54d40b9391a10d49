// Topic naming and client identity for the messaging transports
package transport

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

// ErrNotConnected is returned when a publish is attempted while the
// broker connection is down.
var ErrNotConnected = errors.New("transport: not connected")

// Topics builds topic names of the form [prefix/]<type>/<clientId>[/suffix].
type Topics struct {
	Prefix   string
	Suffix   string
	ClientID string
}

func (t Topics) build(kind string) string {
	parts := make([]string, 0, 4)
	if t.Prefix != "" {
		parts = append(parts, t.Prefix)
	}
	parts = append(parts, kind, t.ClientID)
	if t.Suffix != "" {
		parts = append(parts, t.Suffix)
	}
	return strings.Join(parts, "/")
}

// Config is where configuration messages arrive.
func (t Topics) Config() string { return t.build("conf") }

// Command is where command messages arrive.
func (t Topics) Command() string { return t.build("cmnd") }

// Status is the base status topic.
func (t Topics) Status() string { return t.build("stat") }

// Telemetry is where telemetry records are published.
func (t Topics) Telemetry() string { return t.build("tele") }

// Log receives forwarded log lines.
func (t Topics) Log() string { return t.build("log") }

// Adopt receives the retained adoption document.
func (t Topics) Adopt() string { return t.Status() + "/adopt" }

// LWT receives the retained online flag and the broker's last will.
func (t Topics) LWT() string { return t.Status() + "/lwt" }

// DefaultClientID returns the last three bytes of the first hardware
// address in lowercase hex, or six hex digits of a random UUID when no
// interface has one.
func DefaultClientID() string {
	ifaces, err := net.Interfaces()
	if err == nil {
		if id := clientIDFromInterfaces(ifaces); id != "" {
			return id
		}
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func clientIDFromInterfaces(ifaces []net.Interface) string {
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagLoopback != 0 || len(ifc.HardwareAddr) != 6 {
			continue
		}
		mac := ifc.HardwareAddr
		return fmt.Sprintf("%02x%02x%02x", mac[3], mac[4], mac[5])
	}
	return ""
}

// Inbound receives raw configuration and command payloads.
type Inbound interface {
	SubmitConfig(payload []byte) error
	SubmitCommand(payload []byte) error
}
