// Package adopt builds the self-description document a management
// system uses to adopt the device.
package adopt

import (
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"flowmeter-agent/internal/config"
)

// JSONSchemaVersion is the draft used by the config and command schemas.
const JSONSchemaVersion = "http://json-schema.org/draft-07/schema#"

// Firmware describes the running build.
type Firmware struct {
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Maker     string `json:"maker"`
	Version   string `json:"version"`
	GithubURL string `json:"githubUrl,omitempty"`
}

// System describes the host process.
type System struct {
	Hostname       string `json:"hostname"`
	GoVersion      string `json:"goVersion"`
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	NumCPU         int    `json:"numCpu"`
	HeapAllocBytes uint64 `json:"heapAllocBytes"`
	HeapSysBytes   uint64 `json:"heapSysBytes"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
	BootID         string `json:"bootId,omitempty"`
}

// Network describes the primary interface.
type Network struct {
	Mode string `json:"mode"`
	IP   string `json:"ip,omitempty"`
	MAC  string `json:"mac,omitempty"`
}

// Property is one JSON-schema property.
type Property struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Minimum     *int   `json:"minimum,omitempty"`
	Maximum     *int   `json:"maximum,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Schema is a JSON-schema object with named properties.
type Schema struct {
	Schema     string              `json:"$schema"`
	Title      string              `json:"title"`
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
}

// Document is the adoption document.
type Document struct {
	Firmware      Firmware `json:"firmware"`
	System        System   `json:"system"`
	Network       Network  `json:"network"`
	ConfigSchema  Schema   `json:"configSchema"`
	CommandSchema Schema   `json:"commandSchema"`
}

// Info holds the inputs that vary per process.
type Info struct {
	Firmware Firmware
	BootID   string
	Started  time.Time
	// Interfaces overrides interface discovery, mainly for tests.
	Interfaces []net.Interface
	// Addrs returns the addresses of an interface. Defaults to
	// (*net.Interface).Addrs.
	Addrs func(net.Interface) ([]net.Addr, error)
}

// Build assembles the document from static metadata and live process
// state.
func Build(info Info) Document {
	return Document{
		Firmware:      info.Firmware,
		System:        systemInfo(info),
		Network:       networkInfo(info),
		ConfigSchema:  ConfigSchema(info.Firmware.ShortName),
		CommandSchema: CommandSchema(info.Firmware.ShortName),
	}
}

func intp(v int) *int { return &v }

// ConfigSchema describes the runtime configuration message.
func ConfigSchema(title string) Schema {
	return Schema{
		Schema: JSONSchemaVersion,
		Title:  title,
		Type:   "object",
		Properties: map[string]Property{
			"telemetryIntervalMs": {
				Title:       "Telemetry Interval (ms)",
				Description: "How often to publish telemetry data (defaults to 1000ms, i.e. 1 second)",
				Type:        "integer",
				Minimum:     intp(config.MinTelemetryIntervalMs),
				Maximum:     intp(config.MaxTelemetryIntervalMs),
				Default:     config.DefaultTelemetryIntervalMs,
			},
			"kFactor": {
				Title:       "K-Factor",
				Description: "Number of pulses per litre (defaults to 49, check flow sensor specs)",
				Type:        "integer",
				Minimum:     intp(config.MinKFactor),
				Maximum:     intp(config.MaxKFactor),
				Default:     config.DefaultKFactor,
			},
		},
	}
}

// CommandSchema describes the command message.
func CommandSchema(title string) Schema {
	return Schema{
		Schema: JSONSchemaVersion,
		Title:  title,
		Type:   "object",
		Properties: map[string]Property{
			"restart": {Title: "Restart", Type: "boolean"},
		},
	}
}

func systemInfo(info Info) System {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	host, _ := os.Hostname()
	s := System{
		Hostname:       host,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		NumCPU:         runtime.NumCPU(),
		HeapAllocBytes: ms.HeapAlloc,
		HeapSysBytes:   ms.HeapSys,
		BootID:         info.BootID,
	}
	if !info.Started.IsZero() {
		s.UptimeSeconds = int64(time.Since(info.Started).Seconds())
	}
	return s
}

func networkInfo(info Info) Network {
	ifaces := info.Interfaces
	if ifaces == nil {
		ifaces, _ = net.Interfaces()
	}
	addrs := info.Addrs
	if addrs == nil {
		addrs = func(i net.Interface) ([]net.Addr, error) { return i.Addrs() }
	}
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagLoopback != 0 || ifc.Flags&net.FlagUp == 0 || len(ifc.HardwareAddr) == 0 {
			continue
		}
		n := Network{Mode: "ethernet", MAC: ifc.HardwareAddr.String()}
		if isWireless(ifc.Name) {
			n.Mode = "wifi"
		}
		as, _ := addrs(ifc)
		for _, a := range as {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
				n.IP = ipn.IP.String()
				break
			}
		}
		return n
	}
	return Network{Mode: "none"}
}

func isWireless(name string) bool {
	return strings.HasPrefix(name, "wl")
}
