// Writer implementation printing telemetry to STDOUT
package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"flowmeter-agent/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// StdoutWriter prints telemetry rows either as JSON lines or, on a
// terminal, as colourised key/value lines preceded by a short overview.
type StdoutWriter struct {
	out      io.Writer
	colorize bool
	info     Status
	once     sync.Once
	mu       sync.Mutex
}

// NewStdoutWriter writes to os.Stdout and colourises when it is a
// terminal.
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{out: os.Stdout, colorize: term.IsTerminal(int(os.Stdout.Fd()))}
}

// NewJSONStdoutWriter writes JSON lines to out.
func NewJSONStdoutWriter(out io.Writer) *StdoutWriter {
	return &StdoutWriter{out: out}
}

// SetStatus records reporter settings for the overview.
func (w *StdoutWriter) SetStatus(s Status) {
	w.mu.Lock()
	w.info = s
	w.mu.Unlock()
}

func (w *StdoutWriter) printOverview() {
	fmt.Fprintln(w.out, "Flow Meter Agent:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Device:\t%s\n", w.info.DeviceID)
	fmt.Fprintf(tw, "Telemetry Interval (ms):\t%d\n", w.info.TelemetryIntervalMs)
	fmt.Fprintf(tw, "K-Factor (pulses/L):\t%d\n", w.info.KFactor)
	fmt.Fprintf(tw, "Failure Policy:\t%s\n", w.info.Policy)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single telemetry row.
func (w *StdoutWriter) Write(row telemetry.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.colorize {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w.out, string(data))
		return err
	}

	w.once.Do(w.printOverview)
	flowColor := colorGreen
	switch {
	case row.PulseCount == 0:
		flowColor = colorGray
	case row.FlowLPM >= 30:
		flowColor = colorRed
	case row.FlowLPM >= 10:
		flowColor = colorYellow
	}
	_, err := fmt.Fprintf(w.out, "%s[%s]%s %sdevice=%s%s %selapsed=%dms%s %spulses=%d%s %svolume=%dmL%s %sflow=%.2fL/min%s\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, row.DeviceID, colorReset,
		colorCyan, row.ElapsedMs, colorReset,
		colorMagenta, row.PulseCount, colorReset,
		colorGreen, row.VolumeMls, colorReset,
		flowColor, row.FlowLPM, colorReset)
	return err
}

// WriteBatch outputs multiple telemetry rows.
func (w *StdoutWriter) WriteBatch(rows []telemetry.Row) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
