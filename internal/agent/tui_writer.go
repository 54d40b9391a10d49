package agent

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"flowmeter-agent/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// rowMsg carries a delivered row for the table.
type rowMsg struct{ telemetry.Row }

// statusMsg carries a reporter status update.
type statusMsg struct{ Status }

// adminMsg reports admin server status.
type adminMsg struct{ active bool }

const (
	maxTableRows = 10
	maxLogLines  = 500
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// TUIWriter renders delivered telemetry using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter() *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		// quitting the monitor stops the agent
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(row telemetry.Row) error {
	line := fmt.Sprintf("%s[%s]%s %selapsed=%dms%s %spulses=%d%s %svolume=%dmL%s %sflow=%.2fL/min%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorCyan, row.ElapsedMs, colorReset,
		colorMagenta, row.PulseCount, colorReset,
		colorGreen, row.VolumeMls, colorReset,
		colorYellow, row.FlowLPM, colorReset)
	w.program.Send(logMsg{line: line})
	w.program.Send(rowMsg{row})
	return nil
}

// WriteBatch outputs multiple telemetry rows.
func (w *TUIWriter) WriteBatch(rows []telemetry.Row) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// SetStatus implements StatusWriter.
func (w *TUIWriter) SetStatus(s Status) {
	w.program.Send(statusMsg{s})
}

// SetAdminStatus updates the admin server indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	table      table.Model
	vp         viewport.Model
	rows       []telemetry.Row
	logs       []string
	status     Status
	admin      bool
	wrap       bool
	autoscroll bool
	help       bool
	width      int
	height     int
	totalMls   uint64
}

func newTUIModel() tuiModel {
	cols := []table.Column{
		{Title: "Time", Width: 10},
		{Title: "Elapsed ms", Width: 10},
		{Title: "Pulses", Width: 8},
		{Title: "Volume mL", Width: 10},
		{Title: "Flow L/min", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(maxTableRows+1))
	return tuiModel{
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "h", "?":
			m.help = !m.help
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case rowMsg:
		m.rows = append(m.rows, msg.Row)
		if len(m.rows) > maxTableRows {
			m.rows = m.rows[len(m.rows)-maxTableRows:]
		}
		m.totalMls += uint64(msg.VolumeMls)
		m.table.SetRows(m.tableRows())
	case statusMsg:
		m.status = msg.Status
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func (m tuiModel) tableRows() []table.Row {
	out := make([]table.Row, 0, len(m.rows))
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		out = append(out, table.Row{
			r.Timestamp.Format("15:04:05"),
			fmt.Sprintf("%d", r.ElapsedMs),
			fmt.Sprintf("%d", r.PulseCount),
			fmt.Sprintf("%d", r.VolumeMls),
			fmt.Sprintf("%.2f", r.FlowLPM),
		})
	}
	return out
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.table.View()) + 4
	h := m.height - used
	if h < 3 {
		h = 3
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	content := strings.Join(m.logs, "\n")
	if m.wrap && m.vp.Width > 0 {
		content = wordwrap.String(content, m.vp.Width)
	}
	m.vp.SetContent(content)
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderHeader() string {
	s := m.status
	admin := warnStyle.Render("off")
	if m.admin {
		admin = okStyle.Render("listening")
	}
	failed := okStyle.Render(fmt.Sprintf("%d", s.Failed))
	if s.Failed > 0 {
		failed = warnStyle.Render(fmt.Sprintf("%d", s.Failed))
	}
	lines := []string{
		titleStyle.Render("Flow Meter Agent") + " " + labelStyle.Render(s.DeviceID),
		fmt.Sprintf("%s %dms  %s %d  %s %s  %s %s",
			labelStyle.Render("interval"), s.TelemetryIntervalMs,
			labelStyle.Render("k-factor"), s.KFactor,
			labelStyle.Render("policy"), s.Policy,
			labelStyle.Render("admin"), admin),
		fmt.Sprintf("%s %d  %s %s  %s %d  %s %.3fL",
			labelStyle.Render("delivered"), s.Delivered,
			labelStyle.Render("failed"), failed,
			labelStyle.Render("dropped pulses"), s.DroppedPulses,
			labelStyle.Render("total"), float64(m.totalMls)/1000),
	}
	return strings.Join(lines, "\n")
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		titleStyle.Render("Keys"),
		"q, ctrl+c  quit",
		"w          toggle line wrap",
		"s          toggle autoscroll",
		"h, ?       toggle this help",
		"up/down    scroll log",
	}
	return strings.Join(lines, "\n")
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	width := m.vp.Width
	if width <= 0 {
		width = 40
	}
	divider := strings.Repeat("─", width)
	scroll := "autoscroll on"
	if !m.autoscroll {
		scroll = "autoscroll off"
	}
	sections := []string{
		m.renderHeader(),
		divider,
		m.table.View(),
		divider,
		m.vp.View(),
		divider,
		helpStyle.Render("h help · w wrap · s " + scroll + " · q quit"),
	}
	return strings.Join(sections, "\n")
}
