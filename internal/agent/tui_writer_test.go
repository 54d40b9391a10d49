package agent

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	if err := w.Write(sampleRow(1)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := p.msgs[0].(logMsg); !ok {
		t.Fatalf("expected logMsg, got %T", p.msgs[0])
	}
	if _, ok := p.msgs[1].(rowMsg); !ok {
		t.Fatalf("expected rowMsg, got %T", p.msgs[1])
	}
	w.SetStatus(Status{Delivered: 1})
	if _, ok := p.msgs[2].(statusMsg); !ok {
		t.Fatalf("expected statusMsg, got %T", p.msgs[2])
	}
	w.SetAdminStatus(true)
	if _, ok := p.msgs[3].(adminMsg); !ok {
		t.Fatalf("expected adminMsg, got %T", p.msgs[3])
	}
}

func TestTUIModelRows(t *testing.T) {
	m := newTUIModel()
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = mi.(tuiModel)
	for i := 1; i <= maxTableRows+2; i++ {
		mi, _ = m.Update(rowMsg{sampleRow(i)})
		m = mi.(tuiModel)
	}
	if len(m.rows) != maxTableRows {
		t.Fatalf("rows kept = %d, want %d", len(m.rows), maxTableRows)
	}
	if m.totalMls != uint64(1000*(maxTableRows+2)*(maxTableRows+3)/2) {
		t.Fatalf("total = %d", m.totalMls)
	}
	mi, _ = m.Update(statusMsg{Status{DeviceID: "abc123", KFactor: 49}})
	m = mi.(tuiModel)
	if !strings.Contains(m.View(), "abc123") {
		t.Fatalf("header missing device id")
	}
}

func TestWrapToggle(t *testing.T) {
	m := newTUIModel()
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 40})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "one two three four five six"})
	m = mi.(tuiModel)
	lines := strings.Split(m.vp.View(), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[1]) != "" {
		t.Fatalf("expected single line before wrap")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	lines = strings.Split(m.vp.View(), "\n")
	if strings.TrimSpace(lines[1]) == "" {
		t.Fatalf("expected wrapped content on second line")
	}
}

func TestScrollAndHelpToggle(t *testing.T) {
	m := newTUIModel()
	mi, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if m.autoscroll {
		t.Fatalf("autoscroll not toggled")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	m = mi.(tuiModel)
	if !strings.Contains(m.View(), "toggle line wrap") {
		t.Fatalf("help not shown")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
}
