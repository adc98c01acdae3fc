package progress

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func apply(t *testing.T, m tea.Model, msgs ...tea.Msg) tea.Model {
	t.Helper()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func TestModelTracksStreams(t *testing.T) {
	var m tea.Model = NewModel("run")

	m = apply(t, m,
		streamStartedMsg{stream: "audit", total: 4},
		principalDoneMsg{stream: "audit"},
		principalDoneMsg{stream: "audit"},
	)

	view := m.View()
	if !strings.Contains(view, "audit") {
		t.Errorf("view should name the stream: %q", view)
	}
	if !strings.Contains(view, "2/4") {
		t.Errorf("view should show progress count: %q", view)
	}
}

func TestModelFinishedStream(t *testing.T) {
	var m tea.Model = NewModel("run")

	m = apply(t, m,
		streamStartedMsg{stream: "signin", total: 2},
		principalDoneMsg{stream: "signin"},
		principalDoneMsg{stream: "signin"},
		streamDoneMsg{stream: "signin", rows: 150},
	)

	if !strings.Contains(m.View(), "150 rows") {
		t.Errorf("finished stream should show row count: %q", m.View())
	}
}

func TestModelIgnoresUnknownStreamAdvance(t *testing.T) {
	var m tea.Model = NewModel("run")
	m = apply(t, m, principalDoneMsg{stream: "nope"})
	if strings.Contains(m.View(), "nope") {
		t.Errorf("unannounced stream should not render: %q", m.View())
	}
}

func TestModelQuitsOnFinished(t *testing.T) {
	var m tea.Model = NewModel("run")
	_, cmd := m.Update(finishedMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}
