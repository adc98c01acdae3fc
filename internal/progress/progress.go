// Package progress renders per-stream generation progress in the
// terminal while a run is in flight.
package progress

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	primary    = lipgloss.Color("#7C3AED")
	secondary  = lipgloss.Color("#10B981")
	mutedColor = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	doneStyle = lipgloss.NewStyle().
			Foreground(secondary).
			Bold(true)

	barFilledStyle = lipgloss.NewStyle().Foreground(primary)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(mutedColor)
)

const barWidth = 30

// streamStartedMsg announces a stream and its principal count.
type streamStartedMsg struct {
	stream string
	total  int
}

// principalDoneMsg advances a stream by one principal.
type principalDoneMsg struct {
	stream string
}

// streamDoneMsg finishes a stream with its final row count.
type streamDoneMsg struct {
	stream string
	rows   int
}

// finishedMsg ends the program once the run completes.
type finishedMsg struct{}

type streamState struct {
	total int
	done  int
	rows  int
	final bool
}

// Model is the bubbletea model for run progress. Stream order is
// preserved in arrival order.
type Model struct {
	title   string
	order   []string
	streams map[string]*streamState
}

// NewModel creates a progress model with the given title line.
func NewModel(title string) Model {
	return Model{
		title:   title,
		streams: make(map[string]*streamState),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case streamStartedMsg:
		if _, ok := m.streams[msg.stream]; !ok {
			m.order = append(m.order, msg.stream)
		}
		m.streams[msg.stream] = &streamState{total: msg.total}

	case principalDoneMsg:
		if s, ok := m.streams[msg.stream]; ok {
			s.done++
		}

	case streamDoneMsg:
		if s, ok := m.streams[msg.stream]; ok {
			s.rows = msg.rows
			s.final = true
		}

	case finishedMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	for _, stream := range m.order {
		s := m.streams[stream]
		b.WriteString(labelStyle.Render(stream))
		b.WriteString(renderBar(s.done, s.total))
		if s.final {
			b.WriteString(doneStyle.Render(fmt.Sprintf("  %d rows", s.rows)))
		} else {
			b.WriteString(fmt.Sprintf("  %d/%d", s.done, s.total))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderBar(done, total int) string {
	if total <= 0 {
		return barEmptyStyle.Render(strings.Repeat("░", barWidth))
	}
	filled := done * barWidth / total
	if filled > barWidth {
		filled = barWidth
	}
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// Reporter forwards engine progress callbacks into a running bubbletea
// program. Safe to call from the generation goroutine.
type Reporter struct {
	program *tea.Program
}

// Start launches the progress display and returns the reporter to
// attach to the engine. Call Wait after the run to let the final frame
// render.
func Start(title string) *Reporter {
	p := tea.NewProgram(NewModel(title))
	r := &Reporter{program: p}

	go func() {
		// Errors here only degrade the display; the run itself is
		// unaffected.
		_, _ = p.Run()
	}()

	return r
}

func (r *Reporter) StreamStarted(stream string, total int) {
	r.program.Send(streamStartedMsg{stream: stream, total: total})
}

func (r *Reporter) PrincipalDone(stream string) {
	r.program.Send(principalDoneMsg{stream: stream})
}

func (r *Reporter) StreamDone(stream string, rows int) {
	r.program.Send(streamDoneMsg{stream: stream, rows: rows})
}

// Finish stops the display and blocks until it has shut down.
func (r *Reporter) Finish() {
	r.program.Send(finishedMsg{})
	r.program.Wait()
}
