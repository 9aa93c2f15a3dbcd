// Package notify implements the transient status banner shown after a booking
// or catalog action. It is a bubbletea component: Show returns the command that
// schedules the dismissal and Update consumes it.
package notify

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const DefaultDuration = 2 * time.Second

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// HideMsg asks the emitter with the matching id to hide the message shown at generation gen.
type HideMsg struct {
	id  int
	gen int
}

// HiddenMsg is emitted once each time a visible message is dismissed.
type HiddenMsg struct {
	Message string
	Kind    Kind
}

type Emitter struct {
	id       int
	gen      int
	visible  bool
	message  string
	kind     Kind
	duration time.Duration

	// OnHide runs once per visible to hidden transition.
	OnHide func()

	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
}

func New(duration time.Duration) Emitter {
	if duration <= 0 {
		duration = DefaultDuration
	}
	base := lipgloss.NewStyle().Bold(true).Padding(0, 2).Foreground(lipgloss.Color("15"))
	return Emitter{
		id:           nextID(),
		duration:     duration,
		SuccessStyle: base.Background(lipgloss.Color("#4CAF50")),
		ErrorStyle:   base.Background(lipgloss.Color("#F44336")),
	}
}

// Show displays message, replacing whatever is currently visible and restarting
// the dismiss timer.
func (e *Emitter) Show(message string, kind Kind) tea.Cmd {
	if kind != KindError {
		kind = KindSuccess
	}
	e.gen++
	e.visible = true
	e.message = message
	e.kind = kind

	id, gen := e.id, e.gen
	return tea.Tick(e.duration, func(time.Time) tea.Msg {
		return HideMsg{id: id, gen: gen}
	})
}

func (e *Emitter) Update(msg tea.Msg) tea.Cmd {
	hide, ok := msg.(HideMsg)
	if !ok || hide.id != e.id || hide.gen != e.gen || !e.visible {
		return nil
	}
	hidden := HiddenMsg{Message: e.message, Kind: e.kind}
	e.visible = false
	e.message = ""
	e.kind = ""
	if e.OnHide != nil {
		e.OnHide()
	}
	return func() tea.Msg { return hidden }
}

func (e Emitter) Visible() bool {
	return e.visible
}

func (e Emitter) Message() string {
	return e.message
}

func (e Emitter) Kind() Kind {
	return e.kind
}

func (e Emitter) Duration() time.Duration {
	return e.duration
}

func (e Emitter) View() string {
	if !e.visible {
		return ""
	}
	if e.kind == KindError {
		return e.ErrorStyle.Render(e.message)
	}
	return e.SuccessStyle.Render(e.message)
}
