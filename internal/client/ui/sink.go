package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dhkiller350/cyber-chat/internal/client/session"
)

// noteMsg carries one session notification into the bubbletea loop.
type noteMsg struct {
	note session.Notification
}

// Sink bridges session notifications onto a channel the program reads.
// Notify never blocks the session; under backpressure the oldest frames
// drop and the next snapshot refresh heals the view.
type Sink struct {
	ch chan session.Notification
}

func NewSink() *Sink {
	return &Sink{ch: make(chan session.Notification, 512)}
}

func (s *Sink) Notify(n session.Notification) {
	select {
	case s.ch <- n:
	default:
	}
}

func (s *Sink) wait() tea.Cmd {
	return func() tea.Msg {
		return noteMsg{note: <-s.ch}
	}
}
