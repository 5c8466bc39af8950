// Package ui renders the terminal client: a login prompt, the room
// browser and the chat screen, all fed by session notifications.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dhkiller350/cyber-chat/internal/client/session"
	"github.com/dhkiller350/cyber-chat/internal/domain"
)

type tickMsg time.Time

// Model is the bubbletea model for the whole client.
type Model struct {
	session *session.Session
	sink    *Sink

	input    textinput.Model
	viewport viewport.Model
	ready    bool
	width    int
	height   int

	snap    session.Snapshot
	lines   []domain.Message
	rooms   []domain.RoomSummary
	typing  string
	credits int
	errText string
}

func NewModel(s *session.Session, sink *Sink) Model {
	input := textinput.New()
	input.Placeholder = "enter your handle"
	input.CharLimit = 256
	input.Focus()

	return Model{
		session: s,
		sink:    sink,
		input:   input,
		snap:    s.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.sink.wait(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
