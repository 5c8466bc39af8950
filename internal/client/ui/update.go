package ui

import (
	"errors"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dhkiller350/cyber-chat/internal/client/session"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatHeight := max(msg.Height-6, 3)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, chatHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = chatHeight
		}
		m.refreshViewport()
		return m, nil

	case tickMsg:
		m.snap = m.session.Snapshot()
		return m, tick()

	case noteMsg:
		m.applyNote(msg.note)
		return m, m.sink.wait()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) applyNote(note session.Notification) {
	switch n := note.(type) {
	case session.StateChanged:
		m.snap = m.session.Snapshot()
		m.errText = ""
		m.input.Reset()
		switch n.State {
		case session.StateUnauthenticated:
			m.input.Placeholder = "enter your handle"
		case session.StateRoomSelection:
			m.input.Placeholder = "room name"
		case session.StateInRoom:
			m.input.Placeholder = "say something, or /help"
		}
	case session.ConnectionChanged, session.LatencyUpdated:
		m.snap = m.session.Snapshot()
	case session.MessageAppended:
		m.lines = append(m.lines, n.Message)
		m.snap = m.session.Snapshot()
		m.refreshViewport()
	case session.HistoryReplayed:
		m.lines = append(m.lines, n.Messages...)
		m.refreshViewport()
	case session.MessagesCleared:
		m.lines = nil
		m.refreshViewport()
	case session.RoomListUpdated:
		m.rooms = n.Rooms
		m.snap = m.session.Snapshot()
	case session.TypingChanged:
		m.typing = n.Phrase
	case session.CreditsAwarded:
		m.credits += n.Amount
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		switch m.snap.State {
		case session.StateInRoom:
			m.session.LeaveRoom()
		case session.StateRoomSelection:
			m.session.ReturnToMenu()
		default:
			return m, tea.Quit
		}
		return m, nil

	case "enter":
		value := m.input.Value()
		switch m.snap.State {
		case session.StateUnauthenticated:
			if err := m.session.SubmitIdentity(value); err != nil {
				m.errText = identityError(err)
				return m, nil
			}
		case session.StateRoomSelection:
			if err := m.session.RequestJoin(value); err != nil {
				m.errText = "Enter a room name"
				return m, nil
			}
		case session.StateInRoom:
			m.session.TrySend(value)
		}
		m.errText = ""
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.snap.State == session.StateInRoom {
		m.session.InputActivity()
	}
	return m, cmd
}

func identityError(err error) string {
	switch {
	case errors.Is(err, session.ErrIdentityTooShort):
		return "Handle must be at least 2 characters"
	case errors.Is(err, session.ErrIdentityRequired):
		return "Handle required"
	default:
		return err.Error()
	}
}
