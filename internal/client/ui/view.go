package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dhkiller350/cyber-chat/internal/client/session"
	"github.com/dhkiller350/cyber-chat/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	systemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	hudStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	typingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

func (m Model) View() string {
	switch m.snap.State {
	case session.StateRoomSelection:
		return m.viewRooms()
	case session.StateInRoom:
		return m.viewChat()
	default:
		return m.viewLogin()
	}
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CYBERCHAT v2.0"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("secure terminal uplink"))
	b.WriteString("\n\n")
	b.WriteString("handle> " + m.input.View())
	b.WriteString("\n")
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter to continue, esc to quit"))
	return b.String()
}

func (m Model) viewRooms() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ACTIVE CHANNELS"))
	b.WriteString("  " + dimStyle.Render("logged in as "+m.snap.DisplayName))
	b.WriteString("\n\n")

	if len(m.rooms) == 0 {
		b.WriteString(dimStyle.Render("  no active rooms, name one to create it"))
		b.WriteString("\n")
	}
	for _, room := range m.rooms {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			nameStyle.Render(room.ID),
			dimStyle.Render(fmt.Sprintf("(%d online)", room.UserCount))))
	}

	b.WriteString("\njoin> " + m.input.View())
	b.WriteString("\n")
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter to join, esc for main menu"))
	return b.String()
}

func (m Model) viewChat() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("#" + m.snap.Room))
	if m.snap.Role != domain.RoleMember {
		b.WriteString(" " + dimStyle.Render("["+m.snap.Role.String()+"]"))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.typing != "" {
		b.WriteString(typingStyle.Render(m.typing + "..."))
	}
	b.WriteString("\n> " + m.input.View())
	b.WriteString("\n")
	b.WriteString(m.viewHUD())
	return b.String()
}

func (m Model) viewHUD() string {
	link := "SECURE"
	if !m.snap.Connected {
		link = errorStyle.Render("LINK LOST")
	}
	uptime := m.snap.Uptime.Truncate(time.Second)
	latency := "--"
	if m.snap.Latency > 0 {
		latency = fmt.Sprintf("%dms", m.snap.Latency.Milliseconds())
	}
	return hudStyle.Render(fmt.Sprintf(
		"%s | uptime %s | ping %s | users %d | sent %d | credits %d",
		link, uptime, latency, m.snap.UserCount, m.snap.MessageCount, m.credits))
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	rendered := make([]string, 0, len(m.lines))
	for _, line := range m.lines {
		rendered = append(rendered, renderMessage(line))
	}
	m.viewport.SetContent(strings.Join(rendered, "\n"))
	m.viewport.GotoBottom()
}

func renderMessage(msg domain.Message) string {
	stamp := dimStyle.Render(msg.Timestamp.Format("15:04:05"))
	if msg.Type == domain.MessageSystem {
		return fmt.Sprintf("%s %s", stamp, systemStyle.Render("*** "+msg.Content))
	}
	return fmt.Sprintf("%s %s %s", stamp,
		nameStyle.Render(domain.DisplayName(msg.Username)+":"), msg.Content)
}
