package session

import (
	"fmt"
	"strings"

	"github.com/dhkiller350/cyber-chat/internal/domain"
)

// Commands resolved locally without a server round trip.
const localCommands = "/help /time /clear /status /ping"

// Role-gated commands. The client only advertises them; the server is
// the sole authority on execution and permission checks, so they are
// forwarded verbatim as a message send.
const (
	adminCommands = " /kick /ban /unban /banlist /mute /users"
	hostCommands  = " /shutdown"
)

// routeCommandLocked parses "/<command> [args...]" and either resolves
// it locally or delegates it to the server untouched.
func (s *Session) routeCommandLocked(text string) {
	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(fields) == 0 {
		s.noticeLocked("Unknown command: /")
		return
	}
	command := strings.ToLower(fields[0])

	switch command {
	case "help":
		s.noticeLocked("Available commands: " + s.helpTextLocked() + " /matrix")

	case "time":
		s.noticeLocked("Current time: " + s.clk.Now().Format("3:04:05 PM"))

	case "clear":
		s.notifyLocked(MessagesCleared{})

	case "status":
		s.noticeLocked(fmt.Sprintf("Room: %s | Users: %d | Messages: %d",
			s.room, s.userCount, s.messageCount))

	case "ping":
		s.probeLocked()
		s.noticeLocked("Pinging server...")

	case "matrix":
		s.noticeLocked("You are already in the Matrix, Neo.")

	case "kick", "ban", "unban", "banlist", "mute", "users", "shutdown":
		// Server-side commands: the wire does not distinguish them
		// from plain text and the server re-parses.
		if err := s.tr.Emit(domain.EventSendMessage, text); err != nil {
			s.noticeLocked("Cannot send command: Not connected to server")
		}

	default:
		s.noticeLocked("Unknown command: /" + command)
	}
}

// helpTextLocked lists the commands this role may see. A pure UI hint;
// never an enforcement boundary.
func (s *Session) helpTextLocked() string {
	help := localCommands
	if s.role == domain.RoleAdmin || s.role == domain.RoleHost {
		help += adminCommands
	}
	if s.role == domain.RoleHost {
		help += hostCommands
	}
	return help
}
