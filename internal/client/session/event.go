package session

import "github.com/dhkiller350/cyber-chat/internal/domain"

// Event is one inbound occurrence from the transport boundary. All of
// them funnel through Session.HandleEvent so tests can replay a
// recorded sequence without a live connection.
type Event interface {
	isEvent()
}

// Connection lifecycle.

type ConnectedEvent struct{}

type DisconnectedEvent struct{}

type ConnectErrorEvent struct {
	Reason string
}

// Server pushes.

type RoomListEvent struct {
	Rooms []domain.RoomSummary
}

type JoinedRoomEvent struct {
	RoomID    string
	UserCount int
	IsAdmin   bool
	IsHost    bool
}

type HistoryEvent struct {
	Messages []domain.Message
}

type NewMessageEvent struct {
	Message domain.Message
}

type ServerErrorEvent struct {
	Text string
}

type UserTypingEvent struct {
	Username string
}

type UserStoppedTypingEvent struct {
	Username string
}

type PongEvent struct{}

type CommandResponseEvent struct {
	Type    string
	Content string
}

type KickedEvent struct {
	Type     string
	Reason   string
	Cooldown int64 // milliseconds
}

type BannedEvent struct {
	Reason string
}

func (ConnectedEvent) isEvent()         {}
func (DisconnectedEvent) isEvent()      {}
func (ConnectErrorEvent) isEvent()      {}
func (RoomListEvent) isEvent()          {}
func (JoinedRoomEvent) isEvent()        {}
func (HistoryEvent) isEvent()           {}
func (NewMessageEvent) isEvent()        {}
func (ServerErrorEvent) isEvent()       {}
func (UserTypingEvent) isEvent()        {}
func (UserStoppedTypingEvent) isEvent() {}
func (PongEvent) isEvent()              {}
func (CommandResponseEvent) isEvent()   {}
func (KickedEvent) isEvent()            {}
func (BannedEvent) isEvent()            {}
