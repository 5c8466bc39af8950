package session

import (
	"time"

	"github.com/dhkiller350/cyber-chat/internal/domain"
)

// Sink receives state-change notifications from the session. The
// rendering layer is the only intended consumer. Implementations must
// not call back into the session synchronously; hand the notification
// off to your own loop instead.
type Sink interface {
	Notify(n Notification)
}

// Notification is a marker for everything the session reports outward.
type Notification interface {
	isNotification()
}

// StateChanged reports a lifecycle transition.
type StateChanged struct {
	State State
}

// ConnectionChanged reports the transport link flipping.
type ConnectionChanged struct {
	Connected bool
}

// MessageAppended carries one message to render, user or system.
type MessageAppended struct {
	Message domain.Message
}

// HistoryReplayed carries a bulk replay in server order. Render as-is,
// never re-sorted.
type HistoryReplayed struct {
	Messages []domain.Message
}

// MessagesCleared asks the renderer to drop the visible scrollback.
type MessagesCleared struct{}

// RoomListUpdated replaces the room list wholesale.
type RoomListUpdated struct {
	Rooms []domain.RoomSummary
}

// TypingChanged carries the recomputed typing phrase; empty means
// nobody is typing.
type TypingChanged struct {
	Phrase string
}

// LatencyUpdated reports a completed round-trip probe.
type LatencyUpdated struct {
	Latency time.Duration
}

// CreditsAwarded signals a reward-eligible own message to the economy
// collaborator. The session does not track balances itself.
type CreditsAwarded struct {
	Amount int
}

func (StateChanged) isNotification()      {}
func (ConnectionChanged) isNotification() {}
func (MessageAppended) isNotification()   {}
func (HistoryReplayed) isNotification()   {}
func (MessagesCleared) isNotification()   {}
func (RoomListUpdated) isNotification()   {}
func (TypingChanged) isNotification()     {}
func (LatencyUpdated) isNotification()    {}
func (CreditsAwarded) isNotification()    {}
