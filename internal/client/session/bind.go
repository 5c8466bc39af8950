package session

import (
	"encoding/json"

	"github.com/dhkiller350/cyber-chat/internal/client/transport"
	"github.com/dhkiller350/cyber-chat/internal/domain"
	"github.com/dhkiller350/cyber-chat/pkg/log"
)

// Bind subscribes the session to every event the transport surfaces.
// Decoding happens here so the reducer only ever sees typed events.
func (s *Session) Bind(t *transport.Transport) {
	t.OnConnect(func() { s.HandleEvent(ConnectedEvent{}) })
	t.OnDisconnect(func() { s.HandleEvent(DisconnectedEvent{}) })
	t.OnConnectError(func(reason string) { s.HandleEvent(ConnectErrorEvent{Reason: reason}) })

	t.On(domain.EventRoomList, func(data json.RawMessage) {
		var rooms []domain.RoomSummary
		if !s.decode(domain.EventRoomList, data, &rooms) {
			return
		}
		s.HandleEvent(RoomListEvent{Rooms: rooms})
	})

	t.On(domain.EventJoinedRoom, func(data json.RawMessage) {
		var p domain.JoinedRoomPayload
		if !s.decode(domain.EventJoinedRoom, data, &p) {
			return
		}
		s.HandleEvent(JoinedRoomEvent{
			RoomID:    p.RoomID,
			UserCount: p.UserCount,
			IsAdmin:   p.IsAdmin,
			IsHost:    p.IsHost,
		})
	})

	t.On(domain.EventMessageHistory, func(data json.RawMessage) {
		var messages []domain.Message
		if !s.decode(domain.EventMessageHistory, data, &messages) {
			return
		}
		s.HandleEvent(HistoryEvent{Messages: messages})
	})

	t.On(domain.EventNewMessage, func(data json.RawMessage) {
		var m domain.Message
		if !s.decode(domain.EventNewMessage, data, &m) {
			return
		}
		s.HandleEvent(NewMessageEvent{Message: m})
	})

	t.On(domain.EventError, func(data json.RawMessage) {
		var text string
		if !s.decode(domain.EventError, data, &text) {
			return
		}
		s.HandleEvent(ServerErrorEvent{Text: text})
	})

	t.On(domain.EventUserTyping, func(data json.RawMessage) {
		var p domain.UserTypingPayload
		if !s.decode(domain.EventUserTyping, data, &p) {
			return
		}
		s.HandleEvent(UserTypingEvent{Username: p.Username})
	})

	t.On(domain.EventUserStoppedTyping, func(data json.RawMessage) {
		var p domain.UserTypingPayload
		if !s.decode(domain.EventUserStoppedTyping, data, &p) {
			return
		}
		s.HandleEvent(UserStoppedTypingEvent{Username: p.Username})
	})

	t.On(domain.EventPong, func(json.RawMessage) {
		s.HandleEvent(PongEvent{})
	})

	t.On(domain.EventCommandResponse, func(data json.RawMessage) {
		var p domain.CommandResponsePayload
		if !s.decode(domain.EventCommandResponse, data, &p) {
			return
		}
		s.HandleEvent(CommandResponseEvent{Type: p.Type, Content: p.Content})
	})

	t.On(domain.EventKicked, func(data json.RawMessage) {
		var p domain.KickedPayload
		if !s.decode(domain.EventKicked, data, &p) {
			return
		}
		s.HandleEvent(KickedEvent{Type: p.Type, Reason: p.Reason, Cooldown: p.Cooldown})
	})

	t.On(domain.EventBanned, func(data json.RawMessage) {
		var p domain.BannedPayload
		if !s.decode(domain.EventBanned, data, &p) {
			return
		}
		s.HandleEvent(BannedEvent{Reason: p.Reason})
	})
}

func (s *Session) decode(event string, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, event).Msg("malformed payload")
		return false
	}
	return true
}
