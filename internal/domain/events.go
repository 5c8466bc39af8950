package domain

import "encoding/json"

// Envelope is the wire frame carrying every event in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event names pushed server -> client.
const (
	EventRoomList          = "roomList"
	EventJoinedRoom        = "joinedRoom"
	EventMessageHistory    = "messageHistory"
	EventNewMessage        = "newMessage"
	EventError             = "error"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventPong              = "pong"
	EventCommandResponse   = "commandResponse"
	EventKicked            = "kicked"
	EventBanned            = "banned"
)

// Event names emitted client -> server.
const (
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
	EventPing        = "ping"
)

// Kick event subtypes.
const (
	KickServer   = "server_kick"
	KickCooldown = "cooldown"
)

// Command response types.
const (
	ResponseError   = "error"
	ResponseSuccess = "success"
	ResponseInfo    = "info"
)

// Client -> Server payloads

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type TypingPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

// Server -> Client payloads

type JoinedRoomPayload struct {
	RoomID    string `json:"roomId"`
	UserCount int    `json:"userCount"`
	IsAdmin   bool   `json:"isAdmin"`
	IsHost    bool   `json:"isHost"`
}

type UserTypingPayload struct {
	Username string `json:"username"`
}

type CommandResponsePayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type KickedPayload struct {
	Type     string `json:"type"`
	Reason   string `json:"reason"`
	Cooldown int64  `json:"cooldown,omitempty"` // milliseconds
}

type BannedPayload struct {
	Reason string `json:"reason"`
}
