package domain

import (
	"strings"
	"time"
)

// MessageType distinguishes user chat lines from system notices.
type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageSystem MessageType = "system"
)

// SystemAuthor is the synthetic author of locally generated notices.
const SystemAuthor = "SYSTEM"

// Message is a single chat line. Immutable once created; the timestamp
// is server-assigned for anything that crossed the wire.
type Message struct {
	Type      MessageType `json:"type"`
	Username  string      `json:"username"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// SystemMessage builds a system notice stamped with local time.
func SystemMessage(content string) Message {
	return Message{
		Type:      MessageSystem,
		Username:  SystemAuthor,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Role is the server-asserted privilege level for the current room.
type Role int

const (
	RoleMember Role = iota
	RoleAdmin
	RoleHost
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleHost:
		return "host"
	default:
		return "member"
	}
}

// RoleFromFlags maps the joinedRoom flags to a Role. Host wins when
// both are set.
func RoleFromFlags(isAdmin, isHost bool) Role {
	switch {
	case isHost:
		return RoleHost
	case isAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}

// RoomSummary is one entry of a roomList push. The list is replaced
// wholesale on every update, never merged.
type RoomSummary struct {
	ID        string `json:"id"`
	UserCount int    `json:"userCount"`
}

// DisplayName uppercases an identity for display. Equality elsewhere
// keeps the original casing.
func DisplayName(identity string) string {
	return strings.ToUpper(identity)
}
