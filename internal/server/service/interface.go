package service

import (
	"context"

	"github.com/dhkiller350/cyber-chat/internal/domain"
	"github.com/dhkiller350/cyber-chat/internal/server/hub"
)

type ChatService interface {
	// HandleConnect greets a freshly registered client with the room list.
	HandleConnect(c *hub.Client)
	HandleJoinRoom(ctx context.Context, c *hub.Client, p domain.JoinRoomPayload) error
	HandleSendMessage(ctx context.Context, c *hub.Client, content string) error
	HandleTyping(ctx context.Context, c *hub.Client) error
	HandleStopTyping(ctx context.Context, c *hub.Client) error
	HandlePing(ctx context.Context, c *hub.Client) error
	HandleDisconnect(ctx context.Context, c *hub.Client)

	// ShutdownRequested fires once when a host issues /shutdown. The
	// value is the username that requested it.
	ShutdownRequested() <-chan string
}
