package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dhkiller350/cyber-chat/internal/domain"
	"github.com/dhkiller350/cyber-chat/internal/server/config"
	"github.com/dhkiller350/cyber-chat/internal/server/hub"
	"github.com/dhkiller350/cyber-chat/internal/server/service"
	"github.com/dhkiller350/cyber-chat/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub     *hub.Hub
	service service.ChatService
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
}

func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), conn, h.wsCfg)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleFrame, func(c *hub.Client) {
		h.service.HandleDisconnect(clientContext(c), c)
	})

	h.service.HandleConnect(client)
}

func (h *WSHandler) handleFrame(client *hub.Client, frame []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		client.SendEvent(domain.EventError, "Invalid message format")
		return
	}

	ctx := clientContext(client)

	switch env.Event {
	case domain.EventJoinRoom:
		var p domain.JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			client.SendEvent(domain.EventError, "Invalid joinRoom payload")
			return
		}
		if err := h.service.HandleJoinRoom(ctx, client, p); err != nil {
			log.L().Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("joinRoom failed")
		}

	case domain.EventSendMessage:
		var content string
		if err := json.Unmarshal(env.Data, &content); err != nil {
			client.SendEvent(domain.EventError, "Invalid sendMessage payload")
			return
		}
		if err := h.service.HandleSendMessage(ctx, client, content); err != nil {
			log.L().Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("sendMessage failed")
		}

	case domain.EventTyping:
		h.service.HandleTyping(ctx, client)

	case domain.EventStopTyping:
		h.service.HandleStopTyping(ctx, client)

	case domain.EventPing:
		h.service.HandlePing(ctx, client)

	default:
		client.SendEvent(domain.EventError, "Unknown event: "+env.Event)
	}
}

// clientContext scopes request logging to the connection.
func clientContext(c *hub.Client) context.Context {
	logger := log.L().With().Str(log.FieldClientID, c.ID).Logger()
	return log.WithLogger(context.Background(), logger)
}
