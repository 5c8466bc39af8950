package hub

import (
	"sort"
	"sync"

	"github.com/dhkiller350/cyber-chat/internal/domain"
	"github.com/dhkiller350/cyber-chat/pkg/log"
)

// Hub tracks connected clients and room membership. Broadcasts fan out
// synchronously to each member's send buffer so delivery order within a
// room matches call order.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // clientID -> client
	rooms   map[string]map[string]*Client // roomID -> clientID -> client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client registered")
}

// Unregister removes the client everywhere and reports the room it was
// in, if any, so the caller can announce the departure.
func (h *Hub) Unregister(client *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return ""
	}
	delete(h.clients, client.ID)
	close(client.Send)

	room := client.Room()
	if members, ok := h.rooms[room]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")
	return room
}

// JoinRoom adds the client to a room, creating it on first join, and
// reports whether the client became its host.
func (h *Hub) JoinRoom(client *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	host := len(members) == 0
	members[client.ID] = client
	client.SetRoom(room, host)

	log.L().Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoom, room).Bool("host", host).Msg("client joined room")
	return host
}

func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.Room()
	if room == "" {
		return
	}
	if members, ok := h.rooms[room]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.SetRoom("", false)
	log.L().Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoom, room).Msg("client left room")
}

func (h *Hub) BroadcastToRoom(room, event string, payload any, excludeID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, client := range h.rooms[room] {
		if id == excludeID {
			continue
		}
		client.SendEvent(event, payload)
	}
}

func (h *Hub) BroadcastAll(event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		client.SendEvent(event, payload)
	}
}

func (h *Hub) UserCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// FindInRoom resolves a member by username, case-sensitive.
func (h *Hub) FindInRoom(room, username string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[room] {
		if client.Username() == username {
			return client
		}
	}
	return nil
}

func (h *Hub) MembersOf(room string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]*Client, 0, len(h.rooms[room]))
	for _, client := range h.rooms[room] {
		members = append(members, client)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Username() < members[j].Username() })
	return members
}

// RoomSummaries returns every live room sorted by name, the shape the
// roomList event carries.
func (h *Hub) RoomSummaries() []domain.RoomSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	summaries := make([]domain.RoomSummary, 0, len(h.rooms))
	for room, members := range h.rooms {
		summaries = append(summaries, domain.RoomSummary{ID: room, UserCount: len(members)})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}
