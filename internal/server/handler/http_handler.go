package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dhkiller350/cyber-chat/internal/server/hub"
)

// HTTPHandler serves the small read-only API next to the websocket
// endpoint.
type HTTPHandler struct {
	hub *hub.Hub
}

func NewHTTPHandler(h *hub.Hub) *HTTPHandler {
	return &HTTPHandler{hub: h}
}

func (h *HTTPHandler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *HTTPHandler) Rooms(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"rooms": h.hub.RoomSummaries(),
	})
}

func RegisterRoutes(r *mux.Router, ws *WSHandler, api *HTTPHandler) {
	r.HandleFunc("/ws", ws.HandleWebSocket)
	r.HandleFunc("/health", api.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/rooms", api.Rooms).Methods(http.MethodGet)
}
