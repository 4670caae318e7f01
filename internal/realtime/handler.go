package realtime

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	apihttp "facility-cloud/internal/api/http"
	"facility-cloud/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Handler upgrades /api/ws connections. The auth middleware must run
// before it so the tenant identity is on the context.
type Handler struct {
	hub *Hub
}

// NewHandler constructs a websocket handler.
func NewHandler(hub *Hub) (*Handler, error) {
	if hub == nil {
		return nil, errors.New("realtime handler: nil hub")
	}
	return &Handler{hub: hub}, nil
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Printf("realtime: upgrade error: %v", err)
		return
	}
	client := &Client{
		hub:      h.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		tenantID: tenantID,
	}
	h.hub.register <- client
	go client.writePump()
	go client.readPump()
}
