package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	alertapp "facility-cloud/internal/alerts/application"
	"facility-cloud/internal/observability/metrics"
)

// Hub maintains the set of connected clients and fans alert events out
// to the clients of the matching tenant.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	clients    map[*Client]struct{}
	mu         sync.RWMutex
	logger     *log.Logger
}

type envelope struct {
	tenantID string
	payload  []byte
}

// NewHub constructs a hub. Run must be started for it to serve.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
		clients:    make(map[*Client]struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			metrics.SetWSClients(0)
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			metrics.SetWSClients(count)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			metrics.SetWSClients(count)
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.tenantID != message.tenantID {
					continue
				}
				select {
				case client.send <- message.payload:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			count := len(h.clients)
			h.mu.Unlock()
			metrics.SetWSClients(count)
		}
	}
}

// Notify pushes an alert event to the clients of the alert's tenant.
// Implements the alert service notifier.
func (h *Hub) Notify(_ context.Context, event alertapp.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Printf("realtime: marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- envelope{tenantID: event.Alert.TenantID, payload: payload}:
	default:
		h.logger.Printf("realtime: broadcast buffer full, dropping %s", event.Type)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one websocket connection scoped to a tenant.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	tenantID string
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Printf("realtime: read error: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
