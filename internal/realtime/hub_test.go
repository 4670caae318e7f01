package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	alertapp "facility-cloud/internal/alerts/application"
	alerts "facility-cloud/internal/alerts/domain"
	"facility-cloud/internal/auth"
)

func startServer(t *testing.T, hub *Hub, tenantID string) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(hub)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithIdentity(r.Context(), tenantID, auth.RoleViewer, "user-1")
		handler.ServeHTTP(w, r.WithContext(ctx))
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversAlertEvents(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := startServer(t, hub, "tenant-1")
	conn := dial(t, server)
	waitForClients(t, hub, 1)

	hub.Notify(context.Background(), alertapp.Event{
		Type:  alertapp.EventNewAlert,
		Alert: alerts.Alert{ID: "alert-1", TenantID: "tenant-1", Severity: alerts.SeverityHigh},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event struct {
		Type string       `json:"type"`
		Data alerts.Alert `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != alertapp.EventNewAlert || event.Data.ID != "alert-1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestHubScopesEventsToTenant(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	otherServer := startServer(t, hub, "tenant-2")
	otherConn := dial(t, otherServer)
	waitForClients(t, hub, 1)

	hub.Notify(context.Background(), alertapp.Event{
		Type:  alertapp.EventNewAlert,
		Alert: alerts.Alert{ID: "alert-1", TenantID: "tenant-1"},
	})

	_ = otherConn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := otherConn.ReadMessage(); err == nil {
		t.Fatal("client of another tenant received the event")
	}
}

func TestHandlerRejectsAnonymous(t *testing.T) {
	hub := NewHub(nil)
	handler, _ := NewHandler(hub)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
