package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nanobanana/internal/logging"
	"nanobanana/internal/session"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPingInterval   = 30 * time.Second
	wsSendBufferSize = 32
)

// Event is one WebSocket frame pushed to the Mini App client.
type Event struct {
	Type    string           `json:"type"`
	Mode    session.Mode     `json:"mode,omitempty"`
	Message *session.Message `json:"message,omitempty"`
}

const (
	EventMessageAdded       = "message_added"
	EventMessageSettled     = "message_settled"
	EventCredentialRequired = "credential_required"
)

// Hub fans events out to every connected client. It implements
// session.Listener and credential.Notifier.
type Hub struct {
	logger logging.Logger

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		logger:  logging.OrNop(logger),
		clients: make(map[*hubClient]struct{}),
	}
}

func (h *Hub) OnMessageAdded(mode session.Mode, msg session.Message) {
	h.broadcast(Event{Type: EventMessageAdded, Mode: mode, Message: &msg})
}

func (h *Hub) OnMessageSettled(mode session.Mode, msg session.Message) {
	h.broadcast(Event{Type: EventMessageSettled, Mode: mode, Message: &msg})
}

func (h *Hub) NotifyCredentialRequired() {
	h.broadcast(Event{Type: EventCredentialRequired})
}

func (h *Hub) broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; drop the frame rather than block the pipeline.
			h.logger.Warn("dropping event for slow websocket client")
		}
	}
}

// Serve upgrades the request and pumps events until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &hubClient{conn: conn, send: make(chan []byte, wsSendBufferSize)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected (%d active)", count)

	go h.writePump(client)
	h.readPump(client)
	return nil
}

func (h *Hub) writePump(client *hubClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the client speaks through the HTTP
// API. It exists to detect disconnects and answer control frames.
func (h *Hub) readPump(client *hubClient) {
	defer h.drop(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(client *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	_ = client.conn.Close()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		h.drop(client)
	}
}
