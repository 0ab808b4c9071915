package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"transporter-dashboard/internal/cache"
	"transporter-dashboard/internal/notifications"
)

// Event types pushed to dashboard clients
const (
	EventNotification     = "notification"
	EventCacheInvalidated = "cache_invalidated"
	EventPong             = "pong"
)

// Event is the envelope of every message sent to a client
type Event struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func newEvent(eventType string, data interface{}) Event {
	return Event{Type: eventType, Timestamp: time.Now().UTC().Format(time.RFC3339), Data: data}
}

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients (client ID -> Client); a user may have several tabs open
	clients map[string]*Client

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex
}

// Message is a payload for one connection, one user, or everyone when both IDs are empty
type Message struct {
	ClientID string
	UserID   string
	Data     interface{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Printf("✅ [WEBSOCKET] Client CONNECTED")
			log.Printf("   Client ID: %s", client.ID)
			log.Printf("   User ID: %s", client.UserID)
			log.Printf("   Total connected clients: %d", total)
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED: %s (user %s), %d remaining", client.ID, client.UserID, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) deliver(message *Message) {
	data, err := json.Marshal(message.Data)
	if err != nil {
		log.Printf("❌ Failed to marshal message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		if message.ClientID != "" && id != message.ClientID {
			continue
		}
		if message.UserID != "" && client.UserID != message.UserID {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, disconnect
			close(client.send)
			delete(h.clients, id)
			log.Printf("⚠️ Client buffer full, disconnecting: %s", id)
		}
	}
}

// enqueue hands m to the hub loop; it is dropped once the hub has stopped
func (h *Hub) enqueue(m *Message) {
	select {
	case h.broadcast <- m:
	case <-h.done:
	}
}

// BroadcastToUser sends a message to every connection of a user
func (h *Hub) BroadcastToUser(userID string, data interface{}) {
	h.enqueue(&Message{UserID: userID, Data: data})
}

// BroadcastAll sends a message to every connected client
func (h *Hub) BroadcastAll(data interface{}) {
	h.enqueue(&Message{Data: data})
}

// NotificationSubscriber forwards notifications to their user, or to everyone when unaddressed
func (h *Hub) NotificationSubscriber() notifications.Subscriber {
	return func(n notifications.Notification) {
		h.enqueue(&Message{UserID: n.UserID, Data: newEvent(EventNotification, n)})
	}
}

// CacheListener tells every client which key prefix went stale so it can refetch
func (h *Hub) CacheListener() func(prefix cache.Key) {
	return func(prefix cache.Key) {
		h.BroadcastAll(newEvent(EventCacheInvalidated, map[string]interface{}{
			"key":    []string(prefix),
			"prefix": prefix.String(),
		}))
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user has at least one open connection
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserID == userID {
			return true
		}
	}
	return false
}

// GetConnectedUserIDs returns the distinct users with an open connection
func (h *Hub) GetConnectedUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool, len(h.clients))
	ids := make([]string, 0, len(h.clients))
	for _, client := range h.clients {
		if !seen[client.UserID] {
			seen[client.UserID] = true
			ids = append(ids, client.UserID)
		}
	}
	return ids
}
