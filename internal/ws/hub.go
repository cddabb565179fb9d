package ws

import (
	"encoding/json"
	"sync"
)

// Event is a WebSocket message broadcast to dashboard clients. The
// frontend treats events as invalidation hints and re-fetches the
// affected list; local state after a mutation is stale until then.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event types published by the handlers.
const (
	EventOrderCreated         = "order.created"
	EventOrderCompleted       = "order.completed"
	EventInvoiceCreated       = "invoice.created"
	EventInvoiceStatusChanged = "invoice.status_changed"
	EventInvoiceDeleted       = "invoice.deleted"
	EventClientCreated        = "client.created"
	EventClientDeleted        = "client.deleted"
)

// NewEvent marshals a payload into an Event. Marshal failures yield an
// event with a null payload rather than an error; events are advisory.
func NewEvent(eventType string, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = json.RawMessage("null")
	}
	return Event{Type: eventType, Payload: raw}
}

// Hub maintains the set of connected clients and fans events out to all
// of them. The app is single-tenant, so there is one room.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	mu sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and drop it
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues an event for every connected client. Safe to call
// with a nil hub (handlers under test run without one).
func (h *Hub) Broadcast(event Event) {
	if h == nil {
		return
	}
	h.broadcast <- event
}
