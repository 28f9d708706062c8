package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Client is one websocket subscriber watching a single transaction.
type Client struct {
	ID            string
	TransactionID string
	Conn          *WebSocketConn
	Send          chan []byte
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToTransaction delivers data to every client watching txID. Slow
// clients are skipped rather than blocking the caller.
func (h *Hub) SendToTransaction(txID string, data any) int {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[realtime] marshal message: %v", err)
		return 0
	}
	return h.sendRaw(txID, payload)
}

func (h *Hub) sendRaw(txID string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.TransactionID != txID {
			continue
		}
		select {
		case client.Send <- payload:
			sent++
		default:
		}
	}
	return sent
}

// Watchers counts the clients subscribed to txID.
func (h *Hub) Watchers(txID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, client := range h.clients {
		if client.TransactionID == txID {
			n++
		}
	}
	return n
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("[realtime] client %s watching %s", client.ID, client.TransactionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
			}
			h.mu.Unlock()
		}
	}
}
