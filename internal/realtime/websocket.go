package realtime

import (
	"log"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WebSocketConn wraps websocket.Conn so hub.go does not import websocket.
type WebSocketConn struct {
	Conn *websocket.Conn
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

// Serve registers conn as a watcher of txID, writes initial first and then
// every status message until the peer disconnects.
func (h *Hub) Serve(conn *websocket.Conn, txID string, initial []byte) {
	client := &Client{
		ID:            uuid.NewString(),
		TransactionID: txID,
		Conn:          NewWebSocketConn(conn),
		Send:          make(chan []byte, 16),
	}
	h.RegisterClient(client)
	defer h.UnregisterClient(client)

	if initial != nil {
		if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
			return
		}
	}

	go func() {
		for msg := range client.Send {
			if err := client.Conn.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[realtime] write to %s: %v", client.ID, err)
				return
			}
		}
	}()

	// reads only detect the close; clients send nothing meaningful
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
