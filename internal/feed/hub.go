package feed

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"finetract/internal/alerts"
	"finetract/internal/models"
)

// Hub broadcasts pipeline events (accepted transactions, budget alerts,
// recurring detections) to connected websocket clients so a UI can refresh
// live. Slow or broken clients are dropped, never waited on.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		log:        log,
	}
}

// Start runs the hub loop in a background goroutine.
func (h *Hub) Start() {
	go func() {
		for {
			select {
			case conn := <-h.register:
				h.mu.Lock()
				h.clients[conn] = true
				n := len(h.clients)
				h.mu.Unlock()
				h.log.Info("feed_client_connected", "clients", n)
			case conn := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[conn]; ok {
					delete(h.clients, conn)
					conn.Close()
				}
				n := len(h.clients)
				h.mu.Unlock()
				h.log.Info("feed_client_disconnected", "clients", n)
			case message := <-h.broadcast:
				h.mu.Lock()
				for conn := range h.clients {
					if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
						h.log.Warn("feed_write_failed", "error", err.Error())
						conn.Close()
						delete(h.clients, conn)
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

// Register attaches a new websocket client to the feed.
func (h *Hub) Register(conn *websocket.Conn) {
	h.register <- conn
}

// Unregister detaches a websocket client.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.unregister <- conn
}

// BroadcastTransaction announces an accepted transaction. eventID is the
// ingest event's correlation ID.
func (h *Hub) BroadcastTransaction(eventID string, txn *models.Transaction, totalSpend float64) {
	h.send(map[string]any{
		"type":        "transaction",
		"event_id":    eventID,
		"amount":      txn.Amount,
		"txn_type":    txn.Type,
		"description": txn.Description,
		"category":    txn.Category,
		"timestamp":   txn.Timestamp,
		"total_spend": totalSpend,
	})
}

// Notify implements alerts.Sink: alert notifications ride the same feed.
func (h *Hub) Notify(n alerts.Notification) {
	h.send(map[string]any{
		"type":     "alert",
		"channel":  n.Channel,
		"priority": n.Priority,
		"title":    n.Title,
		"body":     n.Body,
	})
}

func (h *Hub) send(payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("feed_marshal_failed", "error", err.Error())
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Feed is best-effort; dropping a frame beats blocking ingest.
		h.log.Warn("feed_backlogged_frame_dropped")
	}
}
