package system

import (
	"encoding/json"
	"sync"
	"time"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/features/events"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// TransitionMessage is what the feed pushes to every connected client.
type TransitionMessage struct {
	RowKey     string    `json:"row_key"`
	EntityType string    `json:"entity_type"`
	EventType  string    `json:"event_type"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	At         time.Time `json:"at"`
}

// Hub fans status transitions out to websocket subscribers. Dashboards that
// used to poll the stats endpoint can subscribe here instead. A slow or
// dead client is dropped, never waited on.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: map[*websocket.Conn]bool{},
		logger:  logger,
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// PublishTransition implements events.TransitionPublisher.
func (h *Hub) PublishTransition(event *events.InboundEvent, from, to common_models.EventStatus) {
	msg, err := json.Marshal(TransitionMessage{
		RowKey:     event.RowKey,
		EntityType: event.EntityType,
		EventType:  event.EventType,
		From:       string(from),
		To:         string(to),
		At:         time.Now(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("dropping websocket client", zap.Error(err))
			h.unregister(conn)
			conn.Close()
		}
	}
}

// HandleFeed holds one subscriber connection open until it drops. Incoming
// messages are discarded; the feed is one-way.
func (h *Hub) HandleFeed(conn *websocket.Conn) {
	h.register(conn)
	defer func() {
		h.unregister(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
