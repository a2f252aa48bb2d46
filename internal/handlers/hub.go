// internal/handlers/hub.go
package handlers

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// outFrame is the wire shape of every outbound event.
type outFrame struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// clientConn is the transport-side record of one connected client.
type clientConn struct {
	id     uuid.UUID
	out    chan outFrame
	cancel context.CancelFunc
}

// Hub fans engine events out to connected clients and implements the
// cafe's Broadcaster. Send never blocks the engine: a client whose
// buffer is full loses the frame, and an unknown recipient (a harness
// bot, or a client that just disconnected) is skipped.
type Hub struct {
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[uuid.UUID]*clientConn
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[uuid.UUID]*clientConn),
	}
}

// Send queues one event for one client.
func (h *Hub) Send(client uuid.UUID, event string, payload map[string]interface{}) {
	h.mu.Lock()
	conn, ok := h.clients[client]
	h.mu.Unlock()
	if !ok {
		return
	}

	select {
	case conn.out <- outFrame{Event: event, Data: payload}:
	default:
		h.logger.WithFields(logrus.Fields{
			"client": client,
			"event":  event,
		}).Warn("Dropping frame for slow client")
	}
}

func (h *Hub) add(conn *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn.id] = conn
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}
