package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/metrics"
)

// Event types pushed to dashboard clients
const (
	CallStarted       = "call.started"
	CallTranscript    = "call.transcript"
	CallEnded         = "call.ended"
	RequestCreated    = "request.created"
	RequestUpdated    = "request.updated"
	RequestMessage    = "request.message"
	TenantUpdated     = "tenant.updated"
	SubscriptionEvent = "subscription.updated"
)

const defaultSendBuffer = 64

// Event is the envelope delivered over the WebSocket
type Event struct {
	Type      string      `json:"type"`
	TenantID  string      `json:"tenant_id"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Relay carries events between instances
type Relay interface {
	Publish(ctx context.Context, payload []byte) error
}

// Client is one connected dashboard session
type Client struct {
	TenantID string
	StaffID  string
	send     chan []byte
}

// Send returns the channel of encoded events for this client. It is closed when the hub drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Hub fans events out to the clients of each tenant
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	relay      Relay
	sendBuffer int
}

// NewHub creates a hub delivering in-process
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		sendBuffer: defaultSendBuffer,
	}
}

// SetRelay routes broadcasts through a cross-instance relay
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// Register adds a client for tenantID
func (h *Hub) Register(tenantID, staffID string) *Client {
	c := &Client{TenantID: tenantID, StaffID: staffID, send: make(chan []byte, h.sendBuffer)}

	h.mu.Lock()
	set, ok := h.clients[tenantID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[tenantID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.WebSocketClients.Inc()
	return c
}

// Unregister removes a client and closes its channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.TenantID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.TenantID)
	}
	close(c.send)
	metrics.WebSocketClients.Dec()
}

// ClientCount returns the number of clients connected for tenantID
func (h *Hub) ClientCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

// Broadcast sends an event to every client of tenantID, on every instance when a relay is set
func (h *Hub) Broadcast(ctx context.Context, tenantID, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		TenantID:  tenantID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		logger.FromContext(ctx).Error("Failed to encode realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()

	if relay != nil {
		err := relay.Publish(ctx, payload)
		if err == nil {
			return
		}
		logger.FromContext(ctx).Warn("Relay publish failed, delivering locally", zap.Error(err))
	}
	h.Deliver(payload)
}

// Deliver pushes an encoded event to local clients of the tenant named inside it
func (h *Hub) Deliver(payload []byte) {
	var head struct {
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal(payload, &head); err != nil || head.TenantID == "" {
		logger.Warn("Dropping malformed realtime payload")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[head.TenantID] {
		select {
		case c.send <- payload:
		default:
			// slow consumer
			logger.Warn("Dropping slow WebSocket client",
				zap.String("tenant_id", c.TenantID),
				zap.String("staff_id", c.StaffID))
			h.removeLocked(c)
			metrics.WebSocketDropped.Inc()
		}
	}
}
