package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/auth"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/realtime"
	"github.com/guestvoice/guestvoice-backend/internal/response"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = pingInterval + 10*time.Second
)

// RealtimeHandler upgrades dashboard clients to WebSocket and streams tenant events
type RealtimeHandler struct {
	hub    *realtime.Hub
	tokens *auth.TokenManager
	lookup middleware.IdentityLookup
}

func NewRealtimeHandler(hub *realtime.Hub, tokens *auth.TokenManager, lookup middleware.IdentityLookup) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, tokens: tokens, lookup: lookup}
}

// Upgrade authenticates the ?token= query parameter before the handshake.
// Browsers cannot set an Authorization header on WebSocket requests.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	claims, err := h.tokens.Validate(c.Query("token"))
	if err != nil {
		return response.Unauthorized(c, "Invalid access token")
	}
	if ok, err := middleware.Authorize(c, h.lookup, claims); !ok {
		return err
	}
	return c.Next()
}

// Serve pumps hub events to the connection until either side closes
// GET /ws?token=<jwt>
func (h *RealtimeHandler) Serve(conn *websocket.Conn) {
	tenantID, _ := conn.Locals(middleware.LocalsTenantID).(string)
	staffID, _ := conn.Locals(middleware.LocalsStaffID).(string)
	log := logger.Get().WithFields(
		zap.String("tenant_id", tenantID),
		zap.String("staff_id", staffID))

	client := h.hub.Register(tenantID, staffID)
	defer h.hub.Unregister(client)
	log.Debug("WebSocket client connected")

	// reader: only pongs and close frames are expected from dashboards
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped by the hub as a slow consumer
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
				log.Info("WebSocket client dropped")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			log.Debug("WebSocket client disconnected")
			return
		}
	}
}
