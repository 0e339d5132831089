package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/monitor"
)

// Pinger checks a backing dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	store    Pinger
	monitor  *monitor.MemoryMonitor
	sessions func() int
}

// NewHealthHandler creates a new health handler. mon and sessions may be nil.
func NewHealthHandler(version string, store Pinger, mon *monitor.MemoryMonitor, sessions func() int) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		store:    store,
		monitor:  mon,
		sessions: sessions,
	}
}

// Check returns the health status of the service; 503 when the store is unreachable
// GET /health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "healthy"
	statusCode := fiber.StatusOK

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("Health check: store unreachable", zap.Error(err))
		status = "unhealthy"
		statusCode = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{
		"status":   status,
		"service":  "GuestVoice Backend",
		"version":  h.Version,
		"database": statusCode == fiber.StatusOK,
	}
	if h.monitor != nil {
		snap := h.monitor.Last()
		body["memory"] = snap
		if snap.Level == monitor.LevelCritical.String() && status == "healthy" {
			body["status"] = "degraded"
		}
	}
	if h.sessions != nil {
		body["active_calls"] = h.sessions()
	}
	return c.Status(statusCode).JSON(body)
}
