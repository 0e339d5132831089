package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
)

// DashboardHandler serves the live overview for a hotel
type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// GET /api/dashboard/stats
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.dashboard.Stats(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, stats)
}
