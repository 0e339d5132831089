package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

// AdminHandler handles platform administration across hotels
type AdminHandler struct {
	tenants   *services.TenantService
	billing   *services.BillingService
	dashboard *services.DashboardService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(tenants *services.TenantService, billing *services.BillingService, dashboard *services.DashboardService) *AdminHandler {
	return &AdminHandler{
		tenants:   tenants,
		billing:   billing,
		dashboard: dashboard,
	}
}

type suspendInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ListTenants lists hotels with search and active filters
// GET /api/admin/tenants
func (h *AdminHandler) ListTenants(c *fiber.Ctx) error {
	isActive, err := queryBool(c, "is_active")
	if err != nil {
		return fail(c, err)
	}
	page, limit := pagination(c)
	filter := models.TenantFilter{
		Search:   c.Query("search"),
		IsActive: isActive,
		Page:     page,
		Limit:    limit,
	}

	tenants, total, err := h.tenants.List(c.UserContext(), filter)
	if err != nil {
		return fail(c, err)
	}
	page, limit = storage.PageBounds(page, limit)
	return response.List(c, tenants, page, limit, total)
}

// GET /api/admin/tenants/:id
func (h *AdminHandler) GetTenant(c *fiber.Ctx) error {
	tenant, err := h.tenants.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, tenant)
}

// SuspendTenant locks a hotel out and emails it the reason
// POST /api/admin/tenants/:id/suspend
func (h *AdminHandler) SuspendTenant(c *fiber.Ctx) error {
	var in suspendInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	tenant, err := h.tenants.Suspend(c.UserContext(), c.Params("id"), in.Reason)
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, tenant)
}

// POST /api/admin/tenants/:id/reactivate
func (h *AdminHandler) ReactivateTenant(c *fiber.Ctx) error {
	tenant, err := h.tenants.Reactivate(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, tenant)
}

// DELETE /api/admin/tenants/:id
func (h *AdminHandler) DeleteTenant(c *fiber.Ctx) error {
	if err := h.tenants.Delete(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkInvoicePaid records an offline payment
// POST /api/admin/invoices/:id/mark-paid
func (h *AdminHandler) MarkInvoicePaid(c *fiber.Ctx) error {
	invoice, err := h.billing.MarkPaid(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, invoice)
}

// GET /api/admin/stats
func (h *AdminHandler) PlatformStats(c *fiber.Ctx) error {
	stats, err := h.dashboard.PlatformStats(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, stats)
}
