package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
)

// TenantHandler handles hotel signup and the hotel's own profile
type TenantHandler struct {
	tenants *services.TenantService
}

func NewTenantHandler(tenants *services.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Signup creates a hotel with its first admin and logs the admin in
// POST /api/tenants/signup
func (h *TenantHandler) Signup(c *fiber.Ctx) error {
	var in models.SignupInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	token, err := h.tenants.Signup(c.UserContext(), in)
	if err != nil {
		return fail(c, err)
	}
	return response.Created(c, token)
}

// GET /api/tenant
func (h *TenantHandler) Get(c *fiber.Ctx) error {
	tenant, err := h.tenants.Get(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, tenant)
}

// PUT /api/tenant
func (h *TenantHandler) Update(c *fiber.Ctx) error {
	var in models.TenantUpdate
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	tenant, err := h.tenants.Update(c.UserContext(), middleware.TenantID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, tenant)
}
