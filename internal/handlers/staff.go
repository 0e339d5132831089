package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
)

// StaffHandler handles hotel staff accounts
type StaffHandler struct {
	staff *services.StaffService
}

func NewStaffHandler(staff *services.StaffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// GET /api/staff
func (h *StaffHandler) List(c *fiber.Ctx) error {
	list, err := h.staff.List(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, list)
}

// Create adds a staff member and emails their credentials
// POST /api/staff
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	var in models.CreateStaffInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	staff, err := h.staff.Create(c.UserContext(), actor(c), in)
	if err != nil {
		return fail(c, err)
	}
	return response.Created(c, staff)
}

// GET /api/staff/:id
func (h *StaffHandler) Get(c *fiber.Ctx) error {
	staff, err := h.staff.Get(c.UserContext(), middleware.TenantID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, staff)
}

// PUT /api/staff/:id
func (h *StaffHandler) Update(c *fiber.Ctx) error {
	var in models.StaffUpdate
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	staff, err := h.staff.Update(c.UserContext(), actor(c), c.Params("id"), in)
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, staff)
}

// Delete deactivates a staff member; the row is kept for request history
// DELETE /api/staff/:id
func (h *StaffHandler) Delete(c *fiber.Ctx) error {
	if err := h.staff.Deactivate(c.UserContext(), actor(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
