package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

// RequestHandler handles guest request tickets
type RequestHandler struct {
	requests *services.RequestService
}

func NewRequestHandler(requests *services.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// List returns requests filtered by status, type, room and assignee
// GET /api/requests
func (h *RequestHandler) List(c *fiber.Ctx) error {
	page, limit := pagination(c)
	filter := models.RequestFilter{
		Status:     c.Query("status"),
		Type:       c.Query("type"),
		RoomNumber: c.Query("room"),
		AssignedTo: c.Query("assigned_to"),
		Page:       page,
		Limit:      limit,
	}

	list, total, err := h.requests.List(c.UserContext(), middleware.TenantID(c), filter)
	if err != nil {
		return fail(c, err)
	}
	page, limit = storage.PageBounds(page, limit)
	return response.List(c, list, page, limit, total)
}

// POST /api/requests
func (h *RequestHandler) Create(c *fiber.Ctx) error {
	var in models.CreateRequestInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	req, err := h.requests.Create(c.UserContext(), actor(c), in)
	if err != nil {
		return fail(c, err)
	}
	return response.Created(c, req)
}

// Get returns the request with its message thread
// GET /api/requests/:id
func (h *RequestHandler) Get(c *fiber.Ctx) error {
	req, err := h.requests.Get(c.UserContext(), middleware.TenantID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, req)
}

// UpdateStatus moves the request through its lifecycle; illegal transitions answer 409
// PATCH /api/requests/:id/status
func (h *RequestHandler) UpdateStatus(c *fiber.Ctx) error {
	var in models.UpdateStatusInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	req, err := h.requests.UpdateStatus(c.UserContext(), actor(c), c.Params("id"), in)
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, req)
}

// PATCH /api/requests/:id/assign
func (h *RequestHandler) Assign(c *fiber.Ctx) error {
	var in models.AssignInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	req, err := h.requests.Assign(c.UserContext(), actor(c), c.Params("id"), in.StaffID)
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, req)
}

// AddMessage posts a note signed with the caller's name
// POST /api/requests/:id/messages
func (h *RequestHandler) AddMessage(c *fiber.Ctx) error {
	var in models.MessageInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	msg, err := h.requests.AddMessage(c.UserContext(), actor(c), c.Params("id"), in.Body)
	if err != nil {
		return fail(c, err)
	}
	return response.Created(c, msg)
}

// GET /api/requests/:id/messages
func (h *RequestHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.requests.ListMessages(c.UserContext(), middleware.TenantID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, msgs)
}
