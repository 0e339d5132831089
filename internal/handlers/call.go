package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

// CallHandler exposes call history to hotel staff
type CallHandler struct {
	voice *services.VoiceService
}

func NewCallHandler(voice *services.VoiceService) *CallHandler {
	return &CallHandler{voice: voice}
}

// List returns calls filtered by status and start date
// GET /api/calls?status=&from=2026-01-01&to=2026-01-31
func (h *CallHandler) List(c *fiber.Ctx) error {
	from, err := queryDate(c, "from", false)
	if err != nil {
		return fail(c, err)
	}
	to, err := queryDate(c, "to", true)
	if err != nil {
		return fail(c, err)
	}
	page, limit := pagination(c)
	filter := models.CallFilter{
		Status: c.Query("status"),
		From:   from,
		To:     to,
		Page:   page,
		Limit:  limit,
	}

	calls, total, err := h.voice.ListCalls(c.UserContext(), middleware.TenantID(c), filter)
	if err != nil {
		return fail(c, err)
	}
	page, limit = storage.PageBounds(page, limit)
	return response.List(c, calls, page, limit, total)
}

// GET /api/calls/:id
func (h *CallHandler) Get(c *fiber.Ctx) error {
	call, err := h.voice.GetCall(c.UserContext(), middleware.TenantID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, call)
}

// GET /api/calls/:id/transcripts
func (h *CallHandler) Transcripts(c *fiber.Ctx) error {
	turns, err := h.voice.ListTranscripts(c.UserContext(), middleware.TenantID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, turns)
}
