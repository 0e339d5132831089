package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
)

// BillingHandler handles plans, subscriptions, usage and invoices
type BillingHandler struct {
	billing *services.BillingService
}

func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// GET /api/billing/plans
func (h *BillingHandler) Plans(c *fiber.Ctx) error {
	return response.OK(c, h.billing.Plans())
}

// GET /api/billing/subscription
func (h *BillingHandler) Subscription(c *fiber.Ctx) error {
	sub, err := h.billing.GetSubscription(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, sub)
}

// ChangePlan switches plans; a downgrade below the current staff count answers 409
// PUT /api/billing/subscription
func (h *BillingHandler) ChangePlan(c *fiber.Ctx) error {
	var in models.ChangePlanInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	sub, err := h.billing.ChangePlan(c.UserContext(), middleware.TenantID(c), in.Plan)
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, sub)
}

// POST /api/billing/subscription/cancel
func (h *BillingHandler) Cancel(c *fiber.Ctx) error {
	sub, err := h.billing.Cancel(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, sub)
}

// GET /api/billing/usage?period=YYYY-MM
func (h *BillingHandler) Usage(c *fiber.Ctx) error {
	usage, err := h.billing.Usage(c.UserContext(), middleware.TenantID(c), c.Query("period"))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, usage)
}

// GET /api/billing/invoices
func (h *BillingHandler) Invoices(c *fiber.Ctx) error {
	invoices, err := h.billing.ListInvoices(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, invoices)
}
