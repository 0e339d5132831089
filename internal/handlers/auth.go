package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
)

// AuthHandler handles staff login and password recovery
type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login issues an access token
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in models.LoginInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	token, err := h.auth.Login(c.UserContext(), in)
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, token)
}

// ForgotPassword always answers 200 so account existence is not revealed
// POST /api/auth/password/forgot
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var in models.ForgotPasswordInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	if err := h.auth.ForgotPassword(c.UserContext(), in); err != nil {
		return fail(c, err)
	}
	return response.OK(c, fiber.Map{"message": "If the account exists, a reset code has been sent"})
}

// POST /api/auth/password/reset
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var in models.ResetPasswordInput
	if err := bindJSON(c, &in); err != nil {
		return fail(c, err)
	}

	if err := h.auth.ResetPassword(c.UserContext(), in); err != nil {
		return fail(c, err)
	}
	return response.OK(c, fiber.Map{"message": "Password updated"})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	staff, err := h.auth.Me(c.UserContext(), middleware.TenantID(c), middleware.StaffID(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OK(c, staff)
}
