package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

// fail maps service, storage and binding errors onto the response envelope
func fail(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return response.FailWithDetails(c, response.ErrCodeValidationFailed, "Validation failed", validationDetails(verrs))
	}
	var qerr *queryError
	if errors.As(err, &qerr) {
		return response.BadRequest(c, qerr.Error())
	}

	switch {
	case errors.Is(err, errMalformedBody):
		return response.BadRequest(c, "Invalid request body")
	case errors.Is(err, storage.ErrNotFound):
		return response.NotFound(c, "")
	case errors.Is(err, storage.ErrDuplicate):
		return response.Fail(c, response.ErrCodeDuplicateEntry, "Resource already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, services.ErrAccountDisabled):
		return response.Forbidden(c, "Account is disabled")
	case errors.Is(err, services.ErrTenantSuspended):
		return response.Fail(c, response.ErrCodeTenantSuspended, "Hotel account is suspended")
	case errors.Is(err, services.ErrRoleNotAllowed),
		errors.Is(err, services.ErrSelfDeactivation):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrLimitReached):
		return response.Fail(c, response.ErrCodeMaxLimitReached, "Plan limit reached, upgrade to continue")
	case errors.Is(err, services.ErrInvalidTransition):
		return response.Fail(c, response.ErrCodeInvalidState, err.Error())
	case errors.Is(err, services.ErrDowngradeBlocked),
		errors.Is(err, services.ErrAlreadyCanceled):
		return response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidPlan),
		errors.Is(err, services.ErrInvalidSlug),
		errors.Is(err, services.ErrInvalidPeriod),
		errors.Is(err, services.ErrAssigneeInvalid),
		errors.Is(err, services.ErrInvalidOTP):
		return response.BadRequest(c, err.Error())
	}

	logger.FromContext(c.UserContext()).Error("Request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return response.InternalError(c, "")
}
