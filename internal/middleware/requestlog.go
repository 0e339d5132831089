package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
)

const HeaderRequestID = "X-Request-ID"

const localsRequestID = "request_id"

// RequestID assigns a request ID and echoes it in the response header
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     HeaderRequestID,
		Generator:  uuid.NewString,
		ContextKey: localsRequestID,
	})
}

// RequestContext puts the request ID on the user context read by logger.FromContext.
// Must run after RequestID.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if requestID, ok := c.Locals(localsRequestID).(string); ok && requestID != "" {
			c.SetUserContext(context.WithValue(c.UserContext(), logger.RequestIDKey, requestID))
		}
		return c.Next()
	}
}

// RequestLogger logs one line per request after the handler chain ran
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if tenantID := TenantID(c); tenantID != "" {
			fields = append(fields, zap.String("staff_id", StaffID(c)))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		log := logger.FromContext(c.UserContext())
		switch {
		case status >= 500:
			log.Error("Request failed", fields...)
		case status >= 400:
			log.Warn("Request rejected", fields...)
		default:
			log.Info("Request completed", fields...)
		}
		return err
	}
}
