package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/client"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/response"
)

// TwilioSignatureConfig configures webhook signature validation
type TwilioSignatureConfig struct {
	AuthToken string
	// PublicBaseURL is the externally visible origin Twilio calls, e.g. https://api.example.com.
	// Behind a proxy the request host differs from what Twilio signed.
	PublicBaseURL string
	Disabled      bool
}

// ValidateTwilioSignature validates that the webhook request is from Twilio
func ValidateTwilioSignature(cfg TwilioSignatureConfig) fiber.Handler {
	if cfg.Disabled {
		logger.Warn("Twilio webhook signature validation is disabled")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	validator := client.NewRequestValidator(cfg.AuthToken)

	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return response.Unauthorized(c, "Missing Twilio signature")
		}

		if cfg.AuthToken == "" {
			logger.Error("TWILIO_AUTH_TOKEN not set, rejecting webhook")
			return response.InternalError(c, "Server configuration error")
		}

		fullURL := getFullURL(c, cfg.PublicBaseURL)

		formParams := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			formParams[string(key)] = string(value)
		})

		if !validator.Validate(fullURL, formParams, signature) {
			logger.Warn("Invalid Twilio signature",
				zap.String("url", fullURL),
				zap.String("ip", c.IP()))
			return response.Unauthorized(c, "Invalid signature")
		}

		return c.Next()
	}
}

// getFullURL constructs the URL Twilio signed
func getFullURL(c *fiber.Ctx, publicBaseURL string) string {
	if publicBaseURL != "" {
		return publicBaseURL + c.OriginalURL()
	}

	protocol := "https"
	if c.Protocol() == "http" {
		protocol = "http"
	}
	return fmt.Sprintf("%s://%s%s", protocol, c.Hostname(), c.OriginalURL())
}
