package services

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/config"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
)

// EmailService sends transactional email through SendGrid
type EmailService struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewEmailService(cfg config.EmailConfig) *EmailService {
	svc := &EmailService{from: mail.NewEmail(cfg.FromName, cfg.From)}
	if cfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY missing, email disabled")
		return svc
	}
	svc.client = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	return svc
}

func (e *EmailService) Configured() bool {
	return e != nil && e.client != nil
}

// SendEmail sends a plain-text email
func (e *EmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if !e.Configured() {
		return ErrNotConfigured
	}

	message := mail.NewSingleEmail(e.from, subject, mail.NewEmail("", to), body, "")
	resp, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	logger.FromContext(ctx).Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
