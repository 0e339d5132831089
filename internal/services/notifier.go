package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/metrics"
)

// SMSSender delivers text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// EmailSender delivers email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Notifier renders templates and delivers them. Failures are logged and counted, never returned.
type Notifier struct {
	sms       SMSSender
	email     EmailSender
	templates *TemplateService
}

func NewNotifier(sms SMSSender, email EmailSender, templates *TemplateService) *Notifier {
	if templates == nil {
		templates = NewTemplateService()
	}
	return &Notifier{sms: sms, email: email, templates: templates}
}

// SMS sends a templated text message
func (n *Notifier) SMS(ctx context.Context, to, templateName string, params map[string]string) {
	if n == nil {
		return
	}
	log := logger.FromContext(ctx).WithFields(zap.String("template", templateName), zap.String("channel", "sms"))
	if to == "" {
		log.Debug("No recipient number, notification skipped")
		metrics.NotificationsTotal.WithLabelValues("sms", "skipped").Inc()
		return
	}

	_, body, err := n.templates.Render(templateName, params)
	if err != nil {
		log.Error("Failed to render notification", zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues("sms", "failed").Inc()
		return
	}
	if n.sms == nil {
		log.Debug("SMS sender not available, notification skipped")
		metrics.NotificationsTotal.WithLabelValues("sms", "skipped").Inc()
		return
	}
	n.record(log, "sms", n.sms.SendSMS(ctx, to, body))
}

// Email sends a templated email
func (n *Notifier) Email(ctx context.Context, to, templateName string, params map[string]string) {
	if n == nil {
		return
	}
	log := logger.FromContext(ctx).WithFields(zap.String("template", templateName), zap.String("channel", "email"))
	if to == "" {
		log.Debug("No recipient address, notification skipped")
		metrics.NotificationsTotal.WithLabelValues("email", "skipped").Inc()
		return
	}

	subject, body, err := n.templates.Render(templateName, params)
	if err != nil {
		log.Error("Failed to render notification", zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues("email", "failed").Inc()
		return
	}
	if n.email == nil {
		log.Debug("Email sender not available, notification skipped")
		metrics.NotificationsTotal.WithLabelValues("email", "skipped").Inc()
		return
	}
	n.record(log, "email", n.email.SendEmail(ctx, to, subject, body))
}

func (n *Notifier) record(log *logger.Logger, channel string, err error) {
	switch {
	case err == nil:
		metrics.NotificationsTotal.WithLabelValues(channel, "sent").Inc()
	case errors.Is(err, ErrNotConfigured):
		log.Debug("Provider not configured, notification skipped")
		metrics.NotificationsTotal.WithLabelValues(channel, "skipped").Inc()
	default:
		log.Warn("Notification delivery failed", zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues(channel, "failed").Inc()
	}
}
