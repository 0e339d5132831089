package services

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/config"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
)

type TwilioService struct {
	client *twilio.RestClient
	from   string // voice/SMS number owned by the platform
}

// NewTwilioService creates a Twilio client. Without credentials the service reports
// itself unconfigured and SendSMS returns ErrNotConfigured.
func NewTwilioService(cfg config.TwilioConfig) *TwilioService {
	if !cfg.Configured() {
		logger.Warn("Twilio credentials missing, SMS disabled")
		return &TwilioService{}
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{
		client: client,
		from:   cfg.PhoneNumber,
	}
}

func (t *TwilioService) Configured() bool {
	return t != nil && t.client != nil
}

// SendSMS sends a text message via Twilio
func (t *TwilioService) SendSMS(ctx context.Context, to string, body string) error {
	if !t.Configured() {
		return ErrNotConfigured
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	logger.FromContext(ctx).Info("SMS sent", zap.String("to", to), zap.String("sid", sid))
	return nil
}
