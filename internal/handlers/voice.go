package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/services"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

// VoiceHandler handles Twilio Voice webhooks
type VoiceHandler struct {
	voice *services.VoiceService
}

// NewVoiceHandler creates a new voice webhook handler
func NewVoiceHandler(voice *services.VoiceService) *VoiceHandler {
	return &VoiceHandler{voice: voice}
}

// TwilioVoicePayload is the form body Twilio posts to voice webhooks
type TwilioVoicePayload struct {
	CallSid      string `form:"CallSid"`
	AccountSid   string `form:"AccountSid"`
	From         string `form:"From"`
	To           string `form:"To"`
	CallStatus   string `form:"CallStatus"`
	CallDuration string `form:"CallDuration"` // seconds, status callbacks only
	SpeechResult string `form:"SpeechResult"`
	Confidence   string `form:"Confidence"`
}

func (h *VoiceHandler) parse(c *fiber.Ctx) (*TwilioVoicePayload, bool) {
	var payload TwilioVoicePayload
	if err := c.BodyParser(&payload); err != nil || payload.CallSid == "" {
		logger.FromContext(c.UserContext()).Warn("Invalid voice webhook payload", zap.Error(err))
		return nil, false
	}
	return &payload, true
}

// Incoming answers a new call with a greeting
// POST /webhooks/voice/incoming
func (h *VoiceHandler) Incoming(c *fiber.Ctx) error {
	payload, ok := h.parse(c)
	if !ok {
		return twiml(c, services.ApologyTwiML())
	}

	xml := h.voice.HandleIncoming(c.UserContext(), services.IncomingCall{
		CallSid:  payload.CallSid,
		From:     payload.From,
		To:       payload.To,
		Language: c.Query("lang"),
	})
	return twiml(c, xml)
}

// Gather receives the guest's recognised speech and returns the next prompt
// POST /webhooks/voice/gather
func (h *VoiceHandler) Gather(c *fiber.Ctx) error {
	payload, ok := h.parse(c)
	if !ok {
		return twiml(c, services.ApologyTwiML())
	}

	confidence, _ := strconv.ParseFloat(payload.Confidence, 64)
	xml := h.voice.HandleGather(c.UserContext(), services.GatherResult{
		CallSid:      payload.CallSid,
		SpeechResult: payload.SpeechResult,
		Confidence:   confidence,
	})
	return twiml(c, xml)
}

// Status records call progress; Twilio ignores the body of status callbacks
// POST /webhooks/voice/status
func (h *VoiceHandler) Status(c *fiber.Ctx) error {
	payload, ok := h.parse(c)
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}

	duration, _ := strconv.Atoi(payload.CallDuration)
	err := h.voice.HandleStatus(c.UserContext(), services.CallStatusUpdate{
		CallSid:      payload.CallSid,
		CallStatus:   payload.CallStatus,
		CallDuration: duration,
	})
	if err != nil {
		log := logger.FromContext(c.UserContext()).WithFields(zap.String("call_sid", payload.CallSid))
		if errors.Is(err, storage.ErrNotFound) {
			log.Warn("Status callback for unknown call", zap.String("status", payload.CallStatus))
		} else {
			log.Error("Failed to process call status", zap.Error(err))
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func twiml(c *fiber.Ctx, xml string) error {
	c.Set(fiber.HeaderContentType, "text/xml; charset=utf-8")
	return c.Status(fiber.StatusOK).SendString(xml)
}
