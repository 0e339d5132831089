package services

import (
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
)

// GatherPath is where speech results are posted back
const GatherPath = "/webhooks/voice/gather"

// fallbackTwiML is served if rendering fails
const fallbackTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>We are sorry, an error occurred. Goodbye.</Say><Hangup/></Response>`

// sayAndGather speaks message and listens for the guest's answer
func sayAndGather(message, lang string) string {
	locale := speechLocale(lang)
	gather := &twiml.VoiceGather{
		Input:         "speech",
		Action:        GatherPath,
		Method:        "POST",
		Language:      locale,
		SpeechTimeout: "auto",
		Timeout:       "6",
		InnerElements: []twiml.Element{
			&twiml.VoiceSay{Message: message, Language: locale},
		},
	}
	// no answer: Twilio falls through to the redirect and we re-prompt
	redirect := &twiml.VoiceRedirect{Url: GatherPath, Method: "POST"}
	return render(gather, redirect)
}

// sayAndHangup speaks message and ends the call
func sayAndHangup(message, lang string) string {
	return render(
		&twiml.VoiceSay{Message: message, Language: speechLocale(lang)},
		&twiml.VoiceHangup{},
	)
}

func render(elements ...twiml.Element) string {
	out, err := twiml.Voice(elements)
	if err != nil {
		logger.Error("Failed to render TwiML", zap.Error(err))
		return fallbackTwiML
	}
	return out
}

// ApologyTwiML ends a call the webhook could not make sense of
func ApologyTwiML() string {
	return sayAndHangup(phrase(LangEnglish, phraseApology), LangEnglish)
}
