package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestvoice/guestvoice-backend/internal/models"
)

func TestExtractRoomNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labeled", "I'm in room 1204", "1204"},
		{"labeled short", "room 7 please", "7"},
		{"bare digits", "it's 305", "305"},
		{"digit words", "one two oh four", "1204"},
		{"french", "chambre 12, s'il vous plaît", "12"},
		{"spanish", "habitación 415", "415"},
		{"single digit count ignored", "I need 2 towels", ""},
		{"no number", "hello there", ""},
		{"too many digit words", "one two three four five six", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRoomNumber(tt.text))
		})
	}
}

func TestClassifyRequest(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Could I get some extra towels", models.RequestTypeHousekeeping},
		{"the air conditioning is broken", models.RequestTypeMaintenance},
		{"I'd like to order breakfast", models.RequestTypeRoomService},
		{"please call me a taxi to the airport", models.RequestTypeConcierge},
		{"can I get a late checkout", models.RequestTypeFrontDesk},
		{"je voudrais une serviette", models.RequestTypeHousekeeping},
		{"необходимо полотенце", models.RequestTypeHousekeeping},
		{"我要毛巾", models.RequestTypeHousekeeping},
		{"what time is it", models.RequestTypeOther},
		// "cab" must not match inside "cabinet"
		{"the cabinet smells nice", models.RequestTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRequest(tt.text))
		})
	}
}

func TestIsEmergency(t *testing.T) {
	assert.True(t, IsEmergency("there is smoke in the hallway"))
	assert.True(t, IsEmergency("we need an ambulance"))
	assert.True(t, IsEmergency("火灾 着火了"))
	assert.False(t, IsEmergency("can you help me with the wifi"))
	assert.False(t, IsEmergency("is the fireplace lit"))
}

func TestAffirmativeNegative(t *testing.T) {
	assert.True(t, IsAffirmative("yes please"))
	assert.True(t, IsAffirmative("Oui"))
	assert.False(t, IsAffirmative("no thanks"))
	assert.False(t, IsAffirmative("yes, no wait"))
	assert.True(t, IsNegative("no, that's all"))
	assert.True(t, IsNegative("нет"))
	assert.False(t, IsNegative("sure"))
	// "no" inside another word is not a no
	assert.False(t, IsNegative("i know"))
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LangKorean, DetectLanguage("수건 주세요"))
	assert.Equal(t, LangRussian, DetectLanguage("нужно полотенце"))
	assert.Equal(t, LangChinese, DetectLanguage("我要毛巾"))
	assert.Equal(t, LangFrench, DetectLanguage("bonjour, chambre 12"))
	assert.Equal(t, LangSpanish, DetectLanguage("hola, necesito toallas"))
	assert.Equal(t, LangVietnamese, DetectLanguage("xin chào"))
	assert.Equal(t, "", DetectLanguage("room 204"))
}

func newFlowSession() *CallSession {
	return &CallSession{CallSid: "CA1", TenantID: "t1", HotelName: "Grand", Language: LangEnglish, Step: StepRoom}
}

func TestConversationFlowHappyPath(t *testing.T) {
	flow := NewConversationFlow()
	session := newFlowSession()

	assert.Contains(t, flow.Greeting(session), "Welcome to Grand")

	res := flow.Advance(session, "room 204")
	assert.Equal(t, StepRequest, session.Step)
	assert.Equal(t, "204", session.RoomNumber)
	assert.Nil(t, res.CreateRequest)

	res = flow.Advance(session, "I need more towels")
	assert.Equal(t, StepConfirm, session.Step)
	assert.Contains(t, res.Reply, "I need more towels")
	assert.Contains(t, res.Reply, "204")

	res = flow.Advance(session, "yes")
	require.NotNil(t, res.CreateRequest)
	assert.Equal(t, models.RequestTypeHousekeeping, res.CreateRequest.Type)
	assert.Equal(t, "204", res.CreateRequest.RoomNumber)
	assert.Equal(t, "CA1", res.CreateRequest.CallID)
	assert.Equal(t, models.PriorityMedium, res.CreateRequest.Priority)
	assert.Equal(t, StepMore, session.Step)
	assert.False(t, res.Hangup)

	res = flow.Advance(session, "no that's all")
	assert.True(t, res.Hangup)
	assert.Nil(t, res.CreateRequest)
}

func TestConversationFlowRoomAndRequestInOneUtterance(t *testing.T) {
	flow := NewConversationFlow()
	session := newFlowSession()

	flow.Advance(session, "room 1204, the shower is leaking")
	assert.Equal(t, StepConfirm, session.Step)
	assert.Equal(t, "1204", session.RoomNumber)
	assert.Equal(t, models.RequestTypeMaintenance, session.RequestType)
}

func TestConversationFlowDeclinedConfirmation(t *testing.T) {
	flow := NewConversationFlow()
	session := newFlowSession()

	flow.Advance(session, "room 12")
	flow.Advance(session, "extra pillow")
	res := flow.Advance(session, "no")
	assert.Nil(t, res.CreateRequest)
	assert.Equal(t, StepRequest, session.Step)
	assert.Empty(t, session.Description)
}

func TestConversationFlowEmergency(t *testing.T) {
	flow := NewConversationFlow()
	session := newFlowSession()

	res := flow.Advance(session, "there is smoke in room 310")
	require.NotNil(t, res.CreateRequest)
	assert.Equal(t, models.PriorityUrgent, res.CreateRequest.Priority)
	assert.Equal(t, models.RequestTypeFrontDesk, res.CreateRequest.Type)
	assert.Equal(t, "310", res.CreateRequest.RoomNumber)
	assert.Equal(t, StepMore, session.Step)
}

func TestConversationFlowSilence(t *testing.T) {
	flow := NewConversationFlow()
	session := newFlowSession()

	for i := 0; i < maxRetries; i++ {
		res := flow.Advance(session, "")
		assert.False(t, res.Hangup)
		assert.Contains(t, res.Reply, phrase(LangEnglish, phraseRetry))
	}
	res := flow.Advance(session, "")
	assert.True(t, res.Hangup)
}

func TestConversationFlowGivesUpOnRoom(t *testing.T) {
	flow := NewConversationFlow()
	session := newFlowSession()

	for i := 0; i < maxRetries; i++ {
		flow.Advance(session, "hmm")
		assert.Equal(t, StepRoom, session.Step)
	}
	res := flow.Advance(session, "hmm")
	assert.Equal(t, StepRequest, session.Step)
	assert.Equal(t, phrase(LangEnglish, phraseAskRequest), res.Reply)
}

func TestConversationFlowSwitchesLanguage(t *testing.T) {
	flow := NewConversationFlow()
	session := newFlowSession()

	res := flow.Advance(session, "bonjour, chambre 12")
	assert.Equal(t, LangFrench, session.Language)
	assert.Equal(t, phrase(LangFrench, phraseAskRequest), res.Reply)
}

func TestPhraseFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, phrase(LangEnglish, phraseGoodbye), phrase("xx", phraseGoodbye))
	assert.Equal(t, "en-US", speechLocale("xx"))
	for _, lang := range []string{LangEnglish, LangFrench, LangSpanish, LangVietnamese, LangKorean, LangRussian, LangChinese} {
		assert.True(t, SupportedLanguage(lang), lang)
		for _, key := range []string{phraseGreeting, phraseAskRoom, phraseAskRequest, phraseConfirm, phraseSent,
			phraseUrgentSent, phraseAnythingElse, phraseRetry, phraseGoodbye, phraseUnavailable, phraseApology} {
			assert.NotEmpty(t, phrasebook[lang][key], "%s/%s", lang, key)
		}
	}
}
