package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/guestvoice/guestvoice-backend/internal/models"
)

// maxRetries is how many unusable answers a step tolerates before moving on
const maxRetries = 2

// FlowResult is the assistant's reaction to one guest utterance
type FlowResult struct {
	Reply  string
	Hangup bool
	// CreateRequest is set when the guest confirmed a request (or reported an emergency)
	CreateRequest *models.Request
}

// ConversationFlow drives the room -> request -> confirm -> more dialogue
type ConversationFlow struct{}

func NewConversationFlow() *ConversationFlow {
	return &ConversationFlow{}
}

// Greeting is the first prompt of a call
func (f *ConversationFlow) Greeting(session *CallSession) string {
	return fmt.Sprintf(phrase(session.Language, phraseGreeting), session.HotelName)
}

// Advance consumes one utterance and mutates session to the next step
func (f *ConversationFlow) Advance(session *CallSession, speech string) FlowResult {
	speech = strings.TrimSpace(speech)
	lang := session.Language

	if speech == "" {
		session.Retries++
		if session.Retries > maxRetries {
			return FlowResult{Reply: phrase(lang, phraseGoodbye), Hangup: true}
		}
		return FlowResult{Reply: phrase(lang, phraseRetry) + " " + f.prompt(session)}
	}

	if detected := DetectLanguage(speech); detected != "" && detected != lang {
		session.Language = detected
		lang = detected
	}

	if IsEmergency(speech) {
		if room := ExtractRoomNumber(speech); room != "" {
			session.RoomNumber = room
		}
		reqType := ClassifyRequest(speech)
		if reqType == models.RequestTypeOther {
			reqType = models.RequestTypeFrontDesk
		}
		req := f.pendingRequest(session, reqType, speech, models.PriorityUrgent)
		f.resetPending(session)
		session.Step = StepMore
		return FlowResult{
			Reply:         phrase(lang, phraseUrgentSent) + " " + phrase(lang, phraseAnythingElse),
			CreateRequest: req,
		}
	}

	switch session.Step {
	case StepRoom:
		return f.handleRoom(session, speech)
	case StepRequest:
		return f.handleRequest(session, speech)
	case StepConfirm:
		return f.handleConfirm(session, speech)
	case StepMore:
		return f.handleMore(session, speech)
	default:
		session.Step = StepRoom
		return FlowResult{Reply: phrase(lang, phraseAskRoom)}
	}
}

func (f *ConversationFlow) handleRoom(session *CallSession, speech string) FlowResult {
	lang := session.Language
	room := ExtractRoomNumber(speech)
	if room == "" {
		session.Retries++
		if session.Retries > maxRetries {
			// carry on without a room, staff can call back
			session.Retries = 0
			session.Step = StepRequest
			return FlowResult{Reply: phrase(lang, phraseAskRequest)}
		}
		return FlowResult{Reply: phrase(lang, phraseRetry) + " " + phrase(lang, phraseAskRoom)}
	}

	session.RoomNumber = room
	session.Retries = 0

	// "room 204, I need towels" carries the request as well
	if reqType := ClassifyRequest(speech); reqType != models.RequestTypeOther {
		return f.proposeRequest(session, reqType, speech)
	}
	session.Step = StepRequest
	return FlowResult{Reply: phrase(lang, phraseAskRequest)}
}

func (f *ConversationFlow) handleRequest(session *CallSession, speech string) FlowResult {
	if session.RoomNumber == "" {
		session.RoomNumber = ExtractRoomNumber(speech)
	}
	return f.proposeRequest(session, ClassifyRequest(speech), speech)
}

func (f *ConversationFlow) proposeRequest(session *CallSession, reqType, speech string) FlowResult {
	session.RequestType = reqType
	session.Description = speech
	session.Priority = models.PriorityMedium
	session.Step = StepConfirm
	session.Retries = 0
	return FlowResult{Reply: f.confirmPrompt(session)}
}

func (f *ConversationFlow) handleConfirm(session *CallSession, speech string) FlowResult {
	lang := session.Language
	switch {
	case IsAffirmative(speech):
		req := f.pendingRequest(session, session.RequestType, session.Description, session.Priority)
		f.resetPending(session)
		session.Step = StepMore
		return FlowResult{
			Reply:         phrase(lang, phraseSent) + " " + phrase(lang, phraseAnythingElse),
			CreateRequest: req,
		}
	case IsNegative(speech):
		f.resetPending(session)
		session.Step = StepRequest
		return FlowResult{Reply: phrase(lang, phraseAskRequest)}
	default:
		session.Retries++
		if session.Retries > maxRetries {
			f.resetPending(session)
			session.Step = StepRequest
			return FlowResult{Reply: phrase(lang, phraseRetry) + " " + phrase(lang, phraseAskRequest)}
		}
		return FlowResult{Reply: phrase(lang, phraseRetry) + " " + f.confirmPrompt(session)}
	}
}

func (f *ConversationFlow) handleMore(session *CallSession, speech string) FlowResult {
	lang := session.Language
	reqType := ClassifyRequest(speech)

	switch {
	case reqType != models.RequestTypeOther:
		return f.proposeRequest(session, reqType, speech)
	case IsNegative(speech):
		return FlowResult{Reply: phrase(lang, phraseGoodbye), Hangup: true}
	case IsAffirmative(speech):
		session.Step = StepRequest
		return FlowResult{Reply: phrase(lang, phraseAskRequest)}
	default:
		return f.proposeRequest(session, reqType, speech)
	}
}

// prompt repeats the question of the current step
func (f *ConversationFlow) prompt(session *CallSession) string {
	switch session.Step {
	case StepRoom:
		return phrase(session.Language, phraseAskRoom)
	case StepConfirm:
		return f.confirmPrompt(session)
	case StepMore:
		return phrase(session.Language, phraseAnythingElse)
	default:
		return phrase(session.Language, phraseAskRequest)
	}
}

func (f *ConversationFlow) confirmPrompt(session *CallSession) string {
	room := session.RoomNumber
	if room == "" {
		room = "?"
	}
	return fmt.Sprintf(phrase(session.Language, phraseConfirm), session.Description, room)
}

func (f *ConversationFlow) pendingRequest(session *CallSession, reqType, description, priority string) *models.Request {
	return &models.Request{
		TenantID:    session.TenantID,
		CallID:      session.CallSid,
		RoomNumber:  session.RoomNumber,
		Type:        reqType,
		Description: description,
		Priority:    priority,
	}
}

func (f *ConversationFlow) resetPending(session *CallSession) {
	session.RequestType = ""
	session.Description = ""
	session.Priority = ""
	session.Retries = 0
}

var (
	roomLabeled = regexp.MustCompile(`(?i)(?:room|chambre|habitaci[oó]n|phòng|номер|房间?)\s*(?:number|no\.?|#)?\s*(\d{1,5})`)
	roomDigits  = regexp.MustCompile(`\b\d{2,5}\b`)

	numberWords = map[string]string{
		"zero": "0", "oh": "0", "one": "1", "two": "2", "three": "3", "four": "4",
		"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	}
)

// ExtractRoomNumber finds a room number spoken as digits ("room 1204") or digit words ("one two oh four")
func ExtractRoomNumber(text string) string {
	if m := roomLabeled.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := roomDigits.FindString(text); m != "" {
		return m
	}

	var digits strings.Builder
	best := ""
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if d, ok := numberWords[word]; ok {
			digits.WriteString(d)
			continue
		}
		if digits.Len() > len(best) {
			best = digits.String()
		}
		digits.Reset()
	}
	if digits.Len() > len(best) {
		best = digits.String()
	}
	if len(best) < 2 || len(best) > 5 {
		return ""
	}
	return best
}

// requestKeywords classifies requests. Order matters: the first matching type wins.
var requestKeywords = []struct {
	Type     string
	Keywords []string
}{
	{models.RequestTypeMaintenance, []string{
		"broken", "not working", "doesn't work", "leak", "leaking", "repair", "fix", "air conditioning",
		"air conditioner", "heater", "heating", "toilet", "shower", "light bulb", "tv", "television",
		"wifi", "wi-fi", "internet", "remote", "clogged", "no hot water", "lock",
		"panne", "fuite", "réparer", "averiado", "fuga", "arreglar", "hỏng", "sửa", "고장", "수리",
		"сломан", "не работает", "протечка", "坏了", "维修", "漏水",
	}},
	{models.RequestTypeRoomService, []string{
		"room service", "food", "breakfast", "lunch", "dinner", "menu", "order", "drink", "coffee",
		"tea", "water", "wine", "sandwich", "hungry", "meal",
		"petit déjeuner", "repas", "comida", "desayuno", "cena", "đồ ăn", "bữa sáng", "룸서비스", "음식",
		"아침", "еда", "завтрак", "ужин", "送餐", "早餐", "吃的",
	}},
	{models.RequestTypeHousekeeping, []string{
		"towel", "towels", "clean", "cleaning", "housekeeping", "sheets", "bed", "pillow", "blanket",
		"toilet paper", "soap", "shampoo", "toiletries", "trash", "hair dryer", "iron", "laundry",
		"serviette", "ménage", "oreiller", "toalla", "limpieza", "almohada", "khăn", "dọn phòng", "gối",
		"수건", "청소", "베개", "полотенце", "уборка", "подушка", "毛巾", "打扫", "枕头",
	}},
	{models.RequestTypeConcierge, []string{
		"taxi", "cab", "restaurant", "reservation", "book a", "tour", "directions", "recommend",
		"airport", "shuttle", "tickets", "wake up call", "wake-up call",
		"réservation", "reserva", "đặt bàn", "예약", "택시", "такси", "бронь", "出租车", "预订",
	}},
	{models.RequestTypeFrontDesk, []string{
		"check out", "checkout", "check-out", "late checkout", "check in", "key", "key card", "bill",
		"invoice", "receipt", "front desk", "reception", "extend", "noise", "complaint",
		"réception", "clé", "recepción", "llave", "lễ tân", "chìa khóa", "체크아웃", "열쇠", "프런트",
		"ресепшн", "ключ", "前台", "退房", "钥匙",
	}},
}

// ClassifyRequest maps free text to a request type by keyword
func ClassifyRequest(text string) string {
	lower := strings.ToLower(text)
	for _, group := range requestKeywords {
		for _, kw := range group.Keywords {
			if containsWord(lower, kw) {
				return group.Type
			}
		}
	}
	return models.RequestTypeOther
}

var emergencyKeywords = []string{
	"emergency", "fire", "smoke", "ambulance", "doctor", "bleeding", "heart attack", "can't breathe",
	"cannot breathe", "unconscious", "police", "flood", "flooding", "gas leak", "injured",
	"urgence", "incendie", "emergencia", "incendio", "cấp cứu", "cháy", "응급", "화재",
	"скорая", "пожар", "急救", "着火", "救命",
}

// IsEmergency reports whether text mentions an emergency
func IsEmergency(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range emergencyKeywords {
		if containsWord(lower, kw) {
			return true
		}
	}
	return false
}

var (
	affirmatives = []string{"yes", "yeah", "yep", "correct", "right", "sure", "please do", "ok", "okay",
		"oui", "sí", "si", "vâng", "có", "네", "예", "да", "是", "对", "好"}
	negatives = []string{"no", "nope", "nothing", "that's all", "that is all", "not", "cancel", "wrong",
		"non", "rien", "nada", "không", "아니", "없어", "нет", "不", "没有"}
)

// IsAffirmative reports whether text is a yes
func IsAffirmative(text string) bool {
	lower := strings.ToLower(text)
	if IsNegative(lower) {
		return false
	}
	for _, w := range affirmatives {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}

// IsNegative reports whether text is a no
func IsNegative(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range negatives {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}

var greetingsByLanguage = []struct {
	Lang  string
	Words []string
}{
	{LangFrench, []string{"bonjour", "bonsoir", "s'il vous plaît", "merci", "chambre"}},
	{LangSpanish, []string{"hola", "buenos días", "buenas", "por favor", "gracias", "habitación"}},
	{LangVietnamese, []string{"xin chào", "chào", "cảm ơn", "phòng"}},
}

// DetectLanguage guesses the caller's language from script or common words. Empty means unknown.
func DetectLanguage(text string) string {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hangul, r):
			return LangKorean
		case unicode.Is(unicode.Cyrillic, r):
			return LangRussian
		case unicode.Is(unicode.Han, r):
			return LangChinese
		}
	}

	lower := strings.ToLower(text)
	for _, g := range greetingsByLanguage {
		for _, w := range g.Words {
			if containsWord(lower, w) {
				return g.Lang
			}
		}
	}
	return ""
}

// containsWord matches kw in text at word boundaries. Scripts without spaces match as substrings.
func containsWord(text, kw string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r := lastRune(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r := []rune(text[i:])[0]
	return !isWordRune(r)
}

// isWordRune treats only alphabetic scripts with spaces as word characters
func isWordRune(r rune) bool {
	if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}
