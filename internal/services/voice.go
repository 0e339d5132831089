package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/events"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/metrics"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/realtime"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
	"github.com/guestvoice/guestvoice-backend/internal/telemetry"
	"github.com/guestvoice/guestvoice-backend/internal/utils"
)

// IncomingCall is the provider's new-call webhook payload
type IncomingCall struct {
	CallSid  string
	From     string
	To       string
	Language string // optional override, e.g. from the webhook URL
}

// GatherResult is a speech recognition result for a call
type GatherResult struct {
	CallSid      string
	SpeechResult string
	Confidence   float64
}

// CallStatusUpdate is the provider's status callback payload
type CallStatusUpdate struct {
	CallSid      string
	CallStatus   string
	CallDuration int
}

// VoiceService answers calls and records conversations
type VoiceService struct {
	store     storage.Store
	sessions  *SessionManager
	flow      *ConversationFlow
	requests  *RequestService
	broadcast Broadcaster
	events    *events.Publisher
	now       func() time.Time
}

func NewVoiceService(store storage.Store, sessions *SessionManager, requests *RequestService, broadcast Broadcaster, publisher *events.Publisher) *VoiceService {
	return &VoiceService{
		store:     store,
		sessions:  sessions,
		flow:      NewConversationFlow(),
		requests:  requests,
		broadcast: orNop(broadcast),
		events:    publisher,
		now:       time.Now,
	}
}

// HandleIncoming answers a new call. It always returns TwiML.
func (s *VoiceService) HandleIncoming(ctx context.Context, in IncomingCall) string {
	ctx, span := telemetry.StartSpan(ctx, "voice.incoming")
	defer span.End()
	log := logger.FromContext(ctx).WithFields(zap.String("call_sid", in.CallSid))

	lang := in.Language
	if !SupportedLanguage(lang) {
		lang = LangEnglish
	}

	tenant, err := s.store.GetTenantByVoiceNumber(ctx, utils.NormalizePhone(in.To))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error("Tenant lookup failed", zap.Error(err))
		} else {
			log.Warn("Call to unknown number", zap.String("to", in.To))
		}
		metrics.CallsTotal.WithLabelValues("rejected").Inc()
		return sayAndHangup(phrase(lang, phraseApology), lang)
	}
	ctx = context.WithValue(ctx, logger.TenantIDKey, tenant.TenantID)

	if !tenant.Usable() {
		log.Warn("Call to inactive hotel", zap.String("tenant_id", tenant.TenantID))
		metrics.CallsTotal.WithLabelValues("rejected").Inc()
		return sayAndHangup(phrase(lang, phraseApology), lang)
	}

	period := models.PeriodOf(s.now())
	usage, err := s.store.GetUsage(ctx, tenant.TenantID, period)
	if err != nil {
		log.Error("Usage lookup failed", zap.Error(err))
		return sayAndHangup(phrase(lang, phraseUnavailable), lang)
	}
	limits := tenant.Limits()
	if limits.CallsExhausted(usage.Calls) || limits.MinutesExhausted(usage.Minutes) {
		log.Info("Monthly call allowance used up",
			zap.String("tenant_id", tenant.TenantID),
			zap.Int("calls", usage.Calls),
			zap.Int("minutes", usage.Minutes))
		metrics.CallsTotal.WithLabelValues("limit_reached").Inc()
		return sayAndHangup(phrase(lang, phraseUnavailable), lang)
	}

	call := &models.Call{
		CallID:     in.CallSid,
		TenantID:   tenant.TenantID,
		FromNumber: in.From,
		ToNumber:   in.To,
		Language:   lang,
		Status:     models.CallStatusInProgress,
		StartedAt:  s.now(),
	}
	if err := s.store.CreateCall(ctx, call); err != nil {
		if !errors.Is(err, storage.ErrDuplicate) {
			log.Error("Failed to record call", zap.Error(err))
			return sayAndHangup(phrase(lang, phraseUnavailable), lang)
		}
		// provider retried the webhook
		log.Info("Incoming webhook repeated for existing call")
	} else {
		if _, err := s.store.IncrementUsage(ctx, tenant.TenantID, period, models.UsageDelta{Calls: 1}); err != nil {
			log.Warn("Failed to count call usage", zap.Error(err))
		}
		metrics.CallsTotal.WithLabelValues("answered").Inc()
		s.broadcast.Broadcast(ctx, tenant.TenantID, realtime.CallStarted, call)
	}

	session := s.sessions.Create(in.CallSid, tenant.TenantID, tenant.Name, lang)
	greeting := s.flow.Greeting(session)
	s.recordTurn(ctx, session, models.SpeakerAssistant, greeting, 0)

	log.Info("Call answered", zap.String("tenant_id", tenant.TenantID), zap.String("from", in.From))
	return sayAndGather(greeting, session.Language)
}

// HandleGather processes one speech result. It always returns TwiML.
func (s *VoiceService) HandleGather(ctx context.Context, in GatherResult) string {
	ctx, span := telemetry.StartSpan(ctx, "voice.gather")
	defer span.End()
	log := logger.FromContext(ctx).WithFields(zap.String("call_sid", in.CallSid))

	session, ok := s.sessions.Get(in.CallSid)
	if !ok {
		// session lost (restart or expiry): resume from the stored call
		call, err := s.store.GetCallBySid(ctx, in.CallSid)
		if err != nil {
			log.Warn("Speech result for unknown call", zap.Error(err))
			return sayAndHangup(phrase(LangEnglish, phraseApology), LangEnglish)
		}
		tenant, err := s.store.GetTenant(ctx, call.TenantID)
		if err != nil {
			log.Error("Tenant lookup failed", zap.Error(err))
			return sayAndHangup(phrase(call.Language, phraseUnavailable), call.Language)
		}
		session = s.sessions.Create(call.CallID, call.TenantID, tenant.Name, call.Language)
		session.RoomNumber = call.RoomNumber
		if call.RoomNumber != "" {
			session.Step = StepRequest
		}
	}
	ctx = context.WithValue(ctx, logger.TenantIDKey, session.TenantID)

	speech := strings.TrimSpace(in.SpeechResult)
	if speech != "" {
		s.recordTurn(ctx, session, models.SpeakerGuest, speech, in.Confidence)
	}

	prevRoom := session.RoomNumber
	prevLang := session.Language
	result := s.flow.Advance(session, speech)

	reply := result.Reply
	if result.CreateRequest != nil {
		if err := s.requests.CreateFromCall(ctx, result.CreateRequest); err != nil {
			log.Error("Failed to create request from call", zap.Error(err))
			reply = phrase(session.Language, phraseRetry) + " " + phrase(session.Language, phraseUnavailable)
			result.Hangup = true
		} else {
			session.RequestsCreated = append(session.RequestsCreated, result.CreateRequest.RequestID)
		}
	}

	if session.RoomNumber != prevRoom || session.Language != prevLang {
		s.updateCallDetails(ctx, session)
	}

	s.sessions.Save(session)
	s.recordTurn(ctx, session, models.SpeakerAssistant, reply, 0)

	if result.Hangup {
		return sayAndHangup(reply, session.Language)
	}
	return sayAndGather(reply, session.Language)
}

// HandleStatus records the provider's call status and closes finished calls
func (s *VoiceService) HandleStatus(ctx context.Context, in CallStatusUpdate) error {
	ctx, span := telemetry.StartSpan(ctx, "voice.status")
	defer span.End()

	call, err := s.store.GetCallBySid(ctx, in.CallSid)
	if err != nil {
		return err
	}
	ctx = context.WithValue(ctx, logger.TenantIDKey, call.TenantID)
	log := logger.FromContext(ctx).WithFields(zap.String("call_sid", in.CallSid))

	if models.CallEnded(call.Status) {
		log.Debug("Status callback for finished call ignored", zap.String("status", in.CallStatus))
		return nil
	}

	call.Status = models.NormalizeCallStatus(in.CallStatus)
	if !models.CallEnded(call.Status) {
		return s.store.UpdateCall(ctx, call)
	}

	now := s.now()
	call.EndedAt = &now
	call.DurationSec = in.CallDuration
	if call.DurationSec == 0 {
		call.DurationSec = int(now.Sub(call.StartedAt).Seconds())
	}

	session, _ := s.sessions.End(call.CallID)
	if session != nil && session.RoomNumber != "" {
		call.RoomNumber = session.RoomNumber
	}

	transcripts, err := s.store.ListTranscripts(ctx, call.TenantID, call.CallID)
	if err != nil {
		log.Warn("Failed to load transcripts for summary", zap.Error(err))
	}
	call.Summary = BuildCallSummary(call, transcripts, session)

	if err := s.store.UpdateCall(ctx, call); err != nil {
		return err
	}

	minutes := int(math.Ceil(float64(call.DurationSec) / 60))
	if minutes > 0 {
		if _, err := s.store.IncrementUsage(ctx, call.TenantID, models.PeriodOf(call.StartedAt), models.UsageDelta{Minutes: minutes}); err != nil {
			log.Warn("Failed to count call minutes", zap.Error(err))
		}
	}

	metrics.CallsTotal.WithLabelValues(call.Status).Inc()
	metrics.CallDuration.Observe(float64(call.DurationSec))

	s.broadcast.Broadcast(ctx, call.TenantID, realtime.CallEnded, call)
	s.events.Publish(ctx, events.New(events.CallEnded, call.TenantID, call))

	log.Info("Call ended",
		zap.String("status", call.Status),
		zap.Int("duration_sec", call.DurationSec))
	return nil
}

// ListCalls returns a hotel's calls
func (s *VoiceService) ListCalls(ctx context.Context, tenantID string, filter models.CallFilter) ([]*models.Call, int64, error) {
	return s.store.ListCalls(ctx, tenantID, filter)
}

// GetCall returns a call with its transcript
func (s *VoiceService) GetCall(ctx context.Context, tenantID, callID string) (*models.Call, error) {
	call, err := s.store.GetCall(ctx, tenantID, callID)
	if err != nil {
		return nil, err
	}
	turns, err := s.store.ListTranscripts(ctx, tenantID, callID)
	if err != nil {
		return nil, err
	}
	call.Transcripts = make([]models.Transcript, 0, len(turns))
	for _, t := range turns {
		call.Transcripts = append(call.Transcripts, *t)
	}
	return call, nil
}

func (s *VoiceService) ListTranscripts(ctx context.Context, tenantID, callID string) ([]*models.Transcript, error) {
	return s.store.ListTranscripts(ctx, tenantID, callID)
}

// ActiveSessions returns the number of conversations in progress
func (s *VoiceService) ActiveSessions() int {
	return s.sessions.ActiveCount()
}

func (s *VoiceService) recordTurn(ctx context.Context, session *CallSession, role, content string, confidence float64) {
	turn := &models.Transcript{
		CallID:     session.CallSid,
		TenantID:   session.TenantID,
		Role:       role,
		Content:    content,
		Confidence: confidence,
		SpokenAt:   s.now(),
	}
	if err := s.store.AddTranscript(ctx, turn); err != nil {
		logger.FromContext(ctx).Warn("Failed to store transcript turn",
			zap.String("call_sid", session.CallSid), zap.Error(err))
		return
	}
	s.broadcast.Broadcast(ctx, session.TenantID, realtime.CallTranscript, turn)
}

func (s *VoiceService) updateCallDetails(ctx context.Context, session *CallSession) {
	call, err := s.store.GetCall(ctx, session.TenantID, session.CallSid)
	if err != nil {
		return
	}
	call.RoomNumber = session.RoomNumber
	call.Language = session.Language
	if err := s.store.UpdateCall(ctx, call); err != nil {
		logger.FromContext(ctx).Warn("Failed to update call details", zap.Error(err))
	}
}

// BuildCallSummary condenses a finished call into one line for the dashboard
func BuildCallSummary(call *models.Call, transcripts []*models.Transcript, session *CallSession) string {
	var parts []string
	if call.RoomNumber != "" {
		parts = append(parts, "Room "+call.RoomNumber)
	}

	var guestTurns []string
	for _, t := range transcripts {
		if t.Role == models.SpeakerGuest {
			guestTurns = append(guestTurns, t.Content)
		}
	}

	if session != nil && len(session.RequestsCreated) > 0 {
		parts = append(parts, fmt.Sprintf("%d request(s) created", len(session.RequestsCreated)))
	} else if len(guestTurns) == 0 {
		parts = append(parts, "No speech from caller")
	} else {
		parts = append(parts, "No request created")
	}

	if len(guestTurns) > 0 {
		longest := guestTurns[0]
		for _, turn := range guestTurns[1:] {
			if len(turn) > len(longest) {
				longest = turn
			}
		}
		if r := []rune(longest); len(r) > 120 {
			longest = string(r[:120]) + "..."
		}
		parts = append(parts, fmt.Sprintf("Guest said: %q", longest))
	}

	parts = append(parts, fmt.Sprintf("%d turns, %ds", len(transcripts), call.DurationSec))
	return strings.Join(parts, ". ")
}
