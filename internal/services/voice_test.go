package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestvoice/guestvoice-backend/internal/events"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/realtime"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

const voiceNumber = "+15550102000"

func voiceHotel(t *testing.T, env *testEnv) hotel {
	t.Helper()
	h := env.signup(t, "Grand Hotel", "grand")
	env.withVoiceNumber(t, h, voiceNumber)
	return h
}

func TestIncomingCallUnknownNumber(t *testing.T) {
	env := newTestEnv(t)
	twiml := env.voice.HandleIncoming(context.Background(), IncomingCall{CallSid: "CA1", From: "+15551112222", To: "+19999999999"})

	assert.Contains(t, twiml, "not in service")
	assert.Contains(t, twiml, "<Hangup")
	_, err := env.store.GetCallBySid(context.Background(), "CA1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIncomingCallSuspendedHotel(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := voiceHotel(t, env)
	_, err := env.tenants.Suspend(ctx, h.Tenant.TenantID, "unpaid")
	require.NoError(t, err)

	twiml := env.voice.HandleIncoming(ctx, IncomingCall{CallSid: "CA1", From: "+15551112222", To: voiceNumber})
	assert.Contains(t, twiml, "<Hangup")
}

func TestIncomingCallLimitReached(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := voiceHotel(t, env)

	free, _ := models.LookupPlan(models.PlanFree)
	_, err := env.store.IncrementUsage(ctx, h.Tenant.TenantID, models.PeriodOf(time.Now()), models.UsageDelta{Calls: free.MaxMonthlyCalls})
	require.NoError(t, err)

	twiml := env.voice.HandleIncoming(ctx, IncomingCall{CallSid: "CA1", From: "+15551112222", To: voiceNumber})
	assert.Contains(t, twiml, "not available right now")
	assert.Contains(t, twiml, "<Hangup")
}

func TestVoiceCallEndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := voiceHotel(t, env)
	tenantID := h.Tenant.TenantID

	twiml := env.voice.HandleIncoming(ctx, IncomingCall{CallSid: "CA1", From: "+15551112222", To: voiceNumber})
	assert.Contains(t, twiml, "<Gather")
	assert.Contains(t, twiml, `input="speech"`)
	assert.Contains(t, twiml, "Welcome to Grand Hotel")
	assert.Contains(t, twiml, GatherPath)

	call, err := env.store.GetCall(ctx, tenantID, "CA1")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusInProgress, call.Status)
	assert.Equal(t, 1, env.voice.ActiveSessions())

	// repeated webhook does not count the call twice
	env.voice.HandleIncoming(ctx, IncomingCall{CallSid: "CA1", From: "+15551112222", To: voiceNumber})
	usage, err := env.store.GetUsage(ctx, tenantID, models.PeriodOf(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Calls)

	env.voice.HandleGather(ctx, GatherResult{CallSid: "CA1", SpeechResult: "room 204", Confidence: 0.9})
	twiml = env.voice.HandleGather(ctx, GatherResult{CallSid: "CA1", SpeechResult: "I need extra towels", Confidence: 0.9})
	assert.Contains(t, twiml, "Shall I send this")

	twiml = env.voice.HandleGather(ctx, GatherResult{CallSid: "CA1", SpeechResult: "yes please", Confidence: 0.95})
	assert.Contains(t, twiml, "Our team has been notified")

	reqs, total, err := env.requests.List(ctx, tenantID, models.RequestFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, models.RequestTypeHousekeeping, reqs[0].Type)
	assert.Equal(t, "204", reqs[0].RoomNumber)
	assert.Equal(t, "CA1", reqs[0].CallID)

	twiml = env.voice.HandleGather(ctx, GatherResult{CallSid: "CA1", SpeechResult: "no that's all"})
	assert.Contains(t, twiml, "<Hangup")

	require.NoError(t, env.voice.HandleStatus(ctx, CallStatusUpdate{CallSid: "CA1", CallStatus: "completed", CallDuration: 75}))

	call, err = env.voice.GetCall(ctx, tenantID, "CA1")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusCompleted, call.Status)
	assert.Equal(t, 75, call.DurationSec)
	assert.NotNil(t, call.EndedAt)
	assert.Equal(t, "204", call.RoomNumber)
	assert.Contains(t, call.Summary, "Room 204")
	assert.Contains(t, call.Summary, "1 request(s) created")
	assert.NotEmpty(t, call.Transcripts)
	assert.Equal(t, models.SpeakerAssistant, call.Transcripts[0].Role)
	assert.Zero(t, env.voice.ActiveSessions())

	usage, err = env.store.GetUsage(ctx, tenantID, models.PeriodOf(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 2, usage.Minutes)
	assert.Equal(t, 1, usage.Requests)

	types := env.broadcast.Types()
	assert.Contains(t, types, realtime.CallStarted)
	assert.Contains(t, types, realtime.CallTranscript)
	assert.Contains(t, types, realtime.RequestCreated)
	assert.Contains(t, types, realtime.CallEnded)
	assert.Contains(t, env.sink.Types(), events.CallEnded)

	// late duplicate status callback is ignored
	require.NoError(t, env.voice.HandleStatus(ctx, CallStatusUpdate{CallSid: "CA1", CallStatus: "completed", CallDuration: 75}))
	usage, _ = env.store.GetUsage(ctx, tenantID, models.PeriodOf(time.Now()))
	assert.Equal(t, 2, usage.Minutes)
}

func TestGatherResumesLostSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	voiceHotel(t, env)

	env.voice.HandleIncoming(ctx, IncomingCall{CallSid: "CA1", From: "+15551112222", To: voiceNumber})
	env.sessions.End("CA1")

	twiml := env.voice.HandleGather(ctx, GatherResult{CallSid: "CA1", SpeechResult: "room 310"})
	assert.Contains(t, twiml, "How can I help you today?")
	assert.Equal(t, 1, env.voice.ActiveSessions())
}

func TestGatherUnknownCall(t *testing.T) {
	env := newTestEnv(t)
	twiml := env.voice.HandleGather(context.Background(), GatherResult{CallSid: "CA404", SpeechResult: "hello"})
	assert.Contains(t, twiml, "<Hangup")
}

func TestStatusUnknownCall(t *testing.T) {
	env := newTestEnv(t)
	err := env.voice.HandleStatus(context.Background(), CallStatusUpdate{CallSid: "CA404", CallStatus: "completed"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCallTenantIsolation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	voiceHotel(t, env)
	other := env.signup(t, "Seaside Inn", "seaside")

	env.voice.HandleIncoming(ctx, IncomingCall{CallSid: "CA1", From: "+15551112222", To: voiceNumber})

	_, err := env.voice.GetCall(ctx, other.Tenant.TenantID, "CA1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.voice.ListTranscripts(ctx, other.Tenant.TenantID, "CA1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	calls, total, err := env.voice.ListCalls(ctx, other.Tenant.TenantID, models.CallFilter{})
	require.NoError(t, err)
	assert.Empty(t, calls)
	assert.Zero(t, total)
}

func TestBuildCallSummary(t *testing.T) {
	call := &models.Call{DurationSec: 12}
	assert.Equal(t, "No speech from caller. 0 turns, 12s", BuildCallSummary(call, nil, nil))

	call.RoomNumber = "101"
	turns := []*models.Transcript{
		{Role: models.SpeakerAssistant, Content: "Welcome"},
		{Role: models.SpeakerGuest, Content: "101"},
		{Role: models.SpeakerGuest, Content: "what time is breakfast"},
	}
	summary := BuildCallSummary(call, turns, &CallSession{})
	assert.Equal(t, `Room 101. No request created. Guest said: "what time is breakfast". 3 turns, 12s`, summary)
}
