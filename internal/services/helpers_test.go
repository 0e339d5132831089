package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guestvoice/guestvoice-backend/internal/auth"
	"github.com/guestvoice/guestvoice-backend/internal/events"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSMS) SendSMS(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return nil
}

func (f *fakeSMS) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeEmail) SendEmail(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeEmail) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type broadcastRecord struct {
	TenantID string
	Type     string
	Data     interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastRecord
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, tenantID, eventType string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastRecord{TenantID: tenantID, Type: eventType, Data: data})
}

func (f *fakeBroadcaster) Types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

// testEnv wires every service over one memory store
type testEnv struct {
	store     *storage.MemoryStore
	sms       *fakeSMS
	email     *fakeEmail
	broadcast *fakeBroadcaster
	sink      *events.MemorySink
	tokens    *auth.TokenManager

	otp       *OTPService
	auth      *AuthService
	tenants   *TenantService
	staff     *StaffService
	requests  *RequestService
	sessions  *SessionManager
	voice     *VoiceService
	billing   *BillingService
	dashboard *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     storage.NewMemoryStore(),
		sms:       &fakeSMS{},
		email:     &fakeEmail{},
		broadcast: &fakeBroadcaster{},
		sink:      &events.MemorySink{},
		tokens:    auth.NewTokenManager("test-secret", "guestvoice-test", time.Hour),
	}
	publisher := events.NewPublisher(env.sink)
	notifier := NewNotifier(env.sms, env.email, nil)

	env.otp = NewOTPService(env.store)
	env.auth = NewAuthService(env.store, env.tokens, env.otp, notifier)
	env.tenants = NewTenantService(env.store, env.auth, notifier, env.broadcast, publisher)
	env.staff = NewStaffService(env.store, notifier)
	env.requests = NewRequestService(env.store, notifier, env.broadcast, publisher)
	env.sessions = NewSessionManager(DefaultSessionTTL)
	env.voice = NewVoiceService(env.store, env.sessions, env.requests, env.broadcast, publisher)
	env.billing = NewBillingService(env.store, env.broadcast)
	env.dashboard = NewDashboardService(env.store, notifier)
	return env
}

// hotel is a signed-up tenant with its admin actor
type hotel struct {
	Tenant *models.Tenant
	Admin  *models.Staff
	Actor  Actor
}

func (env *testEnv) signup(t *testing.T, name, slug string) hotel {
	t.Helper()
	token, err := env.tenants.Signup(context.Background(), models.SignupInput{
		HotelName:     name,
		Slug:          slug,
		Email:         "desk@" + slug + ".test",
		Phone:         "+15550001000",
		AdminName:     "Alex Admin",
		AdminEmail:    "admin@" + slug + ".test",
		AdminPassword: "password123",
	})
	require.NoError(t, err)
	return hotel{
		Tenant: token.Tenant,
		Admin:  token.Staff,
		Actor: Actor{
			TenantID: token.Tenant.TenantID,
			StaffID:  token.Staff.StaffID,
			Role:     token.Staff.Role,
			Name:     token.Staff.Name,
		},
	}
}

// withVoiceNumber assigns an inbound number to the hotel
func (env *testEnv) withVoiceNumber(t *testing.T, h hotel, number string) {
	t.Helper()
	_, err := env.tenants.Update(context.Background(), h.Tenant.TenantID, models.TenantUpdate{VoiceNumber: &number})
	require.NoError(t, err)
}
