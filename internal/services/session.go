package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
)

// DefaultSessionTTL bounds how long an idle call conversation is kept
const DefaultSessionTTL = 30 * time.Minute

// Conversation steps
const (
	StepRoom    = "room"
	StepRequest = "request"
	StepConfirm = "confirm"
	StepMore    = "more"
)

// CallSession is the conversation state of one live call
type CallSession struct {
	CallSid    string
	TenantID   string
	HotelName  string
	Language   string
	Step       string
	RoomNumber string

	// pending request awaiting confirmation
	RequestType string
	Description string
	Priority    string

	Retries         int
	RequestsCreated []string

	CreatedAt  time.Time
	LastActive time.Time
	ExpiresAt  time.Time
}

// SessionManager keeps call conversations in memory keyed by CallSid
type SessionManager struct {
	sessions map[string]*CallSession
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: make(map[string]*CallSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a conversation for a call, or returns the existing one
func (sm *SessionManager) Create(callSid, tenantID, hotelName, language string) *CallSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	if existing, ok := sm.sessions[callSid]; ok && now.Before(existing.ExpiresAt) {
		existing.LastActive = now
		existing.ExpiresAt = now.Add(sm.ttl)
		c := *existing
		return &c
	}

	session := &CallSession{
		CallSid:    callSid,
		TenantID:   tenantID,
		HotelName:  hotelName,
		Language:   language,
		Step:       StepRoom,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(sm.ttl),
	}
	sm.sessions[callSid] = session
	c := *session
	return &c
}

// Get returns a copy of an unexpired session
func (sm *SessionManager) Get(callSid string) (*CallSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[callSid]
	if !ok || sm.now().After(session.ExpiresAt) {
		return nil, false
	}
	c := *session
	c.RequestsCreated = append([]string(nil), session.RequestsCreated...)
	return &c, true
}

// Save stores session state and refreshes its expiry
func (sm *SessionManager) Save(session *CallSession) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	c := *session
	c.LastActive = now
	c.ExpiresAt = now.Add(sm.ttl)
	sm.sessions[session.CallSid] = &c
}

// End removes a session and returns its final state
func (sm *SessionManager) End(callSid string) (*CallSession, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[callSid]
	if ok {
		delete(sm.sessions, callSid)
	}
	return session, ok
}

// ActiveCount returns the number of live sessions
func (sm *SessionManager) ActiveCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	now := sm.now()
	n := 0
	for _, s := range sm.sessions {
		if now.Before(s.ExpiresAt) {
			n++
		}
	}
	return n
}

// Cleanup drops expired sessions and returns how many were removed
func (sm *SessionManager) Cleanup() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	removed := 0
	for sid, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			delete(sm.sessions, sid)
			removed++
		}
	}
	return removed
}

// Run cleans up expired sessions every interval until ctx is done
func (sm *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sm.Cleanup(); n > 0 {
				logger.Info("Cleaned up expired call sessions", zap.Int("count", n))
			}
		}
	}
}
