package models

import (
	"time"

	"gorm.io/gorm"
)

// Call is one inbound voice call handled by the assistant
type Call struct {
	gorm.Model
	CallID      string       `gorm:"uniqueIndex;not null" json:"call_id"` // provider CallSid
	TenantID    string       `gorm:"index;not null" json:"tenant_id"`
	FromNumber  string       `json:"from_number"`
	ToNumber    string       `json:"to_number"`
	RoomNumber  string       `json:"room_number,omitempty"`
	Language    string       `gorm:"default:'en'" json:"language"`
	Status      string       `gorm:"default:'ringing'" json:"status"`
	StartedAt   time.Time    `json:"started_at"`
	EndedAt     *time.Time   `json:"ended_at,omitempty"`
	DurationSec int          `json:"duration_sec"`
	Summary     string       `json:"summary,omitempty"`
	Transcripts []Transcript `gorm:"foreignKey:CallID;references:CallID" json:"transcripts,omitempty"`
}

const (
	CallStatusRinging    = "ringing"
	CallStatusInProgress = "in_progress"
	CallStatusCompleted  = "completed"
	CallStatusFailed     = "failed"
	CallStatusNoAnswer   = "no_answer"
	CallStatusBusy       = "busy"
	CallStatusCanceled   = "canceled"
)

// NormalizeCallStatus maps provider status strings ("in-progress", "no-answer") to ours
func NormalizeCallStatus(s string) string {
	switch s {
	case "queued", "initiated", "ringing":
		return CallStatusRinging
	case "in-progress", "answered", "in_progress":
		return CallStatusInProgress
	case "completed":
		return CallStatusCompleted
	case "busy":
		return CallStatusBusy
	case "no-answer", "no_answer":
		return CallStatusNoAnswer
	case "canceled":
		return CallStatusCanceled
	default:
		return CallStatusFailed
	}
}

// CallEnded reports whether status is terminal
func CallEnded(status string) bool {
	switch status {
	case CallStatusCompleted, CallStatusFailed, CallStatusNoAnswer, CallStatusBusy, CallStatusCanceled:
		return true
	}
	return false
}

func (c *Call) BeforeCreate(tx *gorm.DB) error {
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now()
	}
	if c.Language == "" {
		c.Language = "en"
	}
	return nil
}

// Transcript is one spoken turn of a call
type Transcript struct {
	gorm.Model
	CallID     string    `gorm:"index;not null" json:"call_id"`
	TenantID   string    `gorm:"index;not null" json:"tenant_id"`
	Role       string    `gorm:"not null" json:"role"` // guest or assistant
	Content    string    `json:"content"`
	Sequence   int       `json:"sequence"`
	Confidence float64   `json:"confidence,omitempty"`
	SpokenAt   time.Time `json:"spoken_at"`
}

const (
	SpeakerGuest     = "guest"
	SpeakerAssistant = "assistant"
)

// CallFilter narrows call listings
type CallFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}
