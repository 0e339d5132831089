package models

import (
	"time"

	"github.com/guestvoice/guestvoice-backend/internal/utils"
	"gorm.io/gorm"
)

// Request is a guest service ticket, raised by the voice assistant or by staff
type Request struct {
	gorm.Model
	RequestID   string     `gorm:"uniqueIndex;not null" json:"request_id"`
	TenantID    string     `gorm:"index;not null" json:"tenant_id"`
	CallID      string     `gorm:"index" json:"call_id,omitempty"`
	RoomNumber  string     `gorm:"index" json:"room_number"`
	GuestName   string     `json:"guest_name,omitempty"`
	Type        string     `gorm:"default:'other'" json:"type"`
	Description string     `json:"description"`
	Status      string     `gorm:"default:'pending';index" json:"status"`
	Priority    string     `gorm:"default:'medium'" json:"priority"`
	AssignedTo  string     `gorm:"index" json:"assigned_to,omitempty"` // StaffID
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`
	Messages    []Message  `gorm:"foreignKey:RequestID;references:RequestID" json:"messages,omitempty"`
}

const (
	RequestTypeHousekeeping = "housekeeping"
	RequestTypeRoomService  = "room_service"
	RequestTypeMaintenance  = "maintenance"
	RequestTypeConcierge    = "concierge"
	RequestTypeFrontDesk    = "front_desk"
	RequestTypeOther        = "other"
)

const (
	RequestStatusPending    = "pending"
	RequestStatusInProgress = "in_progress"
	RequestStatusCompleted  = "completed"
	RequestStatusCancelled  = "cancelled"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var requestTransitions = map[string][]string{
	RequestStatusPending:    {RequestStatusInProgress, RequestStatusCancelled},
	RequestStatusInProgress: {RequestStatusCompleted, RequestStatusCancelled, RequestStatusPending},
}

// CanTransition reports whether a request may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from status
func IsTerminal(status string) bool {
	return status == RequestStatusCompleted || status == RequestStatusCancelled
}

// NextPriority returns the priority one step above p; urgent stays urgent
func NextPriority(p string) string {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityUrgent
	}
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.RequestID == "" {
		r.RequestID = utils.GenerateSecureID("REQ")
	}
	if r.Type == "" {
		r.Type = RequestTypeOther
	}
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	return nil
}

// Message is a note on a request thread
type Message struct {
	gorm.Model
	RequestID  string `gorm:"index;not null" json:"request_id"`
	TenantID   string `gorm:"index;not null" json:"tenant_id"`
	AuthorID   string `json:"author_id,omitempty"`
	AuthorName string `json:"author_name"`
	AuthorRole string `gorm:"default:'staff'" json:"author_role"` // staff, guest, system
	Body       string `gorm:"not null" json:"body"`
}

const (
	AuthorStaff  = "staff"
	AuthorGuest  = "guest"
	AuthorSystem = "system"
)

// RequestFilter narrows request listings
type RequestFilter struct {
	Status     string
	Type       string
	RoomNumber string
	AssignedTo string
	Page       int
	Limit      int
}

// CreateRequestInput is the staff-facing body for new requests
type CreateRequestInput struct {
	RoomNumber  string `json:"room_number" validate:"required,max=20"`
	GuestName   string `json:"guest_name" validate:"max=120"`
	Type        string `json:"type" validate:"required,oneof=housekeeping room_service maintenance concierge front_desk other"`
	Description string `json:"description" validate:"required,max=2000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// UpdateStatusInput moves a request through its lifecycle
type UpdateStatusInput struct {
	Status     string `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
	Resolution string `json:"resolution" validate:"max=2000"`
}

type AssignInput struct {
	StaffID string `json:"staff_id" validate:"required"`
}

type MessageInput struct {
	Body string `json:"body" validate:"required,max=2000"`
}
