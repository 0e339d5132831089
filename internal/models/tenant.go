package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is a hotel using the platform
type Tenant struct {
	gorm.Model
	TenantID               string     `gorm:"uniqueIndex;not null" json:"tenant_id"`
	Name                   string     `gorm:"not null" json:"name"`
	Slug                   string     `gorm:"uniqueIndex;not null" json:"slug"`
	VoiceNumber            *string    `gorm:"uniqueIndex" json:"voice_number,omitempty"` // E.164, routes inbound calls
	Email                  string     `json:"email"`
	Phone                  string     `json:"phone"` // front desk, receives request alerts
	Timezone               string     `gorm:"default:'UTC'" json:"timezone"`
	Plan                   string     `gorm:"default:'free'" json:"plan"`
	SubscriptionStatus     string     `gorm:"default:'trialing'" json:"subscription_status"`
	TrialEndsAt            *time.Time `json:"trial_ends_at,omitempty"`
	IsActive               bool       `gorm:"default:true" json:"is_active"`
	SuspendedReason        string     `json:"suspended_reason,omitempty"`
	SuspendedAt            *time.Time `json:"suspended_at,omitempty"`
	// subscription status held when the suspension started, restored on reactivation
	StatusBeforeSuspension string     `json:"status_before_suspension,omitempty"`
}

const (
	SubscriptionTrialing  = "trialing"
	SubscriptionActive    = "active"
	SubscriptionPastDue   = "past_due"
	SubscriptionCanceled  = "canceled"
	SubscriptionSuspended = "suspended"
)

// TrialPeriod is the length of the trial granted at signup
const TrialPeriod = 14 * 24 * time.Hour

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether s can be used as a tenant slug
func ValidSlug(s string) bool {
	return len(s) >= 3 && len(s) <= 50 && slugPattern.MatchString(s)
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.TenantID == "" {
		t.TenantID = uuid.NewString()
	}
	if t.Plan == "" {
		t.Plan = PlanFree
	}
	if t.SubscriptionStatus == "" {
		t.SubscriptionStatus = SubscriptionTrialing
	}
	return nil
}

// Locked reports whether staff of the tenant are locked out of the dashboard
func (t *Tenant) Locked() bool {
	return !t.IsActive || t.SubscriptionStatus == SubscriptionSuspended
}

// Usable reports whether the tenant may log in and receive calls
func (t *Tenant) Usable() bool {
	return t.IsActive && t.SubscriptionStatus != SubscriptionSuspended && t.SubscriptionStatus != SubscriptionCanceled
}

// Limits returns the plan limits for the tenant
func (t *Tenant) Limits() Plan {
	p, ok := LookupPlan(t.Plan)
	if !ok {
		p, _ = LookupPlan(PlanFree)
	}
	return p
}

// TenantUpdate carries the editable hotel profile fields
type TenantUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=120"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,e164"`
	Timezone    *string `json:"timezone" validate:"omitempty,timezone"`
	VoiceNumber *string `json:"voice_number" validate:"omitempty,e164"`
}

// TenantFilter narrows platform admin listings
type TenantFilter struct {
	Search   string
	IsActive *bool
	Page     int
	Limit    int
}
