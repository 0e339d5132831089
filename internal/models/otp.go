package models

import (
	"time"

	"gorm.io/gorm"
)

type OTP struct {
	gorm.Model
	Email      string    `gorm:"not null;index"`
	TenantID   string    `gorm:"not null;index"`
	Code       string    `gorm:"not null"`
	Purpose    string    `gorm:"not null"` // "password_reset"
	ExpiresAt  time.Time `gorm:"not null"`
	VerifiedAt *time.Time
	Attempts   int  `gorm:"default:0"`
	IsUsed     bool `gorm:"default:false"`
}

const (
	OTPPurposePasswordReset = "password_reset"

	OTPExpiry      = 10 * time.Minute
	OTPMaxAttempts = 3
)

// Expired reports whether the code can no longer be used at now
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
