package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
	"github.com/guestvoice/guestvoice-backend/internal/utils"
)

type OTPService struct {
	store storage.Store
	now   func() time.Time
}

func NewOTPService(store storage.Store) *OTPService {
	return &OTPService{store: store, now: time.Now}
}

// CreateOTP creates a new code for the given purpose. Older codes stay valid until they expire;
// verification always checks the newest one.
func (s *OTPService) CreateOTP(ctx context.Context, tenantID, email, purpose string) (*models.OTP, error) {
	code, err := utils.GenerateSecureOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}

	otp := &models.OTP{
		TenantID:  tenantID,
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(models.OTPExpiry),
	}
	if err := s.store.CreateOTP(ctx, otp); err != nil {
		return nil, err
	}
	return otp, nil
}

// VerifyOTP checks code against the newest active code and consumes it on success.
// A code is burnt after OTPMaxAttempts wrong guesses.
func (s *OTPService) VerifyOTP(ctx context.Context, tenantID, email, code, purpose string) error {
	otp, err := s.store.GetActiveOTP(ctx, tenantID, email, purpose)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}

	now := s.now()
	if otp.Expired(now) || otp.IsUsed || otp.Attempts >= models.OTPMaxAttempts {
		return ErrInvalidOTP
	}

	otp.Attempts++
	if otp.Code != code {
		if otp.Attempts >= models.OTPMaxAttempts {
			otp.IsUsed = true
		}
		if err := s.store.UpdateOTP(ctx, otp); err != nil {
			return err
		}
		return ErrInvalidOTP
	}

	otp.VerifiedAt = &now
	otp.IsUsed = true
	return s.store.UpdateOTP(ctx, otp)
}

// CleanupExpired removes expired and used codes
func (s *OTPService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredOTPs(ctx, s.now())
}
