package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

func newOTPService() (*OTPService, *time.Time) {
	now := time.Now()
	s := NewOTPService(storage.NewMemoryStore())
	s.now = func() time.Time { return now }
	return s, &now
}

func TestOTPSingleUse(t *testing.T) {
	ctx := context.Background()
	s, _ := newOTPService()

	otp, err := s.CreateOTP(ctx, "t1", "a@b.test", models.OTPPurposePasswordReset)
	require.NoError(t, err)
	assert.Len(t, otp.Code, 6)

	require.NoError(t, s.VerifyOTP(ctx, "t1", "a@b.test", otp.Code, models.OTPPurposePasswordReset))
	assert.ErrorIs(t, s.VerifyOTP(ctx, "t1", "a@b.test", otp.Code, models.OTPPurposePasswordReset), ErrInvalidOTP)
}

func TestOTPScopedToTenant(t *testing.T) {
	ctx := context.Background()
	s, _ := newOTPService()

	otp, err := s.CreateOTP(ctx, "t1", "a@b.test", models.OTPPurposePasswordReset)
	require.NoError(t, err)
	assert.ErrorIs(t, s.VerifyOTP(ctx, "t2", "a@b.test", otp.Code, models.OTPPurposePasswordReset), ErrInvalidOTP)
}

func TestOTPExpiry(t *testing.T) {
	ctx := context.Background()
	s, now := newOTPService()

	otp, err := s.CreateOTP(ctx, "t1", "a@b.test", models.OTPPurposePasswordReset)
	require.NoError(t, err)

	*now = now.Add(models.OTPExpiry + time.Second)
	assert.ErrorIs(t, s.VerifyOTP(ctx, "t1", "a@b.test", otp.Code, models.OTPPurposePasswordReset), ErrInvalidOTP)
}

func TestOTPAttemptLimit(t *testing.T) {
	ctx := context.Background()
	s, _ := newOTPService()

	otp, err := s.CreateOTP(ctx, "t1", "a@b.test", models.OTPPurposePasswordReset)
	require.NoError(t, err)
	wrong := "000000"
	if otp.Code == wrong {
		wrong = "111111"
	}

	for i := 0; i < models.OTPMaxAttempts; i++ {
		assert.ErrorIs(t, s.VerifyOTP(ctx, "t1", "a@b.test", wrong, models.OTPPurposePasswordReset), ErrInvalidOTP)
	}
	// burnt: the right code no longer works
	assert.ErrorIs(t, s.VerifyOTP(ctx, "t1", "a@b.test", otp.Code, models.OTPPurposePasswordReset), ErrInvalidOTP)
}
