package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/auth"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/metrics"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
	"github.com/guestvoice/guestvoice-backend/internal/telemetry"
	"github.com/guestvoice/guestvoice-backend/internal/utils"
)

// AuthService handles staff login and password recovery
type AuthService struct {
	store    storage.Store
	tokens   *auth.TokenManager
	otp      *OTPService
	notifier *Notifier
}

func NewAuthService(store storage.Store, tokens *auth.TokenManager, otp *OTPService, notifier *Notifier) *AuthService {
	return &AuthService{store: store, tokens: tokens, otp: otp, notifier: notifier}
}

// Login verifies credentials within a hotel and issues an access token
func (s *AuthService) Login(ctx context.Context, in models.LoginInput) (*models.AuthToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "auth.login")
	defer span.End()

	tenant, err := s.store.GetTenantBySlug(ctx, in.TenantSlug)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	staff, err := s.store.GetStaffByEmail(ctx, tenant.TenantID, utils.NormalizeEmail(in.Email))
	if errors.Is(err, storage.ErrNotFound) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !auth.CheckPassword(staff.PasswordHash, in.Password) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}
	if !staff.IsActive {
		metrics.LoginAttemptsTotal.WithLabelValues("disabled").Inc()
		return nil, ErrAccountDisabled
	}
	if tenant.Locked() {
		metrics.LoginAttemptsTotal.WithLabelValues("suspended").Inc()
		return nil, ErrTenantSuspended
	}

	now := time.Now()
	staff.LastLoginAt = &now
	if err := s.store.UpdateStaff(ctx, staff); err != nil {
		logger.FromContext(ctx).Warn("Failed to record last login", zap.String("staff_id", staff.StaffID), zap.Error(err))
	}

	token, err := s.IssueToken(staff, tenant)
	if err != nil {
		return nil, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	logger.FromContext(ctx).Info("Staff logged in",
		zap.String("staff_id", staff.StaffID),
		zap.String("tenant_id", tenant.TenantID))
	return token, nil
}

// IssueToken signs a token for staff of tenant
func (s *AuthService) IssueToken(staff *models.Staff, tenant *models.Tenant) (*models.AuthToken, error) {
	token, expiresAt, err := s.tokens.Generate(staff.StaffID, staff.TenantID, staff.Email, staff.Role)
	if err != nil {
		return nil, err
	}
	return &models.AuthToken{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		Staff:     staff,
		Tenant:    tenant,
	}, nil
}

// ForgotPassword emails a reset code when the account exists. Unknown accounts are not reported.
func (s *AuthService) ForgotPassword(ctx context.Context, in models.ForgotPasswordInput) error {
	log := logger.FromContext(ctx)

	tenant, err := s.store.GetTenantBySlug(ctx, in.TenantSlug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	email := utils.NormalizeEmail(in.Email)
	staff, err := s.store.GetStaffByEmail(ctx, tenant.TenantID, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if !staff.IsActive {
		log.Info("Password reset requested for inactive staff", zap.String("staff_id", staff.StaffID))
		return nil
	}

	otp, err := s.otp.CreateOTP(ctx, tenant.TenantID, email, models.OTPPurposePasswordReset)
	if err != nil {
		return err
	}

	s.notifier.Email(ctx, staff.Email, TemplatePasswordReset, map[string]string{
		"code":    otp.Code,
		"minutes": strconv.Itoa(int(models.OTPExpiry.Minutes())),
	})
	return nil
}

// ResetPassword verifies the emailed code and sets a new password
func (s *AuthService) ResetPassword(ctx context.Context, in models.ResetPasswordInput) error {
	tenant, err := s.store.GetTenantBySlug(ctx, in.TenantSlug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	email := utils.NormalizeEmail(in.Email)

	if err := s.otp.VerifyOTP(ctx, tenant.TenantID, email, in.Code, models.OTPPurposePasswordReset); err != nil {
		return err
	}

	staff, err := s.store.GetStaffByEmail(ctx, tenant.TenantID, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	staff.PasswordHash = hash
	if err := s.store.UpdateStaff(ctx, staff); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("Password reset", zap.String("staff_id", staff.StaffID))
	return nil
}

// Me returns the caller's own profile
func (s *AuthService) Me(ctx context.Context, tenantID, staffID string) (*models.Staff, error) {
	return s.store.GetStaff(ctx, tenantID, staffID)
}
