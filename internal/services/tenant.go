package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/auth"
	"github.com/guestvoice/guestvoice-backend/internal/events"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/realtime"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
	"github.com/guestvoice/guestvoice-backend/internal/telemetry"
	"github.com/guestvoice/guestvoice-backend/internal/utils"
)

// PlatformSlug is the tenant holding platform operators
const PlatformSlug = "platform"

// TenantService manages hotel accounts
type TenantService struct {
	store     storage.Store
	auth      *AuthService
	notifier  *Notifier
	broadcast Broadcaster
	events    *events.Publisher
	now       func() time.Time
}

func NewTenantService(store storage.Store, authService *AuthService, notifier *Notifier, broadcast Broadcaster, publisher *events.Publisher) *TenantService {
	return &TenantService{
		store:     store,
		auth:      authService,
		notifier:  notifier,
		broadcast: orNop(broadcast),
		events:    publisher,
		now:       time.Now,
	}
}

// Signup creates a hotel on the free plan in trial together with its first admin
func (s *TenantService) Signup(ctx context.Context, in models.SignupInput) (*models.AuthToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "tenant.signup")
	defer span.End()

	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug == "" {
		slug = utils.Slugify(in.HotelName)
	}
	if !models.ValidSlug(slug) || slug == PlatformSlug {
		return nil, ErrInvalidSlug
	}

	hash, err := auth.HashPassword(in.AdminPassword)
	if err != nil {
		return nil, err
	}

	trialEnds := s.now().Add(models.TrialPeriod)
	tenant := &models.Tenant{
		Name:               strings.TrimSpace(in.HotelName),
		Slug:               slug,
		Email:              utils.NormalizeEmail(in.Email),
		Phone:              utils.NormalizePhone(in.Phone),
		Timezone:           in.Timezone,
		Plan:               models.PlanFree,
		SubscriptionStatus: models.SubscriptionTrialing,
		TrialEndsAt:        &trialEnds,
		IsActive:           true,
	}
	if tenant.Timezone == "" {
		tenant.Timezone = "UTC"
	}
	admin := &models.Staff{
		Name:         strings.TrimSpace(in.AdminName),
		Email:        utils.NormalizeEmail(in.AdminEmail),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}

	if err := s.store.CreateTenantWithAdmin(ctx, tenant, admin); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.FromContext(ctx).Info("Hotel signed up",
		zap.String("tenant_id", tenant.TenantID),
		zap.String("slug", tenant.Slug))

	s.notifier.Email(ctx, admin.Email, TemplateStaffWelcome, map[string]string{
		"name":       admin.Name,
		"hotel_name": tenant.Name,
		"email":      admin.Email,
		"slug":       tenant.Slug,
	})

	return s.auth.IssueToken(admin, tenant)
}

// Get returns a tenant by ID
func (s *TenantService) Get(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return s.store.GetTenant(ctx, tenantID)
}

// Update applies profile changes to the caller's own hotel
func (s *TenantService) Update(ctx context.Context, tenantID string, in models.TenantUpdate) (*models.Tenant, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		tenant.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		tenant.Email = utils.NormalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		tenant.Phone = utils.NormalizePhone(*in.Phone)
	}
	if in.Timezone != nil {
		tenant.Timezone = *in.Timezone
	}
	if in.VoiceNumber != nil {
		number := utils.NormalizePhone(*in.VoiceNumber)
		if number == "" {
			tenant.VoiceNumber = nil
		} else {
			tenant.VoiceNumber = &number
		}
	}

	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, err
	}
	s.broadcast.Broadcast(ctx, tenant.TenantID, realtime.TenantUpdated, tenant)
	return tenant, nil
}

// List returns hotels for platform admins
func (s *TenantService) List(ctx context.Context, filter models.TenantFilter) ([]*models.Tenant, int64, error) {
	return s.store.ListTenants(ctx, filter)
}

// Suspend locks a hotel out of the dashboard and voice line and emails the hotel
func (s *TenantService) Suspend(ctx context.Context, tenantID, reason string) (*models.Tenant, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Slug == PlatformSlug {
		return nil, ErrRoleNotAllowed
	}

	now := s.now()
	if tenant.SubscriptionStatus != models.SubscriptionSuspended {
		tenant.StatusBeforeSuspension = tenant.SubscriptionStatus
	}
	tenant.SubscriptionStatus = models.SubscriptionSuspended
	tenant.SuspendedReason = reason
	tenant.SuspendedAt = &now
	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Warn("Hotel suspended",
		zap.String("tenant_id", tenant.TenantID),
		zap.String("reason", reason))

	s.notifier.Email(ctx, tenant.Email, TemplateTenantSuspended, map[string]string{
		"hotel_name": tenant.Name,
		"reason":     reason,
	})
	s.events.Publish(ctx, events.New(events.TenantSuspended, tenant.TenantID, map[string]string{"reason": reason}))
	s.broadcast.Broadcast(ctx, tenant.TenantID, realtime.TenantUpdated, tenant)
	return tenant, nil
}

// Reactivate lifts a suspension and restores the subscription status the hotel had before it.
// A trial that ran out meanwhile is left to the billing cycle.
func (s *TenantService) Reactivate(ctx context.Context, tenantID string) (*models.Tenant, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.Locked() {
		return tenant, nil
	}

	tenant.IsActive = true
	switch {
	case tenant.StatusBeforeSuspension != "":
		tenant.SubscriptionStatus = tenant.StatusBeforeSuspension
	case tenant.TrialEndsAt != nil && tenant.TrialEndsAt.After(s.now()):
		tenant.SubscriptionStatus = models.SubscriptionTrialing
	default:
		tenant.SubscriptionStatus = models.SubscriptionActive
	}
	tenant.StatusBeforeSuspension = ""
	tenant.SuspendedReason = ""
	tenant.SuspendedAt = nil
	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Hotel reactivated", zap.String("tenant_id", tenant.TenantID))
	s.notifier.Email(ctx, tenant.Email, TemplateTenantReactivated, map[string]string{"hotel_name": tenant.Name})
	s.broadcast.Broadcast(ctx, tenant.TenantID, realtime.TenantUpdated, tenant)
	return tenant, nil
}

// Delete soft-deletes a hotel
func (s *TenantService) Delete(ctx context.Context, tenantID string) error {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.Slug == PlatformSlug {
		return ErrRoleNotAllowed
	}
	if err := s.store.DeleteTenant(ctx, tenantID); err != nil {
		return err
	}
	logger.FromContext(ctx).Warn("Hotel deleted", zap.String("tenant_id", tenantID))
	return nil
}

// EnsurePlatformAdmin creates the platform tenant and its super_admin on first start
func (s *TenantService) EnsurePlatformAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := s.store.GetTenantBySlug(ctx, PlatformSlug)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	tenant := &models.Tenant{
		Name:               "GuestVoice Platform",
		Slug:               PlatformSlug,
		Email:              utils.NormalizeEmail(email),
		Plan:               models.PlanEnterprise,
		SubscriptionStatus: models.SubscriptionActive,
		IsActive:           true,
	}
	admin := &models.Staff{
		Name:         "Platform Admin",
		Email:        utils.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := s.store.CreateTenantWithAdmin(ctx, tenant, admin); err != nil {
		return fmt.Errorf("failed to create platform admin: %w", err)
	}
	logger.FromContext(ctx).Info("Platform admin created", zap.String("email", admin.Email))
	return nil
}
