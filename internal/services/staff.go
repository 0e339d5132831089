package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/auth"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
	"github.com/guestvoice/guestvoice-backend/internal/utils"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	TenantID string
	StaffID  string
	Role     string
	Name     string
}

// StaffService manages hotel staff accounts
type StaffService struct {
	store    storage.Store
	notifier *Notifier
}

func NewStaffService(store storage.Store, notifier *Notifier) *StaffService {
	return &StaffService{store: store, notifier: notifier}
}

func (s *StaffService) List(ctx context.Context, tenantID string) ([]*models.Staff, error) {
	return s.store.ListStaff(ctx, tenantID)
}

func (s *StaffService) Get(ctx context.Context, tenantID, staffID string) (*models.Staff, error) {
	return s.store.GetStaff(ctx, tenantID, staffID)
}

// canGrant reports whether actor may hand out role
func canGrant(actor Actor, role string) bool {
	if role == models.RoleAdmin {
		return models.RoleAtLeast(actor.Role, models.RoleAdmin)
	}
	return true
}

// Create adds a staff member within the plan's staff limit
func (s *StaffService) Create(ctx context.Context, actor Actor, in models.CreateStaffInput) (*models.Staff, error) {
	role := in.Role
	if role == "" {
		role = models.RoleStaff
	}
	if !canGrant(actor, role) {
		return nil, ErrRoleNotAllowed
	}

	tenant, err := s.store.GetTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountActiveStaff(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.Limits().StaffAllowed(count + 1) {
		return nil, ErrLimitReached
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	staff := &models.Staff{
		TenantID:     actor.TenantID,
		Name:         strings.TrimSpace(in.Name),
		Email:        utils.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
		Department:   in.Department,
		Phone:        utils.NormalizePhone(in.Phone),
		IsActive:     true,
	}
	if err := s.store.CreateStaff(ctx, staff); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Staff created",
		zap.String("staff_id", staff.StaffID),
		zap.String("role", staff.Role),
		zap.String("created_by", actor.StaffID))

	s.notifier.Email(ctx, staff.Email, TemplateStaffWelcome, map[string]string{
		"name":       staff.Name,
		"hotel_name": tenant.Name,
		"email":      staff.Email,
		"slug":       tenant.Slug,
	})
	return staff, nil
}

// Update changes a staff member. Managers cannot touch admins or promote anyone to admin.
func (s *StaffService) Update(ctx context.Context, actor Actor, staffID string, in models.StaffUpdate) (*models.Staff, error) {
	staff, err := s.store.GetStaff(ctx, actor.TenantID, staffID)
	if err != nil {
		return nil, err
	}
	if !canGrant(actor, staff.Role) {
		return nil, ErrRoleNotAllowed
	}

	if in.Role != nil && *in.Role != staff.Role {
		if !canGrant(actor, *in.Role) || staff.Role == models.RoleSuperAdmin {
			return nil, ErrRoleNotAllowed
		}
		staff.Role = *in.Role
	}
	if in.IsActive != nil && *in.IsActive != staff.IsActive {
		if !*in.IsActive && staff.StaffID == actor.StaffID {
			return nil, ErrSelfDeactivation
		}
		if *in.IsActive {
			if err := s.checkStaffLimit(ctx, actor.TenantID); err != nil {
				return nil, err
			}
		}
		staff.IsActive = *in.IsActive
	}
	if in.Name != nil {
		staff.Name = strings.TrimSpace(*in.Name)
	}
	if in.Department != nil {
		staff.Department = *in.Department
	}
	if in.Phone != nil {
		staff.Phone = utils.NormalizePhone(*in.Phone)
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		staff.PasswordHash = hash
	}

	if err := s.store.UpdateStaff(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// Deactivate soft-deletes a staff member
func (s *StaffService) Deactivate(ctx context.Context, actor Actor, staffID string) error {
	if staffID == actor.StaffID {
		return ErrSelfDeactivation
	}
	staff, err := s.store.GetStaff(ctx, actor.TenantID, staffID)
	if err != nil {
		return err
	}
	if !canGrant(actor, staff.Role) || staff.Role == models.RoleSuperAdmin {
		return ErrRoleNotAllowed
	}
	if !staff.IsActive {
		return nil
	}

	staff.IsActive = false
	if err := s.store.UpdateStaff(ctx, staff); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Staff deactivated",
		zap.String("staff_id", staff.StaffID),
		zap.String("by", actor.StaffID))
	return nil
}

func (s *StaffService) checkStaffLimit(ctx context.Context, tenantID string) error {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	count, err := s.store.CountActiveStaff(ctx, tenantID)
	if err != nil {
		return err
	}
	if !tenant.Limits().StaffAllowed(count + 1) {
		return ErrLimitReached
	}
	return nil
}
