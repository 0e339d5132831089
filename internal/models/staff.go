package models

import (
	"time"

	"github.com/guestvoice/guestvoice-backend/internal/utils"
	"gorm.io/gorm"
)

// Staff is a hotel employee or platform operator with dashboard access
type Staff struct {
	gorm.Model
	StaffID      string     `gorm:"uniqueIndex;not null" json:"staff_id"`
	TenantID     string     `gorm:"uniqueIndex:idx_staff_tenant_email;not null" json:"tenant_id"`
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex:idx_staff_tenant_email;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"default:'staff'" json:"role"`
	Department   string     `json:"department,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleFrontDesk  = "frontdesk"
	RoleStaff      = "staff"
)

var roleRank = map[string]int{
	RoleStaff:      1,
	RoleFrontDesk:  2,
	RoleManager:    3,
	RoleAdmin:      4,
	RoleSuperAdmin: 5,
}

// ValidRole reports whether role is a known staff role
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// RoleAtLeast reports whether role ranks at or above min
func RoleAtLeast(role, min string) bool {
	return roleRank[role] >= roleRank[min] && roleRank[role] > 0
}

func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.StaffID == "" {
		s.StaffID = utils.GenerateSecureID("STF")
	}
	if s.Role == "" {
		s.Role = RoleStaff
	}
	return nil
}

// StaffUpdate carries editable staff fields
type StaffUpdate struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=120"`
	Role       *string `json:"role" validate:"omitempty,oneof=admin manager frontdesk staff"`
	Department *string `json:"department" validate:"omitempty,max=80"`
	Phone      *string `json:"phone" validate:"omitempty,e164"`
	IsActive   *bool   `json:"is_active"`
	Password   *string `json:"password" validate:"omitempty,min=8"`
}

// CreateStaffInput is the payload for adding a staff member
type CreateStaffInput struct {
	Name       string `json:"name" validate:"required,min=2,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role" validate:"omitempty,oneof=admin manager frontdesk staff"`
	Department string `json:"department" validate:"omitempty,max=80"`
	Phone      string `json:"phone" validate:"omitempty,e164"`
}
