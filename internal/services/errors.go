package services

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrTenantSuspended    = errors.New("hotel account is suspended")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrLimitReached       = errors.New("plan limit reached")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrRoleNotAllowed     = errors.New("role not allowed")
	ErrSelfDeactivation   = errors.New("cannot deactivate your own account")
	ErrDowngradeBlocked   = errors.New("current staff exceeds the plan limit")
	ErrInvalidPlan        = errors.New("unknown plan")
	ErrInvalidSlug        = errors.New("invalid slug")
	ErrAssigneeInvalid    = errors.New("assignee must be active staff of this hotel")
	ErrNotConfigured      = errors.New("provider not configured")
	ErrInvalidPeriod      = errors.New("period must be YYYY-MM")
	ErrAlreadyCanceled    = errors.New("subscription already canceled")
)
