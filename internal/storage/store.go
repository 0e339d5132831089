package storage

import (
	"context"
	"errors"
	"time"

	"github.com/guestvoice/guestvoice-backend/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another tenant
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("record already exists")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store defines the interface for storage operations.
// Every tenant-owned lookup takes the caller's tenant ID; rows of other tenants are reported as ErrNotFound.
type Store interface {
	// Tenant operations
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	CreateTenantWithAdmin(ctx context.Context, tenant *models.Tenant, admin *models.Staff) error
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	GetTenantByVoiceNumber(ctx context.Context, number string) (*models.Tenant, error)
	ListTenants(ctx context.Context, filter models.TenantFilter) ([]*models.Tenant, int64, error)
	ListActiveTenants(ctx context.Context) ([]*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	DeleteTenant(ctx context.Context, tenantID string) error

	// Staff operations
	CreateStaff(ctx context.Context, staff *models.Staff) error
	GetStaff(ctx context.Context, tenantID, staffID string) (*models.Staff, error)
	GetStaffByEmail(ctx context.Context, tenantID, email string) (*models.Staff, error)
	ListStaff(ctx context.Context, tenantID string) ([]*models.Staff, error)
	CountActiveStaff(ctx context.Context, tenantID string) (int, error)
	UpdateStaff(ctx context.Context, staff *models.Staff) error

	// Call operations
	CreateCall(ctx context.Context, call *models.Call) error
	GetCall(ctx context.Context, tenantID, callID string) (*models.Call, error)
	GetCallBySid(ctx context.Context, callID string) (*models.Call, error)
	ListCalls(ctx context.Context, tenantID string, filter models.CallFilter) ([]*models.Call, int64, error)
	UpdateCall(ctx context.Context, call *models.Call) error
	AddTranscript(ctx context.Context, t *models.Transcript) error
	ListTranscripts(ctx context.Context, tenantID, callID string) ([]*models.Transcript, error)

	// Request operations
	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, tenantID, requestID string) (*models.Request, error)
	ListRequests(ctx context.Context, tenantID string, filter models.RequestFilter) ([]*models.Request, int64, error)
	UpdateRequest(ctx context.Context, req *models.Request) error
	GetStaleRequests(ctx context.Context, cutoff time.Time) ([]*models.Request, error)
	AddMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, tenantID, requestID string) ([]*models.Message, error)

	// Billing operations
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, tenantID string) ([]*models.Invoice, error)
	ListOpenInvoices(ctx context.Context, createdBefore time.Time) ([]*models.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	IncrementUsage(ctx context.Context, tenantID, period string, delta models.UsageDelta) (*models.UsageRecord, error)
	GetUsage(ctx context.Context, tenantID, period string) (*models.UsageRecord, error)

	// OTP operations
	CreateOTP(ctx context.Context, otp *models.OTP) error
	GetActiveOTP(ctx context.Context, tenantID, email, purpose string) (*models.OTP, error)
	UpdateOTP(ctx context.Context, otp *models.OTP) error
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)

	// Analytics operations (dashboard, digest and scheduled jobs)
	GetDashboardStats(ctx context.Context, tenantID string, now time.Time) (*models.DashboardStats, error)
	GetDigestStats(ctx context.Context, tenantID string, from, to time.Time) (*models.DigestStats, error)
	GetPlatformStats(ctx context.Context) (*models.PlatformStats, error)

	Ping(ctx context.Context) error
}

// pageBounds clamps page/limit and returns the row offset
func pageBounds(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, (page - 1) * limit
}

// PageBounds exposes the clamping rules to handlers building pagination metadata
func PageBounds(page, limit int) (int, int) {
	p, l, _ := pageBounds(page, limit)
	return p, l
}

// startOfDay and startOfMonth use the calendar of t's location
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
