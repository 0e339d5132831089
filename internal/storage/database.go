package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/guestvoice/guestvoice-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatabaseStore implements Store over GORM (PostgreSQL in production)
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new GORM-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// AllModels lists every persisted model, in migration order
func AllModels() []interface{} {
	return []interface{}{
		&models.Tenant{},
		&models.Staff{},
		&models.Call{},
		&models.Transcript{},
		&models.Request{},
		&models.Message{},
		&models.Invoice{},
		&models.UsageRecord{},
		&models.OTP{},
	}
}

// AutoMigrate creates or updates the schema
func (s *DatabaseStore) AutoMigrate() error {
	return s.db.AutoMigrate(AllModels()...)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") {
		return ErrDuplicate
	}
	return err
}

func (s *DatabaseStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Tenant operations

func (s *DatabaseStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	return translate(s.conn(ctx).Create(tenant).Error)
}

func (s *DatabaseStore) CreateTenantWithAdmin(ctx context.Context, tenant *models.Tenant, admin *models.Staff) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		admin.TenantID = tenant.TenantID
		return tx.Create(admin).Error
	})
	return translate(err)
}

func (s *DatabaseStore) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.conn(ctx).Where("tenant_id = ?", tenantID).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *DatabaseStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.conn(ctx).Where("slug = ?", slug).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *DatabaseStore) GetTenantByVoiceNumber(ctx context.Context, number string) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.conn(ctx).Where("voice_number = ?", number).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *DatabaseStore) ListTenants(ctx context.Context, filter models.TenantFilter) ([]*models.Tenant, int64, error) {
	q := s.conn(ctx).Model(&models.Tenant{})
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR slug LIKE ?", like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := pageBounds(filter.Page, filter.Limit)
	var tenants []*models.Tenant
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

func (s *DatabaseStore) ListActiveTenants(ctx context.Context) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	err := s.conn(ctx).Where("is_active = ?", true).Order("id").Find(&tenants).Error
	return tenants, err
}

func (s *DatabaseStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	res := s.conn(ctx).Save(tenant)
	if res.Error != nil {
		return translate(res.Error)
	}
	return nil
}

func (s *DatabaseStore) DeleteTenant(ctx context.Context, tenantID string) error {
	res := s.conn(ctx).Where("tenant_id = ?", tenantID).Delete(&models.Tenant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Staff operations

func (s *DatabaseStore) CreateStaff(ctx context.Context, staff *models.Staff) error {
	return translate(s.conn(ctx).Create(staff).Error)
}

func (s *DatabaseStore) GetStaff(ctx context.Context, tenantID, staffID string) (*models.Staff, error) {
	var st models.Staff
	if err := s.conn(ctx).Where("tenant_id = ? AND staff_id = ?", tenantID, staffID).First(&st).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *DatabaseStore) GetStaffByEmail(ctx context.Context, tenantID, email string) (*models.Staff, error) {
	var st models.Staff
	if err := s.conn(ctx).Where("tenant_id = ? AND email = ?", tenantID, email).First(&st).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *DatabaseStore) ListStaff(ctx context.Context, tenantID string) ([]*models.Staff, error) {
	var staff []*models.Staff
	err := s.conn(ctx).Where("tenant_id = ?", tenantID).Order("id").Find(&staff).Error
	return staff, err
}

func (s *DatabaseStore) CountActiveStaff(ctx context.Context, tenantID string) (int, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Staff{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Count(&count).Error
	return int(count), err
}

func (s *DatabaseStore) UpdateStaff(ctx context.Context, staff *models.Staff) error {
	res := s.conn(ctx).Where("tenant_id = ?", staff.TenantID).Save(staff)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Call operations

func (s *DatabaseStore) CreateCall(ctx context.Context, call *models.Call) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(call).Error)
}

func (s *DatabaseStore) GetCall(ctx context.Context, tenantID, callID string) (*models.Call, error) {
	var c models.Call
	if err := s.conn(ctx).Where("tenant_id = ? AND call_id = ?", tenantID, callID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *DatabaseStore) GetCallBySid(ctx context.Context, callID string) (*models.Call, error) {
	var c models.Call
	if err := s.conn(ctx).Where("call_id = ?", callID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *DatabaseStore) ListCalls(ctx context.Context, tenantID string, filter models.CallFilter) ([]*models.Call, int64, error) {
	q := s.conn(ctx).Model(&models.Call{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		q = q.Where("started_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("started_at < ?", *filter.To)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := pageBounds(filter.Page, filter.Limit)
	var calls []*models.Call
	if err := q.Order("started_at DESC").Offset(offset).Limit(limit).Find(&calls).Error; err != nil {
		return nil, 0, err
	}
	return calls, total, nil
}

func (s *DatabaseStore) UpdateCall(ctx context.Context, call *models.Call) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Save(call).Error)
}

func (s *DatabaseStore) AddTranscript(ctx context.Context, t *models.Transcript) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var call models.Call
		if err := tx.Select("id").Where("tenant_id = ? AND call_id = ?", t.TenantID, t.CallID).First(&call).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Transcript{}).Where("call_id = ?", t.CallID).Count(&count).Error; err != nil {
			return err
		}
		t.Sequence = int(count) + 1
		if t.SpokenAt.IsZero() {
			t.SpokenAt = time.Now()
		}
		return tx.Create(t).Error
	})
	return translate(err)
}

func (s *DatabaseStore) ListTranscripts(ctx context.Context, tenantID, callID string) ([]*models.Transcript, error) {
	if _, err := s.GetCall(ctx, tenantID, callID); err != nil {
		return nil, err
	}
	var out []*models.Transcript
	err := s.conn(ctx).Where("tenant_id = ? AND call_id = ?", tenantID, callID).Order("sequence").Find(&out).Error
	return out, err
}

// Request operations

func (s *DatabaseStore) CreateRequest(ctx context.Context, req *models.Request) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(req).Error)
}

func (s *DatabaseStore) GetRequest(ctx context.Context, tenantID, requestID string) (*models.Request, error) {
	var r models.Request
	if err := s.conn(ctx).Where("tenant_id = ? AND request_id = ?", tenantID, requestID).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *DatabaseStore) ListRequests(ctx context.Context, tenantID string, filter models.RequestFilter) ([]*models.Request, int64, error) {
	q := s.conn(ctx).Model(&models.Request{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.RoomNumber != "" {
		q = q.Where("room_number = ?", filter.RoomNumber)
	}
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := pageBounds(filter.Page, filter.Limit)
	var reqs []*models.Request
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (s *DatabaseStore) UpdateRequest(ctx context.Context, req *models.Request) error {
	res := s.conn(ctx).Omit(clause.Associations).Where("tenant_id = ?", req.TenantID).Save(req)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DatabaseStore) GetStaleRequests(ctx context.Context, cutoff time.Time) ([]*models.Request, error) {
	var reqs []*models.Request
	err := s.conn(ctx).
		Where("status = ? AND created_at < ?", models.RequestStatusPending, cutoff).
		Where("escalated_at IS NULL OR escalated_at < ?", cutoff).
		Order("id").
		Find(&reqs).Error
	return reqs, err
}

func (s *DatabaseStore) AddMessage(ctx context.Context, msg *models.Message) error {
	if _, err := s.GetRequest(ctx, msg.TenantID, msg.RequestID); err != nil {
		return err
	}
	return translate(s.conn(ctx).Create(msg).Error)
}

func (s *DatabaseStore) ListMessages(ctx context.Context, tenantID, requestID string) ([]*models.Message, error) {
	if _, err := s.GetRequest(ctx, tenantID, requestID); err != nil {
		return nil, err
	}
	var out []*models.Message
	err := s.conn(ctx).Where("tenant_id = ? AND request_id = ?", tenantID, requestID).Order("id").Find(&out).Error
	return out, err
}

// Billing operations

func (s *DatabaseStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return translate(s.conn(ctx).Create(inv).Error)
}

func (s *DatabaseStore) GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.conn(ctx).Where("invoice_id = ?", invoiceID).First(&inv).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (s *DatabaseStore) ListInvoices(ctx context.Context, tenantID string) ([]*models.Invoice, error) {
	var out []*models.Invoice
	err := s.conn(ctx).Where("tenant_id = ?", tenantID).Order("period_start DESC").Find(&out).Error
	return out, err
}

func (s *DatabaseStore) ListOpenInvoices(ctx context.Context, createdBefore time.Time) ([]*models.Invoice, error) {
	var out []*models.Invoice
	err := s.conn(ctx).Where("status = ? AND created_at < ?", models.InvoiceOpen, createdBefore).Order("id").Find(&out).Error
	return out, err
}

func (s *DatabaseStore) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	return translate(s.conn(ctx).Save(inv).Error)
}

func (s *DatabaseStore) IncrementUsage(ctx context.Context, tenantID, period string, delta models.UsageDelta) (*models.UsageRecord, error) {
	rec := &models.UsageRecord{
		TenantID: tenantID,
		Period:   period,
		Calls:    delta.Calls,
		Minutes:  delta.Minutes,
		Requests: delta.Requests,
	}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"calls":      gorm.Expr("usage_records.calls + ?", delta.Calls),
			"minutes":    gorm.Expr("usage_records.minutes + ?", delta.Minutes),
			"requests":   gorm.Expr("usage_records.requests + ?", delta.Requests),
			"updated_at": time.Now(),
		}),
	}).Create(rec).Error
	if err != nil {
		return nil, err
	}
	return s.GetUsage(ctx, tenantID, period)
}

func (s *DatabaseStore) GetUsage(ctx context.Context, tenantID, period string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	err := s.conn(ctx).Where("tenant_id = ? AND period = ?", tenantID, period).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UsageRecord{TenantID: tenantID, Period: period}, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// OTP operations

func (s *DatabaseStore) CreateOTP(ctx context.Context, otp *models.OTP) error {
	return s.conn(ctx).Create(otp).Error
}

func (s *DatabaseStore) GetActiveOTP(ctx context.Context, tenantID, email, purpose string) (*models.OTP, error) {
	var otp models.OTP
	err := s.conn(ctx).
		Where("tenant_id = ? AND email = ? AND purpose = ? AND is_used = ? AND expires_at > ?",
			tenantID, email, purpose, false, time.Now()).
		Order("id DESC").
		First(&otp).Error
	if err != nil {
		return nil, translate(err)
	}
	return &otp, nil
}

func (s *DatabaseStore) UpdateOTP(ctx context.Context, otp *models.OTP) error {
	return s.conn(ctx).Save(otp).Error
}

func (s *DatabaseStore) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).Unscoped().Where("expires_at < ? OR is_used = ?", now, true).Delete(&models.OTP{})
	return res.RowsAffected, res.Error
}

// Analytics operations

type groupCount struct {
	Label string
	Count int
}

func (s *DatabaseStore) GetDashboardStats(ctx context.Context, tenantID string, now time.Time) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		RequestsByStatus: map[string]int{},
		RequestsByType:   map[string]int{},
		GeneratedAt:      now,
	}
	db := s.conn(ctx)
	calls := func() *gorm.DB { return db.Model(&models.Call{}).Where("tenant_id = ?", tenantID) }

	var n int64
	if err := calls().Where("started_at >= ?", startOfDay(now).UTC()).Count(&n).Error; err != nil {
		return nil, err
	}
	stats.CallsToday = int(n)

	if err := calls().Where("started_at >= ?", startOfMonth(now).UTC()).Count(&n).Error; err != nil {
		return nil, err
	}
	stats.CallsThisMonth = int(n)

	if err := calls().Where("status IN ?", []string{models.CallStatusRinging, models.CallStatusInProgress}).Count(&n).Error; err != nil {
		return nil, err
	}
	stats.ActiveCalls = int(n)

	var avg *float64
	if err := calls().Where("status = ?", models.CallStatusCompleted).
		Select("AVG(duration_sec)").Row().Scan(&avg); err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AverageCallDuration = *avg
	}

	requests := func() *gorm.DB { return db.Model(&models.Request{}).Where("tenant_id = ?", tenantID) }

	var rows []groupCount
	if err := requests().Select("status AS label, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.RequestsByStatus[r.Label] = r.Count
	}

	rows = nil
	if err := requests().Select("type AS label, COUNT(*) AS count").Group("type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.RequestsByType[r.Label] = r.Count
	}

	if err := requests().Where("priority = ? AND status IN ?", models.PriorityUrgent,
		[]string{models.RequestStatusPending, models.RequestStatusInProgress}).Count(&n).Error; err != nil {
		return nil, err
	}
	stats.OpenUrgentRequests = int(n)

	return stats, nil
}

func (s *DatabaseStore) GetDigestStats(ctx context.Context, tenantID string, from, to time.Time) (*models.DigestStats, error) {
	stats := &models.DigestStats{TenantID: tenantID}
	db := s.conn(ctx)

	var n int64
	if err := db.Model(&models.Call{}).
		Where("tenant_id = ? AND started_at >= ? AND started_at < ?", tenantID, from, to).
		Count(&n).Error; err != nil {
		return nil, err
	}
	stats.Calls = int(n)

	requests := func() *gorm.DB { return db.Model(&models.Request{}).Where("tenant_id = ?", tenantID) }

	if err := requests().Where("created_at >= ? AND created_at < ?", from, to).Count(&n).Error; err != nil {
		return nil, err
	}
	stats.RequestsCreated = int(n)

	if err := requests().Where("completed_at >= ? AND completed_at < ?", from, to).Count(&n).Error; err != nil {
		return nil, err
	}
	stats.RequestsCompleted = int(n)

	if err := requests().Where("status IN ?", []string{models.RequestStatusPending, models.RequestStatusInProgress}).
		Count(&n).Error; err != nil {
		return nil, err
	}
	stats.RequestsOpen = int(n)

	return stats, nil
}

func (s *DatabaseStore) GetPlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	stats := &models.PlatformStats{
		TenantsByPlan:   map[string]int{},
		TenantsByStatus: map[string]int{},
	}
	db := s.conn(ctx)

	var n int64
	if err := db.Model(&models.Tenant{}).Count(&n).Error; err != nil {
		return nil, err
	}
	stats.TotalTenants = int(n)

	if err := db.Model(&models.Tenant{}).Where("is_active = ?", true).Count(&n).Error; err != nil {
		return nil, err
	}
	stats.ActiveTenants = int(n)

	var rows []groupCount
	if err := db.Model(&models.Tenant{}).Select("plan AS label, COUNT(*) AS count").Group("plan").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.TenantsByPlan[r.Label] = r.Count
	}

	rows = nil
	if err := db.Model(&models.Tenant{}).Select("subscription_status AS label, COUNT(*) AS count").
		Group("subscription_status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.TenantsByStatus[r.Label] = r.Count
	}

	var open struct {
		Count int
		Total int64
	}
	if err := db.Model(&models.Invoice{}).Where("status = ?", models.InvoiceOpen).
		Select("COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS total").Scan(&open).Error; err != nil {
		return nil, err
	}
	stats.OpenInvoices = open.Count
	stats.OpenInvoiceCents = open.Total

	return stats, nil
}

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
