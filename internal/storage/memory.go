package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/guestvoice/guestvoice-backend/internal/models"
)

// MemoryStore holds all data in memory (USE_MEMORY_STORE and tests)
type MemoryStore struct {
	mu sync.RWMutex

	tenants     map[string]*models.Tenant // by TenantID
	staff       map[string]*models.Staff  // by StaffID
	calls       map[string]*models.Call   // by CallID
	transcripts map[string][]*models.Transcript
	requests    map[string]*models.Request // by RequestID
	messages    map[string][]*models.Message
	invoices    map[string]*models.Invoice // by InvoiceID
	usage       map[string]*models.UsageRecord
	otps        []*models.OTP

	// Counter for gorm.Model IDs
	nextID uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:     make(map[string]*models.Tenant),
		staff:       make(map[string]*models.Staff),
		calls:       make(map[string]*models.Call),
		transcripts: make(map[string][]*models.Transcript),
		requests:    make(map[string]*models.Request),
		messages:    make(map[string][]*models.Message),
		invoices:    make(map[string]*models.Invoice),
		usage:       make(map[string]*models.UsageRecord),
	}
}

func (m *MemoryStore) stamp(model *uint, created, updated *time.Time) {
	m.nextID++
	*model = m.nextID
	now := time.Now()
	*created = now
	*updated = now
}

// Tenant operations

func (m *MemoryStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createTenantLocked(tenant)
}

func (m *MemoryStore) createTenantLocked(tenant *models.Tenant) error {
	if err := tenant.BeforeCreate(nil); err != nil {
		return err
	}
	for _, t := range m.tenants {
		if t.Slug == tenant.Slug || t.TenantID == tenant.TenantID {
			return ErrDuplicate
		}
		if tenant.VoiceNumber != nil && t.VoiceNumber != nil && *t.VoiceNumber == *tenant.VoiceNumber {
			return ErrDuplicate
		}
	}
	m.stamp(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
	c := *tenant
	m.tenants[tenant.TenantID] = &c
	return nil
}

func (m *MemoryStore) CreateTenantWithAdmin(ctx context.Context, tenant *models.Tenant, admin *models.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.createTenantLocked(tenant); err != nil {
		return err
	}
	admin.TenantID = tenant.TenantID
	if err := m.createStaffLocked(admin); err != nil {
		delete(m.tenants, tenant.TenantID)
		return err
	}
	return nil
}

func (m *MemoryStore) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

func (m *MemoryStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tenants {
		if t.Slug == slug {
			c := *t
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetTenantByVoiceNumber(ctx context.Context, number string) (*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tenants {
		if t.VoiceNumber != nil && *t.VoiceNumber == number {
			c := *t
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListTenants(ctx context.Context, filter models.TenantFilter) ([]*models.Tenant, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []*models.Tenant
	for _, t := range m.tenants {
		if filter.IsActive != nil && t.IsActive != *filter.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) && !strings.Contains(t.Slug, search) {
			continue
		}
		c := *t
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	_, limit, offset := pageBounds(filter.Page, filter.Limit)
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (m *MemoryStore) ListActiveTenants(ctx context.Context) ([]*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Tenant
	for _, t := range m.tenants {
		if t.IsActive {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[tenant.TenantID]; !ok {
		return ErrNotFound
	}
	for id, t := range m.tenants {
		if id == tenant.TenantID {
			continue
		}
		if t.Slug == tenant.Slug {
			return ErrDuplicate
		}
		if tenant.VoiceNumber != nil && t.VoiceNumber != nil && *t.VoiceNumber == *tenant.VoiceNumber {
			return ErrDuplicate
		}
	}
	tenant.UpdatedAt = time.Now()
	c := *tenant
	m.tenants[tenant.TenantID] = &c
	return nil
}

func (m *MemoryStore) DeleteTenant(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[tenantID]; !ok {
		return ErrNotFound
	}
	delete(m.tenants, tenantID)
	return nil
}

// Staff operations

func (m *MemoryStore) CreateStaff(ctx context.Context, staff *models.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createStaffLocked(staff)
}

func (m *MemoryStore) createStaffLocked(staff *models.Staff) error {
	if err := staff.BeforeCreate(nil); err != nil {
		return err
	}
	for _, s := range m.staff {
		if s.StaffID == staff.StaffID || (s.TenantID == staff.TenantID && s.Email == staff.Email) {
			return ErrDuplicate
		}
	}
	m.stamp(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
	c := *staff
	m.staff[staff.StaffID] = &c
	return nil
}

func (m *MemoryStore) GetStaff(ctx context.Context, tenantID, staffID string) (*models.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.staff[staffID]
	if !ok || s.TenantID != tenantID {
		return nil, ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *MemoryStore) GetStaffByEmail(ctx context.Context, tenantID, email string) (*models.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.staff {
		if s.TenantID == tenantID && s.Email == email {
			c := *s
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListStaff(ctx context.Context, tenantID string) ([]*models.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Staff
	for _, s := range m.staff {
		if s.TenantID == tenantID {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CountActiveStaff(ctx context.Context, tenantID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, s := range m.staff {
		if s.TenantID == tenantID && s.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) UpdateStaff(ctx context.Context, staff *models.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.staff[staff.StaffID]
	if !ok || existing.TenantID != staff.TenantID {
		return ErrNotFound
	}
	for id, s := range m.staff {
		if id != staff.StaffID && s.TenantID == staff.TenantID && s.Email == staff.Email {
			return ErrDuplicate
		}
	}
	staff.UpdatedAt = time.Now()
	c := *staff
	m.staff[staff.StaffID] = &c
	return nil
}

// Call operations

func (m *MemoryStore) CreateCall(ctx context.Context, call *models.Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.calls[call.CallID]; exists {
		return ErrDuplicate
	}
	if err := call.BeforeCreate(nil); err != nil {
		return err
	}
	m.stamp(&call.ID, &call.CreatedAt, &call.UpdatedAt)
	c := *call
	c.Transcripts = nil
	m.calls[call.CallID] = &c
	return nil
}

func (m *MemoryStore) GetCall(ctx context.Context, tenantID, callID string) (*models.Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	call, ok := m.calls[callID]
	if !ok || call.TenantID != tenantID {
		return nil, ErrNotFound
	}
	c := *call
	return &c, nil
}

func (m *MemoryStore) GetCallBySid(ctx context.Context, callID string) (*models.Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	call, ok := m.calls[callID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *call
	return &c, nil
}

func (m *MemoryStore) ListCalls(ctx context.Context, tenantID string, filter models.CallFilter) ([]*models.Call, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.Call
	for _, call := range m.calls {
		if call.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && call.Status != filter.Status {
			continue
		}
		if filter.From != nil && call.StartedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !call.StartedAt.Before(*filter.To) {
			continue
		}
		c := *call
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartedAt.After(matched[j].StartedAt) })

	_, limit, offset := pageBounds(filter.Page, filter.Limit)
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (m *MemoryStore) UpdateCall(ctx context.Context, call *models.Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calls[call.CallID]; !ok {
		return ErrNotFound
	}
	call.UpdatedAt = time.Now()
	c := *call
	c.Transcripts = nil
	m.calls[call.CallID] = &c
	return nil
}

func (m *MemoryStore) AddTranscript(ctx context.Context, t *models.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	call, ok := m.calls[t.CallID]
	if !ok || call.TenantID != t.TenantID {
		return ErrNotFound
	}
	t.Sequence = len(m.transcripts[t.CallID]) + 1
	if t.SpokenAt.IsZero() {
		t.SpokenAt = time.Now()
	}
	m.stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	c := *t
	m.transcripts[t.CallID] = append(m.transcripts[t.CallID], &c)
	return nil
}

func (m *MemoryStore) ListTranscripts(ctx context.Context, tenantID, callID string) ([]*models.Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	call, ok := m.calls[callID]
	if !ok || call.TenantID != tenantID {
		return nil, ErrNotFound
	}
	out := make([]*models.Transcript, 0, len(m.transcripts[callID]))
	for _, t := range m.transcripts[callID] {
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

// Request operations

func (m *MemoryStore) CreateRequest(ctx context.Context, req *models.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := req.BeforeCreate(nil); err != nil {
		return err
	}
	if _, exists := m.requests[req.RequestID]; exists {
		return ErrDuplicate
	}
	m.stamp(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	c := *req
	c.Messages = nil
	m.requests[req.RequestID] = &c
	return nil
}

func (m *MemoryStore) GetRequest(ctx context.Context, tenantID, requestID string) (*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[requestID]
	if !ok || r.TenantID != tenantID {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *MemoryStore) ListRequests(ctx context.Context, tenantID string, filter models.RequestFilter) ([]*models.Request, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.Request
	for _, r := range m.requests {
		if r.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if filter.RoomNumber != "" && r.RoomNumber != filter.RoomNumber {
			continue
		}
		if filter.AssignedTo != "" && r.AssignedTo != filter.AssignedTo {
			continue
		}
		c := *r
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	_, limit, offset := pageBounds(filter.Page, filter.Limit)
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (m *MemoryStore) UpdateRequest(ctx context.Context, req *models.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.requests[req.RequestID]
	if !ok || existing.TenantID != req.TenantID {
		return ErrNotFound
	}
	req.UpdatedAt = time.Now()
	c := *req
	c.Messages = nil
	m.requests[req.RequestID] = &c
	return nil
}

func (m *MemoryStore) GetStaleRequests(ctx context.Context, cutoff time.Time) ([]*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Request
	for _, r := range m.requests {
		if r.Status != models.RequestStatusPending || !r.CreatedAt.Before(cutoff) {
			continue
		}
		if r.EscalatedAt != nil && !r.EscalatedAt.Before(cutoff) {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AddMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[msg.RequestID]
	if !ok || r.TenantID != msg.TenantID {
		return ErrNotFound
	}
	m.stamp(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt)
	c := *msg
	m.messages[msg.RequestID] = append(m.messages[msg.RequestID], &c)
	return nil
}

func (m *MemoryStore) ListMessages(ctx context.Context, tenantID, requestID string) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[requestID]
	if !ok || r.TenantID != tenantID {
		return nil, ErrNotFound
	}
	out := make([]*models.Message, 0, len(m.messages[requestID]))
	for _, msg := range m.messages[requestID] {
		c := *msg
		out = append(out, &c)
	}
	return out, nil
}

// Billing operations

func (m *MemoryStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.invoices {
		if existing.TenantID == inv.TenantID && existing.PeriodStart.Equal(inv.PeriodStart) {
			return ErrDuplicate
		}
	}
	if err := inv.BeforeCreate(nil); err != nil {
		return err
	}
	m.stamp(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	c := *inv
	m.invoices[inv.InvoiceID] = &c
	return nil
}

func (m *MemoryStore) GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *inv
	return &c, nil
}

func (m *MemoryStore) ListInvoices(ctx context.Context, tenantID string) ([]*models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Invoice
	for _, inv := range m.invoices {
		if inv.TenantID == tenantID {
			c := *inv
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	return out, nil
}

func (m *MemoryStore) ListOpenInvoices(ctx context.Context, createdBefore time.Time) ([]*models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Invoice
	for _, inv := range m.invoices {
		if inv.Status == models.InvoiceOpen && inv.CreatedAt.Before(createdBefore) {
			c := *inv
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invoices[inv.InvoiceID]; !ok {
		return ErrNotFound
	}
	inv.UpdatedAt = time.Now()
	c := *inv
	m.invoices[inv.InvoiceID] = &c
	return nil
}

func usageKey(tenantID, period string) string {
	return tenantID + "|" + period
}

func (m *MemoryStore) IncrementUsage(ctx context.Context, tenantID, period string, delta models.UsageDelta) (*models.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := usageKey(tenantID, period)
	rec, ok := m.usage[key]
	if !ok {
		rec = &models.UsageRecord{TenantID: tenantID, Period: period}
		m.stamp(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
		m.usage[key] = rec
	}
	rec.Calls += delta.Calls
	rec.Minutes += delta.Minutes
	rec.Requests += delta.Requests
	rec.UpdatedAt = time.Now()
	c := *rec
	return &c, nil
}

func (m *MemoryStore) GetUsage(ctx context.Context, tenantID, period string) (*models.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.usage[usageKey(tenantID, period)]
	if !ok {
		return &models.UsageRecord{TenantID: tenantID, Period: period}, nil
	}
	c := *rec
	return &c, nil
}

// OTP operations

func (m *MemoryStore) CreateOTP(ctx context.Context, otp *models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stamp(&otp.ID, &otp.CreatedAt, &otp.UpdatedAt)
	c := *otp
	m.otps = append(m.otps, &c)
	return nil
}

func (m *MemoryStore) GetActiveOTP(ctx context.Context, tenantID, email, purpose string) (*models.OTP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	// newest first
	for i := len(m.otps) - 1; i >= 0; i-- {
		o := m.otps[i]
		if o.TenantID == tenantID && o.Email == email && o.Purpose == purpose && !o.IsUsed && !o.Expired(now) {
			c := *o
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateOTP(ctx context.Context, otp *models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, o := range m.otps {
		if o.ID == otp.ID {
			otp.UpdatedAt = time.Now()
			c := *otp
			m.otps[i] = &c
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.otps[:0]
	var removed int64
	for _, o := range m.otps {
		if o.Expired(now) || o.IsUsed {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	m.otps = kept
	return removed, nil
}

// Analytics operations

func (m *MemoryStore) GetDashboardStats(ctx context.Context, tenantID string, now time.Time) (*models.DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.DashboardStats{
		RequestsByStatus: map[string]int{},
		RequestsByType:   map[string]int{},
		GeneratedAt:      now,
	}
	dayStart, monthStart := startOfDay(now), startOfMonth(now)

	var durationTotal, ended int
	for _, c := range m.calls {
		if c.TenantID != tenantID {
			continue
		}
		if !c.StartedAt.Before(dayStart) {
			stats.CallsToday++
		}
		if !c.StartedAt.Before(monthStart) {
			stats.CallsThisMonth++
		}
		if c.Status == models.CallStatusInProgress || c.Status == models.CallStatusRinging {
			stats.ActiveCalls++
		}
		if c.Status == models.CallStatusCompleted {
			durationTotal += c.DurationSec
			ended++
		}
	}
	if ended > 0 {
		stats.AverageCallDuration = float64(durationTotal) / float64(ended)
	}

	for _, r := range m.requests {
		if r.TenantID != tenantID {
			continue
		}
		stats.RequestsByStatus[r.Status]++
		stats.RequestsByType[r.Type]++
		if r.Priority == models.PriorityUrgent && !models.IsTerminal(r.Status) {
			stats.OpenUrgentRequests++
		}
	}
	return stats, nil
}

func (m *MemoryStore) GetDigestStats(ctx context.Context, tenantID string, from, to time.Time) (*models.DigestStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	within := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }

	stats := &models.DigestStats{TenantID: tenantID}
	for _, c := range m.calls {
		if c.TenantID == tenantID && within(c.StartedAt) {
			stats.Calls++
		}
	}
	for _, r := range m.requests {
		if r.TenantID != tenantID {
			continue
		}
		if within(r.CreatedAt) {
			stats.RequestsCreated++
		}
		if r.CompletedAt != nil && within(*r.CompletedAt) {
			stats.RequestsCompleted++
		}
		if !models.IsTerminal(r.Status) {
			stats.RequestsOpen++
		}
	}
	return stats, nil
}

func (m *MemoryStore) GetPlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.PlatformStats{
		TenantsByPlan:   map[string]int{},
		TenantsByStatus: map[string]int{},
	}
	for _, t := range m.tenants {
		stats.TotalTenants++
		if t.IsActive {
			stats.ActiveTenants++
		}
		stats.TenantsByPlan[t.Plan]++
		stats.TenantsByStatus[t.SubscriptionStatus]++
	}
	for _, inv := range m.invoices {
		if inv.Status == models.InvoiceOpen {
			stats.OpenInvoices++
			stats.OpenInvoiceCents += inv.AmountCents
		}
	}
	return stats, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
