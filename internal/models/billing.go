package models

import (
	"time"

	"github.com/guestvoice/guestvoice-backend/internal/utils"
	"gorm.io/gorm"
)

const (
	PlanFree       = "free"
	PlanBasic      = "basic"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"
)

// Plan is a subscription tier. Zero limits mean unlimited.
type Plan struct {
	Name              string `json:"name"`
	PriceCents        int64  `json:"price_cents"`
	Currency          string `json:"currency"`
	MaxStaff          int    `json:"max_staff"`
	MaxMonthlyCalls   int    `json:"max_monthly_calls"`
	MaxMonthlyMinutes int    `json:"max_monthly_minutes"`
}

var plans = []Plan{
	{Name: PlanFree, PriceCents: 0, Currency: "usd", MaxStaff: 3, MaxMonthlyCalls: 50, MaxMonthlyMinutes: 100},
	{Name: PlanBasic, PriceCents: 4900, Currency: "usd", MaxStaff: 10, MaxMonthlyCalls: 500, MaxMonthlyMinutes: 1500},
	{Name: PlanPremium, PriceCents: 14900, Currency: "usd", MaxStaff: 50, MaxMonthlyCalls: 3000, MaxMonthlyMinutes: 10000},
	{Name: PlanEnterprise, PriceCents: 49900, Currency: "usd"},
}

// Plans returns the plan catalog ordered by price
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// LookupPlan finds a plan by name
func LookupPlan(name string) (Plan, bool) {
	for _, p := range plans {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// StaffAllowed reports whether count staff fit the plan
func (p Plan) StaffAllowed(count int) bool {
	return p.MaxStaff == 0 || count <= p.MaxStaff
}

// CallsExhausted reports whether another call would exceed the monthly allowance
func (p Plan) CallsExhausted(used int) bool {
	return p.MaxMonthlyCalls > 0 && used >= p.MaxMonthlyCalls
}

// MinutesExhausted reports whether the monthly minute allowance is used up
func (p Plan) MinutesExhausted(used int) bool {
	return p.MaxMonthlyMinutes > 0 && used >= p.MaxMonthlyMinutes
}

// Invoice is a billing record for one tenant and period
type Invoice struct {
	gorm.Model
	InvoiceID   string     `gorm:"uniqueIndex;not null" json:"invoice_id"`
	TenantID    string     `gorm:"uniqueIndex:idx_invoice_tenant_period;not null" json:"tenant_id"`
	Plan        string     `json:"plan"`
	PeriodStart time.Time  `gorm:"uniqueIndex:idx_invoice_tenant_period" json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `gorm:"default:'usd'" json:"currency"`
	Status      string     `gorm:"default:'open'" json:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

const (
	InvoiceOpen = "open"
	InvoicePaid = "paid"
	InvoiceVoid = "void"
)

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.InvoiceID == "" {
		i.InvoiceID = utils.GenerateSecureID("INV")
	}
	if i.Status == "" {
		i.Status = InvoiceOpen
	}
	if i.Currency == "" {
		i.Currency = "usd"
	}
	return nil
}

// UsageRecord counts billable activity per tenant per month
type UsageRecord struct {
	gorm.Model
	TenantID string `gorm:"uniqueIndex:idx_usage_tenant_period;not null" json:"tenant_id"`
	Period   string `gorm:"uniqueIndex:idx_usage_tenant_period;not null" json:"period"` // YYYY-MM
	Calls    int    `json:"calls"`
	Minutes  int    `json:"minutes"`
	Requests int    `json:"requests"`
}

// UsageDelta is added to a tenant's usage for a period
type UsageDelta struct {
	Calls    int
	Minutes  int
	Requests int
}

// PeriodOf formats t as a usage period key
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodBounds returns the first instant of the period and of the next one
func PeriodBounds(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}

// Subscription is a tenant's plan, status and current usage
type Subscription struct {
	TenantID    string       `json:"tenant_id"`
	Plan        Plan         `json:"plan"`
	Status      string       `json:"status"`
	TrialEndsAt *time.Time   `json:"trial_ends_at,omitempty"`
	Usage       *UsageRecord `json:"usage"`
}

// ChangePlanInput selects a new plan
type ChangePlanInput struct {
	Plan string `json:"plan" validate:"required,oneof=free basic premium enterprise"`
}

// BillingCycleResult reports what one billing run changed
type BillingCycleResult struct {
	Invoiced    int `json:"invoiced"`
	PastDue     int `json:"past_due"`
	TrialsEnded int `json:"trials_ended"`
}
