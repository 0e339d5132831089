package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/realtime"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
	"github.com/guestvoice/guestvoice-backend/internal/telemetry"
)

// InvoiceGracePeriod is how long an invoice may stay open before the tenant is past due
const InvoiceGracePeriod = 14 * 24 * time.Hour

// BillingService keeps subscription and invoice records. No payment provider is called.
type BillingService struct {
	store     storage.Store
	broadcast Broadcaster
	now       func() time.Time
}

func NewBillingService(store storage.Store, broadcast Broadcaster) *BillingService {
	return &BillingService{
		store:     store,
		broadcast: orNop(broadcast),
		now:       time.Now,
	}
}

func (s *BillingService) Plans() []models.Plan {
	return models.Plans()
}

// GetSubscription returns the tenant's plan with this month's usage
func (s *BillingService) GetSubscription(ctx context.Context, tenantID string) (*models.Subscription, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	usage, err := s.store.GetUsage(ctx, tenantID, models.PeriodOf(s.now()))
	if err != nil {
		return nil, err
	}
	return subscriptionOf(tenant, usage), nil
}

// ChangePlan moves the tenant to another plan. A trial converts to active.
func (s *BillingService) ChangePlan(ctx context.Context, tenantID, planName string) (*models.Subscription, error) {
	ctx, span := telemetry.StartSpan(ctx, "billing.change_plan")
	defer span.End()

	plan, ok := models.LookupPlan(planName)
	if !ok {
		return nil, ErrInvalidPlan
	}
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	active, err := s.store.CountActiveStaff(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !plan.StaffAllowed(active) {
		return nil, ErrDowngradeBlocked
	}

	previous := tenant.Plan
	tenant.Plan = plan.Name
	switch tenant.SubscriptionStatus {
	case models.SubscriptionTrialing, models.SubscriptionCanceled:
		tenant.SubscriptionStatus = models.SubscriptionActive
		tenant.TrialEndsAt = nil
	}
	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Plan changed",
		zap.String("tenant_id", tenantID),
		zap.String("from", previous),
		zap.String("to", plan.Name))

	return s.publish(ctx, tenant)
}

// Cancel ends the subscription. Calls stop being answered; staff keep dashboard access.
func (s *BillingService) Cancel(ctx context.Context, tenantID string) (*models.Subscription, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.SubscriptionStatus == models.SubscriptionCanceled {
		return nil, ErrAlreadyCanceled
	}
	tenant.SubscriptionStatus = models.SubscriptionCanceled
	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Subscription canceled", zap.String("tenant_id", tenantID))
	return s.publish(ctx, tenant)
}

// Usage returns the counters for period (YYYY-MM), defaulting to the current month
func (s *BillingService) Usage(ctx context.Context, tenantID, period string) (*models.UsageRecord, error) {
	if period == "" {
		period = models.PeriodOf(s.now())
	}
	if _, _, err := models.PeriodBounds(period); err != nil {
		return nil, ErrInvalidPeriod
	}
	return s.store.GetUsage(ctx, tenantID, period)
}

func (s *BillingService) ListInvoices(ctx context.Context, tenantID string) ([]*models.Invoice, error) {
	return s.store.ListInvoices(ctx, tenantID)
}

// MarkPaid records payment of an invoice and lifts past_due
func (s *BillingService) MarkPaid(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceOpen {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	inv.Status = models.InvoicePaid
	inv.PaidAt = &now
	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	tenant, err := s.store.GetTenant(ctx, inv.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.SubscriptionStatus == models.SubscriptionPastDue {
		tenant.SubscriptionStatus = models.SubscriptionActive
		if err := s.store.UpdateTenant(ctx, tenant); err != nil {
			return nil, err
		}
		if _, err := s.publish(ctx, tenant); err != nil {
			return nil, err
		}
	}

	logger.FromContext(ctx).Info("Invoice marked paid",
		zap.String("invoice_id", invoiceID),
		zap.String("tenant_id", inv.TenantID))
	return inv, nil
}

// RunBillingCycle issues last month's invoices on the 1st, flags overdue tenants
// and ends expired trials. Safe to run more than once for the same day.
func (s *BillingService) RunBillingCycle(ctx context.Context, now time.Time) (*models.BillingCycleResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "billing.cycle")
	defer span.End()
	log := logger.FromContext(ctx)

	result := &models.BillingCycleResult{}
	tenants, err := s.store.ListActiveTenants(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if now.UTC().Day() == 1 {
		start, end, _ := models.PeriodBounds(models.PeriodOf(now.UTC().AddDate(0, 0, -1)))
		for _, t := range tenants {
			if !billable(t) {
				continue
			}
			plan := t.Limits()
			inv := &models.Invoice{
				TenantID:    t.TenantID,
				Plan:        plan.Name,
				PeriodStart: start,
				PeriodEnd:   end,
				AmountCents: plan.PriceCents,
				Currency:    plan.Currency,
			}
			if err := s.store.CreateInvoice(ctx, inv); err != nil {
				if errors.Is(err, storage.ErrDuplicate) {
					continue
				}
				log.Error("Failed to create invoice", zap.String("tenant_id", t.TenantID), zap.Error(err))
				continue
			}
			result.Invoiced++
		}
	}

	overdue, err := s.store.ListOpenInvoices(ctx, now.Add(-InvoiceGracePeriod))
	if err != nil {
		return nil, err
	}
	flagged := make(map[string]bool)
	for _, inv := range overdue {
		if flagged[inv.TenantID] {
			continue
		}
		flagged[inv.TenantID] = true
		t, err := s.store.GetTenant(ctx, inv.TenantID)
		if err != nil || t.SubscriptionStatus != models.SubscriptionActive {
			continue
		}
		t.SubscriptionStatus = models.SubscriptionPastDue
		if err := s.store.UpdateTenant(ctx, t); err != nil {
			log.Error("Failed to mark tenant past due", zap.String("tenant_id", t.TenantID), zap.Error(err))
			continue
		}
		s.publish(ctx, t)
		result.PastDue++
	}

	for _, t := range tenants {
		if t.SubscriptionStatus != models.SubscriptionTrialing || t.TrialEndsAt == nil || t.TrialEndsAt.After(now) {
			continue
		}
		if t.Limits().PriceCents == 0 {
			t.SubscriptionStatus = models.SubscriptionActive
		} else {
			t.SubscriptionStatus = models.SubscriptionPastDue
		}
		if err := s.store.UpdateTenant(ctx, t); err != nil {
			log.Error("Failed to end trial", zap.String("tenant_id", t.TenantID), zap.Error(err))
			continue
		}
		s.publish(ctx, t)
		result.TrialsEnded++
	}

	log.Info("Billing cycle finished",
		zap.Int("invoiced", result.Invoiced),
		zap.Int("past_due", result.PastDue),
		zap.Int("trials_ended", result.TrialsEnded))
	return result, nil
}

func (s *BillingService) publish(ctx context.Context, tenant *models.Tenant) (*models.Subscription, error) {
	usage, err := s.store.GetUsage(ctx, tenant.TenantID, models.PeriodOf(s.now()))
	if err != nil {
		return nil, err
	}
	sub := subscriptionOf(tenant, usage)
	s.broadcast.Broadcast(ctx, tenant.TenantID, realtime.SubscriptionEvent, sub)
	return sub, nil
}

// billable reports whether a tenant owes a monthly invoice
func billable(t *models.Tenant) bool {
	if t.Slug == PlatformSlug || t.Limits().PriceCents == 0 {
		return false
	}
	switch t.SubscriptionStatus {
	case models.SubscriptionActive, models.SubscriptionPastDue:
		return true
	}
	return false
}

func subscriptionOf(t *models.Tenant, usage *models.UsageRecord) *models.Subscription {
	return &models.Subscription{
		TenantID:    t.TenantID,
		Plan:        t.Limits(),
		Status:      t.SubscriptionStatus,
		TrialEndsAt: t.TrialEndsAt,
		Usage:       usage,
	}
}
