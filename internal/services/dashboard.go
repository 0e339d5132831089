package services

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

// DashboardService serves the overview numbers and the daily digest
type DashboardService struct {
	store    storage.Store
	notifier *Notifier
	now      func() time.Time
}

func NewDashboardService(store storage.Store, notifier *Notifier) *DashboardService {
	return &DashboardService{store: store, notifier: notifier, now: time.Now}
}

// Stats counts "today" and "this month" on the hotel's own calendar
func (s *DashboardService) Stats(ctx context.Context, tenantID string) (*models.DashboardStats, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.GetDashboardStats(ctx, tenantID, s.now().In(tenantLocation(tenant.Timezone)))
}

func (s *DashboardService) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	return s.store.GetPlatformStats(ctx)
}

// SendDigests emails each active hotel a summary of the previous day in its own timezone.
// Returns the number of digests handed to the notifier.
func (s *DashboardService) SendDigests(ctx context.Context, now time.Time) (int, error) {
	tenants, err := s.store.ListActiveTenants(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, t := range tenants {
		if t.Email == "" || t.Slug == PlatformSlug {
			continue
		}
		from, to := previousDay(now, t.Timezone)
		stats, err := s.store.GetDigestStats(ctx, t.TenantID, from, to)
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to build digest",
				zap.String("tenant_id", t.TenantID), zap.Error(err))
			continue
		}
		s.notifier.Email(ctx, t.Email, TemplateDailyDigest, map[string]string{
			"hotel_name":         t.Name,
			"date":               from.Format("2006-01-02"),
			"calls":              strconv.Itoa(stats.Calls),
			"requests_created":   strconv.Itoa(stats.RequestsCreated),
			"requests_completed": strconv.Itoa(stats.RequestsCompleted),
			"requests_open":      strconv.Itoa(stats.RequestsOpen),
		})
		sent++
	}
	return sent, nil
}

// previousDay returns the bounds of yesterday in the named timezone (UTC if unknown)
func previousDay(now time.Time, timezone string) (time.Time, time.Time) {
	loc := tenantLocation(timezone)
	local := now.In(loc)
	y, m, d := local.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return end.AddDate(0, 0, -1), end
}

func tenantLocation(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
