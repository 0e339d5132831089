package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestvoice/guestvoice-backend/internal/events"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/realtime"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	h := env.signup(t, "Grand Hotel", "grand")

	assert.Equal(t, models.PlanFree, h.Tenant.Plan)
	assert.Equal(t, models.SubscriptionTrialing, h.Tenant.SubscriptionStatus)
	require.NotNil(t, h.Tenant.TrialEndsAt)
	assert.WithinDuration(t, time.Now().Add(models.TrialPeriod), *h.Tenant.TrialEndsAt, time.Minute)
	assert.Equal(t, models.RoleAdmin, h.Admin.Role)
	assert.Equal(t, "UTC", h.Tenant.Timezone)

	sent := env.email.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "admin@grand.test", sent[0].To)
}

func TestSignupSlugRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signup(t, "Grand Hotel", "grand")

	in := models.SignupInput{HotelName: "Grand Two", Slug: "grand", Email: "x@y.test", AdminName: "Al", AdminEmail: "al@y.test", AdminPassword: "password123"}
	_, err := env.tenants.Signup(ctx, in)
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	in.Slug = PlatformSlug
	_, err = env.tenants.Signup(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidSlug)

	in.Slug = ""
	in.HotelName = "The Blue Lagoon"
	token, err := env.tenants.Signup(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "the-blue-lagoon", token.Tenant.Slug)
}

func TestSuspendAndReactivate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := env.signup(t, "Grand Hotel", "grand")

	tenant, err := env.tenants.Suspend(ctx, h.Tenant.TenantID, "terms violation")
	require.NoError(t, err)
	assert.True(t, tenant.Locked())
	assert.Equal(t, "terms violation", tenant.SuspendedReason)
	assert.Contains(t, env.sink.Types(), events.TenantSuspended)
	assert.Contains(t, env.broadcast.Types(), realtime.TenantUpdated)

	sent := env.email.Sent()
	assert.Contains(t, sent[len(sent)-1].Body, "terms violation")

	tenant, err = env.tenants.Reactivate(ctx, h.Tenant.TenantID)
	require.NoError(t, err)
	assert.False(t, tenant.Locked())
	// trial still running
	assert.Equal(t, models.SubscriptionTrialing, tenant.SubscriptionStatus)
	assert.Empty(t, tenant.SuspendedReason)
}

func TestReactivateRestoresSubscriptionStatus(t *testing.T) {
	for _, status := range []string{models.SubscriptionCanceled, models.SubscriptionPastDue, models.SubscriptionActive} {
		t.Run(status, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			h := env.signup(t, "Grand Hotel", "grand")

			stored, err := env.store.GetTenant(ctx, h.Tenant.TenantID)
			require.NoError(t, err)
			stored.Plan = models.PlanBasic
			stored.SubscriptionStatus = status
			require.NoError(t, env.store.UpdateTenant(ctx, stored))

			_, err = env.tenants.Suspend(ctx, h.Tenant.TenantID, "chargeback")
			require.NoError(t, err)
			// a second suspension keeps the original status
			_, err = env.tenants.Suspend(ctx, h.Tenant.TenantID, "still under review")
			require.NoError(t, err)

			tenant, err := env.tenants.Reactivate(ctx, h.Tenant.TenantID)
			require.NoError(t, err)
			assert.Equal(t, status, tenant.SubscriptionStatus)
			assert.Empty(t, tenant.StatusBeforeSuspension)

			stored, err = env.store.GetTenant(ctx, h.Tenant.TenantID)
			require.NoError(t, err)
			assert.Equal(t, status, stored.SubscriptionStatus)
		})
	}
}

func TestReactivatedCanceledHotelIsNotInvoiced(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := env.signup(t, "Grand Hotel", "grand")

	_, err := env.billing.ChangePlan(ctx, h.Tenant.TenantID, models.PlanBasic)
	require.NoError(t, err)
	_, err = env.billing.Cancel(ctx, h.Tenant.TenantID)
	require.NoError(t, err)

	_, err = env.tenants.Suspend(ctx, h.Tenant.TenantID, "review")
	require.NoError(t, err)
	_, err = env.tenants.Reactivate(ctx, h.Tenant.TenantID)
	require.NoError(t, err)

	now := time.Now().UTC()
	firstOfNextMonth := time.Date(now.Year(), now.Month()+1, 1, 1, 0, 0, 0, time.UTC)
	res, err := env.billing.RunBillingCycle(ctx, firstOfNextMonth)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Invoiced)
}

func TestPlatformTenantIsProtected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.tenants.EnsurePlatformAdmin(ctx, "ops@guestvoice.test", "password123"))
	// second call is a no-op
	require.NoError(t, env.tenants.EnsurePlatformAdmin(ctx, "ops@guestvoice.test", "password123"))

	token, err := env.auth.Login(ctx, models.LoginInput{TenantSlug: PlatformSlug, Email: "ops@guestvoice.test", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, token.Staff.Role)

	_, err = env.tenants.Suspend(ctx, token.Tenant.TenantID, "oops")
	assert.ErrorIs(t, err, ErrRoleNotAllowed)
	assert.ErrorIs(t, env.tenants.Delete(ctx, token.Tenant.TenantID), ErrRoleNotAllowed)
}

func TestUpdateTenantVoiceNumber(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := env.signup(t, "Grand Hotel", "grand")

	env.withVoiceNumber(t, h, "+1 (555) 010-2000")
	got, err := env.store.GetTenantByVoiceNumber(ctx, "+15550102000")
	require.NoError(t, err)
	assert.Equal(t, h.Tenant.TenantID, got.TenantID)

	empty := ""
	tenant, err := env.tenants.Update(ctx, h.Tenant.TenantID, models.TenantUpdate{VoiceNumber: &empty})
	require.NoError(t, err)
	assert.Nil(t, tenant.VoiceNumber)
}

func TestDeleteTenant(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := env.signup(t, "Grand Hotel", "grand")

	require.NoError(t, env.tenants.Delete(ctx, h.Tenant.TenantID))
	_, err := env.tenants.Get(ctx, h.Tenant.TenantID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
