package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestvoice/guestvoice-backend/internal/models"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := env.signup(t, "Grand Hotel", "grand")

	token, err := env.auth.Login(ctx, models.LoginInput{TenantSlug: "grand", Email: "ADMIN@grand.test", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.NotNil(t, token.Staff.LastLoginAt)

	claims, err := env.tokens.Validate(token.Token)
	require.NoError(t, err)
	assert.Equal(t, h.Tenant.TenantID, claims.TenantID)
	assert.Equal(t, h.Admin.StaffID, claims.StaffID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = env.auth.Login(ctx, models.LoginInput{TenantSlug: "grand", Email: "admin@grand.test", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, models.LoginInput{TenantSlug: "nope", Email: "admin@grand.test", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginIsScopedToTenant(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signup(t, "Grand Hotel", "grand")
	env.signup(t, "Seaside Inn", "seaside")

	_, err := env.auth.Login(ctx, models.LoginInput{TenantSlug: "seaside", Email: "admin@grand.test", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsDisabledAndSuspended(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := env.signup(t, "Grand Hotel", "grand")

	clerk, err := env.staff.Create(ctx, h.Actor, models.CreateStaffInput{
		Name: "Casey Clerk", Email: "casey@grand.test", Password: "password123", Role: models.RoleFrontDesk,
	})
	require.NoError(t, err)
	require.NoError(t, env.staff.Deactivate(ctx, h.Actor, clerk.StaffID))

	_, err = env.auth.Login(ctx, models.LoginInput{TenantSlug: "grand", Email: "casey@grand.test", Password: "password123"})
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = env.tenants.Suspend(ctx, h.Tenant.TenantID, "unpaid")
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, models.LoginInput{TenantSlug: "grand", Email: "admin@grand.test", Password: "password123"})
	assert.ErrorIs(t, err, ErrTenantSuspended)
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signup(t, "Grand Hotel", "grand")

	// unknown accounts are not reported
	require.NoError(t, env.auth.ForgotPassword(ctx, models.ForgotPasswordInput{TenantSlug: "grand", Email: "ghost@grand.test"}))
	require.NoError(t, env.auth.ForgotPassword(ctx, models.ForgotPasswordInput{TenantSlug: "missing", Email: "admin@grand.test"}))
	before := len(env.email.Sent())

	require.NoError(t, env.auth.ForgotPassword(ctx, models.ForgotPasswordInput{TenantSlug: "grand", Email: "admin@grand.test"}))
	sent := env.email.Sent()
	require.Len(t, sent, before+1)
	code := codePattern.FindString(sent[len(sent)-1].Body)
	require.NotEmpty(t, code)

	err := env.auth.ResetPassword(ctx, models.ResetPasswordInput{TenantSlug: "grand", Email: "admin@grand.test", Code: code, NewPassword: "new-password-1"})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, models.LoginInput{TenantSlug: "grand", Email: "admin@grand.test", Password: "new-password-1"})
	require.NoError(t, err)

	// codes are single use
	err = env.auth.ResetPassword(ctx, models.ResetPasswordInput{TenantSlug: "grand", Email: "admin@grand.test", Code: code, NewPassword: "another-pass"})
	assert.ErrorIs(t, err, ErrInvalidOTP)
}
