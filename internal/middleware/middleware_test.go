package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestvoice/guestvoice-backend/internal/auth"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

type directory struct {
	tenants map[string]*models.Tenant
	staff   map[string]*models.Staff
}

func (d directory) GetTenant(_ context.Context, id string) (*models.Tenant, error) {
	if t, ok := d.tenants[id]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func (d directory) GetStaff(_ context.Context, tenantID, staffID string) (*models.Staff, error) {
	if s, ok := d.staff[staffID]; ok && s.TenantID == tenantID {
		return s, nil
	}
	return nil, storage.ErrNotFound
}

func newDirectory() directory {
	return directory{
		tenants: map[string]*models.Tenant{
			"t1":     {TenantID: "t1", IsActive: true, SubscriptionStatus: models.SubscriptionActive},
			"locked": {TenantID: "locked", IsActive: true, SubscriptionStatus: models.SubscriptionSuspended},
		},
		staff: map[string]*models.Staff{
			"STF1": {StaffID: "STF1", TenantID: "t1", Name: "Fran", Role: models.RoleStaff, IsActive: true},
			"STF2": {StaffID: "STF2", TenantID: "locked", Name: "Lee", Role: models.RoleAdmin, IsActive: true},
		},
	}
}

func newAuthApp(tokens *auth.TokenManager, lookup IdentityLookup, roles ...string) *fiber.App {
	app := fiber.New()
	chain := []fiber.Handler{RequireAuth(tokens, lookup)}
	if len(roles) > 0 {
		chain = append(chain, RequireRole(roles...))
	}
	chain = append(chain, func(c *fiber.Ctx) error {
		return c.SendString(TenantID(c) + "|" + StaffID(c) + "|" + Role(c) + "|" + Staff(c).Name)
	})
	app.Get("/protected", chain...)
	return app
}

func doGet(t *testing.T, app *fiber.App, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "guestvoice", time.Hour)
	dir := newDirectory()
	app := newAuthApp(tokens, dir)

	valid, _, err := tokens.Generate("STF1", "t1", "a@b.c", models.RoleStaff)
	require.NoError(t, err)

	status, body := doGet(t, app, "Bearer "+valid)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "t1|STF1|staff|Fran", body)

	status, _ = doGet(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doGet(t, app, "Token "+valid)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doGet(t, app, "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, status)

	expired, _, err := auth.NewTokenManager("secret", "guestvoice", -time.Minute).Generate("STF1", "t1", "a@b.c", "staff")
	require.NoError(t, err)
	status, body = doGet(t, app, "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "expired")

	suspended, _, err := tokens.Generate("STF2", "locked", "a@b.c", "admin")
	require.NoError(t, err)
	status, body = doGet(t, app, "Bearer "+suspended)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body, "TENANT_SUSPENDED")

	orphan, _, err := tokens.Generate("STF3", "gone", "a@b.c", "admin")
	require.NoError(t, err)
	status, _ = doGet(t, app, "Bearer "+orphan)
	assert.Equal(t, http.StatusUnauthorized, status)

	// staff ID from another tenant
	crossed, _, err := tokens.Generate("STF2", "t1", "a@b.c", "admin")
	require.NoError(t, err)
	status, _ = doGet(t, app, "Bearer "+crossed)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireAuth_DeactivatedStaff(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "guestvoice", time.Hour)
	dir := newDirectory()
	app := newAuthApp(tokens, dir)

	token, _, err := tokens.Generate("STF1", "t1", "a@b.c", models.RoleStaff)
	require.NoError(t, err)
	status, _ := doGet(t, app, "Bearer "+token)
	require.Equal(t, http.StatusOK, status)

	dir.staff["STF1"].IsActive = false
	status, body := doGet(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "disabled")
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "guestvoice", time.Hour)
	dir := newDirectory()
	app := newAuthApp(tokens, dir, models.RoleAdmin, models.RoleManager)

	cases := map[string]int{
		models.RoleStaff:      http.StatusForbidden,
		models.RoleFrontDesk:  http.StatusForbidden,
		models.RoleManager:    http.StatusOK,
		models.RoleAdmin:      http.StatusOK,
		models.RoleSuperAdmin: http.StatusOK,
	}
	for role, want := range cases {
		dir.staff["STF1"].Role = role
		token, _, err := tokens.Generate("STF1", "t1", "a@b.c", role)
		require.NoError(t, err)
		status, _ := doGet(t, app, "Bearer "+token)
		assert.Equal(t, want, status, role)
	}
}

func TestRequireRole_UsesStoredRole(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "guestvoice", time.Hour)
	dir := newDirectory()
	app := newAuthApp(tokens, dir, models.RoleAdmin)

	// token minted while STF1 was an admin; since demoted to staff
	token, _, err := tokens.Generate("STF1", "t1", "a@b.c", models.RoleAdmin)
	require.NoError(t, err)
	status, _ := doGet(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, status)

	dir.staff["STF1"].Role = models.RoleAdmin
	status, body := doGet(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "t1|STF1|admin|Fran", body)
}

func sign(token, fullURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := fullURL
	for _, k := range keys {
		data += k + params[k]
	}
	h := hmac.New(sha1.New, []byte(token))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func TestValidateTwilioSignature(t *testing.T) {
	cfg := TwilioSignatureConfig{AuthToken: "tw-token", PublicBaseURL: "https://voice.example.com"}
	app := fiber.New()
	app.Post("/webhooks/voice/incoming", ValidateTwilioSignature(cfg), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	params := map[string]string{"CallSid": "CA123", "From": "+15551234567", "To": "+15557654321"}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	post := func(signature string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/voice/incoming", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if signature != "" {
			req.Header.Set("X-Twilio-Signature", signature)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	good := sign("tw-token", "https://voice.example.com/webhooks/voice/incoming", params)
	assert.Equal(t, http.StatusOK, post(good))
	assert.Equal(t, http.StatusUnauthorized, post(""))
	assert.Equal(t, http.StatusUnauthorized, post(sign("wrong", "https://voice.example.com/webhooks/voice/incoming", params)))
}

func TestValidateTwilioSignature_Disabled(t *testing.T) {
	app := fiber.New()
	app.Post("/hook", ValidateTwilioSignature(TwilioSignatureConfig{Disabled: true}), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/hook", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "ip:hotel")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}

	ok, _ := l.Allow(ctx, "other")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "ip:hotel")
	assert.True(t, ok)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewLimiter(client, "login", 2, time.Minute)
	require.IsType(t, &RedisLimiter{}, l)

	ctx := context.Background()
	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "1.2.3.4:hotel")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}
}

func TestRateLimit(t *testing.T) {
	app := fiber.New()
	limiter := NewMemoryLimiter(1, time.Minute)
	app.Post("/login", RateLimit(limiter, func(c *fiber.Ctx) string { return c.IP() }), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID(), RequestContext(), RequestLogger(), Metrics())
	app.Get("/ping", func(c *fiber.Ctx) error {
		requestID, _ := c.UserContext().Value(logger.RequestIDKey).(string)
		return c.SendString(requestID)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	generated := resp.Header.Get(HeaderRequestID)
	assert.NotEmpty(t, generated)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, generated, string(body))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "fixed-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", resp.Header.Get(HeaderRequestID))
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", string(body))
}
