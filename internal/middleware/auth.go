package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/auth"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/response"
)

// Locals keys set by RequireAuth
const (
	LocalsClaims   = "claims"
	LocalsStaff    = "staff"
	LocalsStaffID  = "staff_id"
	LocalsTenantID = "tenant_id"
	LocalsRole     = "role"
)

// IdentityLookup resolves the tenant and staff record behind a token
type IdentityLookup interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	GetStaff(ctx context.Context, tenantID, staffID string) (*models.Staff, error)
}

// RequireAuth validates the Bearer token and rejects callers whose tenant is locked
// or whose account was deactivated after the token was issued
func RequireAuth(tokens *auth.TokenManager, lookup IdentityLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return response.Unauthorized(c, "Authorization header is required")
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(header, bearerPrefix) {
			return response.Unauthorized(c, "Invalid authorization header format")
		}
		tokenString := strings.TrimSpace(header[len(bearerPrefix):])
		if tokenString == "" {
			return response.Unauthorized(c, "Token is empty")
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token has expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		if ok, err := Authorize(c, lookup, claims); !ok {
			return err
		}
		return c.Next()
	}
}

// Authorize loads the tenant and staff member named by claims and stores the caller on
// the request. When the caller may not proceed it writes the rejection and returns false.
// Role and name come from the stored staff record, not the token.
func Authorize(c *fiber.Ctx, lookup IdentityLookup, claims *auth.Claims) (bool, error) {
	ctx := c.UserContext()
	log := logger.FromContext(ctx)

	tenant, err := lookup.GetTenant(ctx, claims.TenantID)
	if err != nil {
		log.Debug("Token tenant lookup failed", zap.String("tenant_id", claims.TenantID), zap.Error(err))
		return false, response.Unauthorized(c, "Invalid access token")
	}
	if tenant.Locked() {
		return false, response.Fail(c, response.ErrCodeTenantSuspended, "Hotel account is suspended")
	}

	staff, err := lookup.GetStaff(ctx, claims.TenantID, claims.StaffID)
	if err != nil {
		log.Debug("Token staff lookup failed", zap.String("staff_id", claims.StaffID), zap.Error(err))
		return false, response.Unauthorized(c, "Invalid access token")
	}
	if !staff.IsActive {
		return false, response.Unauthorized(c, "Account is disabled")
	}

	setCaller(c, claims, staff)
	return true, nil
}

func setCaller(c *fiber.Ctx, claims *auth.Claims, staff *models.Staff) {
	c.Locals(LocalsClaims, claims)
	c.Locals(LocalsStaff, staff)
	c.Locals(LocalsStaffID, staff.StaffID)
	c.Locals(LocalsTenantID, staff.TenantID)
	c.Locals(LocalsRole, staff.Role)
	c.SetUserContext(context.WithValue(c.UserContext(), logger.TenantIDKey, staff.TenantID))
}

// RequireRole allows only the given roles. super_admin passes every check.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := Role(c)
		if role == models.RoleSuperAdmin {
			return c.Next()
		}
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return response.Forbidden(c, "Insufficient permissions")
	}
}

// Claims returns the caller's token claims, or nil outside RequireAuth
func Claims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(LocalsClaims).(*auth.Claims)
	return claims
}

// Staff returns the caller's stored staff record, or nil outside RequireAuth
func Staff(c *fiber.Ctx) *models.Staff {
	staff, _ := c.Locals(LocalsStaff).(*models.Staff)
	return staff
}

func TenantID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalsTenantID).(string)
	return id
}

func StaffID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalsStaffID).(string)
	return id
}

func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(LocalsRole).(string)
	return role
}
