package handlers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/services"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// errMalformedBody marks a body that could not be decoded at all
var errMalformedBody = errors.New("invalid request body")

// bindJSON decodes the request body into dst and validates its struct tags
func bindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return errMalformedBody
	}
	return validate.Struct(dst)
}

// validationDetails flattens validator errors into field -> rule
func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return details
}

// actor builds the service caller from the authenticated token
func actor(c *fiber.Ctx) services.Actor {
	a := services.Actor{
		TenantID: middleware.TenantID(c),
		StaffID:  middleware.StaffID(c),
		Role:     middleware.Role(c),
	}
	if staff := middleware.Staff(c); staff != nil {
		a.Name = staff.Name
	}
	return a
}

// pagination reads page/limit query parameters; the store clamps them
func pagination(c *fiber.Ctx) (int, int) {
	return c.QueryInt("page", 1), c.QueryInt("limit", 0)
}

// queryDate parses YYYY-MM-DD or RFC3339 values. endOfDay moves a bare date to its last instant.
func queryDate(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, &queryError{key: key, value: raw}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &queryError{key: key, value: raw}
	}
	return &b, nil
}

type queryError struct {
	key   string
	value string
}

func (e *queryError) Error() string {
	return "invalid value for " + e.key + ": " + e.value
}
