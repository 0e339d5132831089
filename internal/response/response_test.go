package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginated(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		perPage   int
		wantPages int
	}{
		{"exact", 40, 20, 2},
		{"remainder", 41, 20, 3},
		{"empty", 0, 20, 0},
		{"zero per page falls back", 5, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Paginated([]int{}, 1, tt.perPage, tt.total)
			require.NotNil(t, r.Meta)
			assert.True(t, r.Success)
			assert.Equal(t, tt.wantPages, r.Meta.TotalPages)
		})
	}
}

func TestGetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusPaymentRequired, GetHTTPStatus(ErrCodeMaxLimitReached))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(ErrCodeInvalidState))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("SOMETHING_ELSE"))
}

func decode(t *testing.T, resp *http.Response) Response {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out Response
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestFiberHelpers(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/ok", func(c *fiber.Ctx) error { return OK(c, fiber.Map{"a": 1}) })
	app.Get("/limit", func(c *fiber.Ctx) error { return Fail(c, ErrCodeMaxLimitReached, "staff limit") })
	app.Get("/fiber-err", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "nope") })
	app.Get("/plain-err", func(c *fiber.Ctx) error { return errors.New("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode(t, resp).Success)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/limit", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	body := decode(t, resp)
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrCodeMaxLimitReached, body.Error.Code)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/fiber-err", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, ErrCodeNotFound, decode(t, resp).Error.Code)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/plain-err", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, ErrCodeInternalError, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "boom")
}
