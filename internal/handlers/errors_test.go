package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

func failWith(t *testing.T, err error) (int, response.Response) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return fail(c, err) })

	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, testErr)
	defer resp.Body.Close()

	var body response.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestFail(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{storage.ErrNotFound, http.StatusNotFound, response.ErrCodeNotFound},
		{fmt.Errorf("create staff: %w", storage.ErrDuplicate), http.StatusConflict, response.ErrCodeDuplicateEntry},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrCodeUnauthorized},
		{services.ErrAccountDisabled, http.StatusForbidden, response.ErrCodeForbidden},
		{services.ErrTenantSuspended, http.StatusForbidden, response.ErrCodeTenantSuspended},
		{services.ErrRoleNotAllowed, http.StatusForbidden, response.ErrCodeForbidden},
		{services.ErrSelfDeactivation, http.StatusForbidden, response.ErrCodeForbidden},
		{services.ErrLimitReached, http.StatusPaymentRequired, response.ErrCodeMaxLimitReached},
		{services.ErrInvalidTransition, http.StatusConflict, response.ErrCodeInvalidState},
		{services.ErrDowngradeBlocked, http.StatusConflict, response.ErrCodeConflict},
		{services.ErrAlreadyCanceled, http.StatusConflict, response.ErrCodeConflict},
		{services.ErrInvalidPlan, http.StatusBadRequest, response.ErrCodeBadRequest},
		{services.ErrInvalidSlug, http.StatusBadRequest, response.ErrCodeBadRequest},
		{services.ErrInvalidPeriod, http.StatusBadRequest, response.ErrCodeBadRequest},
		{services.ErrAssigneeInvalid, http.StatusBadRequest, response.ErrCodeBadRequest},
		{services.ErrInvalidOTP, http.StatusBadRequest, response.ErrCodeBadRequest},
		{errMalformedBody, http.StatusBadRequest, response.ErrCodeBadRequest},
		{&queryError{key: "from", value: "soon"}, http.StatusBadRequest, response.ErrCodeBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError, response.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, body := failWith(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestFail_InternalErrorHidesCause(t *testing.T) {
	_, body := failWith(t, errors.New("pq: password authentication failed"))
	require.NotNil(t, body.Error)
	assert.NotContains(t, body.Error.Message, "pq:")
}

func TestBindJSON_ValidationDetails(t *testing.T) {
	type input struct {
		Email string `json:"email" validate:"required,email"`
		Room  string `json:"room_number" validate:"required,max=4"`
	}

	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var in input
		if err := bindJSON(c, &in); err != nil {
			return fail(c, err)
		}
		return response.OK(c, in)
	})

	send := func(body string) (int, response.Response) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out response.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	status, body := send(`{"email":"nope","room_number":"12345"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, response.ErrCodeValidationFailed, body.Error.Code)
	assert.Equal(t, "email", body.Error.Details["email"])
	assert.Equal(t, "max=4", body.Error.Details["room_number"])

	status, body = send(`{"email":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.ErrCodeBadRequest, body.Error.Code)

	status, _ = send(`{"email":"desk@hotel.test","room_number":"305"}`)
	assert.Equal(t, http.StatusOK, status)
}
