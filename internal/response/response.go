package response

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Response represents the standard API response structure
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo represents error details in the response
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Meta represents metadata for paginated responses
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeDuplicateEntry   = "DUPLICATE_ENTRY"
	ErrCodeMaxLimitReached  = "MAX_LIMIT_REACHED"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeTenantSuspended  = "TENANT_SUSPENDED"
)

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes
var ErrorCodeToHTTPStatus = map[string]int{
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeTooManyRequests:  http.StatusTooManyRequests,
	ErrCodeInternalError:    http.StatusInternalServerError,
	ErrCodeValidationFailed: http.StatusBadRequest,
	ErrCodeDuplicateEntry:   http.StatusConflict,
	ErrCodeMaxLimitReached:  http.StatusPaymentRequired,
	ErrCodeInvalidState:     http.StatusConflict,
	ErrCodeTenantSuspended:  http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status code for an error code
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeToHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Success creates a success response with data
func Success(data interface{}) *Response {
	return &Response{Success: true, Data: data}
}

// Error creates an error response
func Error(code, message string) *Response {
	return &Response{Success: false, Error: &ErrorInfo{Code: code, Message: message}}
}

// ErrorWithDetails creates an error response with additional details
func ErrorWithDetails(code, message string, details map[string]string) *Response {
	return &Response{Success: false, Error: &ErrorInfo{Code: code, Message: message, Details: details}}
}

// Paginated creates a paginated success response
func Paginated(data interface{}, page, perPage int, total int64) *Response {
	if perPage <= 0 {
		perPage = 20
	}
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	return &Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages},
	}
}

// --- Fiber helpers ---

// OK writes a 200 success envelope
func OK(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Success(data))
}

// Created writes a 201 success envelope
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Success(data))
}

// List writes a paginated success envelope
func List(c *fiber.Ctx, data interface{}, page, perPage int, total int64) error {
	return c.Status(fiber.StatusOK).JSON(Paginated(data, page, perPage, total))
}

// Fail writes an error envelope with the status mapped from code
func Fail(c *fiber.Ctx, code, message string) error {
	return c.Status(GetHTTPStatus(code)).JSON(Error(code, message))
}

// FailWithDetails writes an error envelope carrying per-field details
func FailWithDetails(c *fiber.Ctx, code, message string, details map[string]string) error {
	return c.Status(GetHTTPStatus(code)).JSON(ErrorWithDetails(code, message, details))
}

// BadRequest writes a 400 envelope
func BadRequest(c *fiber.Ctx, message string) error {
	return Fail(c, ErrCodeBadRequest, message)
}

// Unauthorized writes a 401 envelope
func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Authentication required"
	}
	return Fail(c, ErrCodeUnauthorized, message)
}

// Forbidden writes a 403 envelope
func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Access denied"
	}
	return Fail(c, ErrCodeForbidden, message)
}

// NotFound writes a 404 envelope
func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return Fail(c, ErrCodeNotFound, message)
}

// Conflict writes a 409 envelope
func Conflict(c *fiber.Ctx, message string) error {
	return Fail(c, ErrCodeConflict, message)
}

// InternalError writes a 500 envelope
func InternalError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "An internal error occurred"
	}
	return Fail(c, ErrCodeInternalError, message)
}

// ErrorHandler renders errors that escape handlers in the standard envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := ErrCodeInternalError
		switch fe.Code {
		case fiber.StatusBadRequest:
			code = ErrCodeBadRequest
		case fiber.StatusUnauthorized:
			code = ErrCodeUnauthorized
		case fiber.StatusForbidden:
			code = ErrCodeForbidden
		case fiber.StatusNotFound:
			code = ErrCodeNotFound
		case fiber.StatusConflict:
			code = ErrCodeConflict
		case fiber.StatusTooManyRequests:
			code = ErrCodeTooManyRequests
		}
		return c.Status(fe.Code).JSON(Error(code, fe.Message))
	}
	return InternalError(c, "")
}
