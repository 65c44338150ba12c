package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types.
var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrTenantInactive  = errors.New("tenant inactive")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrRateLimited     = errors.New("rate limited")
	ErrConcurrentLimit = errors.New("concurrent limit reached")
	ErrPolicyDenied    = errors.New("policy denied")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInternal        = errors.New("internal error")
)

// TenantError represents a governance failure with a stable code, the tenant
// it concerns, and an HTTP status for the transport boundary.
type TenantError struct {
	Code              string         `json:"code"`
	Message           string         `json:"message"`
	TenantID          string         `json:"tenant_id,omitempty"`
	Details           map[string]any `json:"details,omitempty"`
	RetryAfterSeconds int            `json:"-"`
	StatusCode        int            `json:"-"`
	Err               error          `json:"-"`
}

// Error implements the error interface.
func (e *TenantError) Error() string {
	if e.TenantID != "" {
		return fmt.Sprintf("%s: %s (tenant %s)", e.Code, e.Message, e.TenantID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped sentinel error.
func (e *TenantError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a detail entry and returns the error for chaining.
func (e *TenantError) WithDetail(key string, value any) *TenantError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ErrorResponse represents the JSON error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	TenantID string         `json:"tenant_id,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// Common error constructors.

// TenantNotFound creates a tenant not found error.
func TenantNotFound(tenantID string) *TenantError {
	return &TenantError{
		Code:       "TENANT_NOT_FOUND",
		Message:    "tenant not found",
		TenantID:   tenantID,
		StatusCode: http.StatusNotFound,
		Err:        ErrTenantNotFound,
	}
}

// TenantInactive creates an error for tenants whose status blocks all operations.
func TenantInactive(tenantID, status string) *TenantError {
	return &TenantError{
		Code:       "TENANT_INACTIVE",
		Message:    fmt.Sprintf("tenant is %s", status),
		TenantID:   tenantID,
		StatusCode: http.StatusForbidden,
		Err:        ErrTenantInactive,
		Details:    map[string]any{"status": status},
	}
}

// QuotaExceeded creates a quota exceeded error.
func QuotaExceeded(tenantID, quotaType string, current, limit int64) *TenantError {
	return &TenantError{
		Code:       "QUOTA_EXCEEDED",
		Message:    fmt.Sprintf("%s quota exceeded", quotaType),
		TenantID:   tenantID,
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrQuotaExceeded,
		Details: map[string]any{
			"quota_type": quotaType,
			"current":    current,
			"limit":      limit,
		},
	}
}

// RateLimited creates a rate limited error carrying the retry hint.
func RateLimited(tenantID string, retryAfterSeconds int) *TenantError {
	return &TenantError{
		Code:              "RATE_LIMITED",
		Message:           "too many requests per minute",
		TenantID:          tenantID,
		StatusCode:        http.StatusTooManyRequests,
		RetryAfterSeconds: retryAfterSeconds,
		Err:               ErrRateLimited,
		Details:           map[string]any{"retry_after_seconds": retryAfterSeconds},
	}
}

// ConcurrentLimit creates an error for a rejected concurrency-slot acquisition.
func ConcurrentLimit(tenantID string, limit int64) *TenantError {
	return &TenantError{
		Code:       "CONCURRENT_LIMIT",
		Message:    "concurrent request limit reached",
		TenantID:   tenantID,
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrConcurrentLimit,
		Details:    map[string]any{"limit": limit},
	}
}

// PolicyDenied creates a policy denial error.
func PolicyDenied(tenantID, reason string) *TenantError {
	if reason == "" {
		reason = "access denied by policy"
	}
	return &TenantError{
		Code:       "POLICY_DENIED",
		Message:    reason,
		TenantID:   tenantID,
		StatusCode: http.StatusForbidden,
		Err:        ErrPolicyDenied,
	}
}

// Unauthorized creates an authentication required error.
func Unauthorized(message string) *TenantError {
	if message == "" {
		message = "authentication required"
	}
	return &TenantError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// Internal creates an internal error.
func Internal(message string, err error) *TenantError {
	return &TenantError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToResponse converts a TenantError to ErrorResponse.
func (e *TenantError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:     e.Code,
			Message:  e.Message,
			TenantID: e.TenantID,
			Details:  e.Details,
		},
	}
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var tenantErr *TenantError
	if errors.As(err, &tenantErr) {
		return tenantErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrTenantNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTenantInactive), errors.Is(err, ErrPolicyDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrRateLimited), errors.Is(err, ErrConcurrentLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
