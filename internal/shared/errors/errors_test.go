package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      *TenantError
		sentinel error
		status   int
	}{
		{"not found", TenantNotFound("t1"), ErrTenantNotFound, http.StatusNotFound},
		{"inactive", TenantInactive("t1", "suspended"), ErrTenantInactive, http.StatusForbidden},
		{"quota exceeded", QuotaExceeded("t1", "requests_per_day", 100, 100), ErrQuotaExceeded, http.StatusTooManyRequests},
		{"rate limited", RateLimited("t1", 60), ErrRateLimited, http.StatusTooManyRequests},
		{"concurrent limit", ConcurrentLimit("t1", 5), ErrConcurrentLimit, http.StatusTooManyRequests},
		{"policy denied", PolicyDenied("t1", "no access"), ErrPolicyDenied, http.StatusForbidden},
		{"unauthorized", Unauthorized(""), ErrUnauthorized, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, stderrors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.status, GetStatusCode(tt.err))
		})
	}
}

func TestGetStatusCodeWrapped(t *testing.T) {
	wrapped := fmt.Errorf("admission failed: %w", QuotaExceeded("t1", "tokens_per_day", 500, 500))
	assert.Equal(t, http.StatusTooManyRequests, GetStatusCode(wrapped))
}

func TestGetStatusCodeUnknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(stderrors.New("something broke")))
}

func TestRateLimitedCarriesRetryHint(t *testing.T) {
	err := RateLimited("t1", 60)
	assert.Equal(t, 60, err.RetryAfterSeconds)
	assert.Equal(t, 60, err.Details["retry_after_seconds"])
}

func TestWithDetail(t *testing.T) {
	err := PolicyDenied("t1", "").WithDetail("action", "delete").WithDetail("resource", "doc/1")
	assert.Equal(t, "delete", err.Details["action"])
	assert.Equal(t, "doc/1", err.Details["resource"])
}

func TestToResponseOmitsInternals(t *testing.T) {
	err := QuotaExceeded("t1", "requests_per_day", 101, 100)
	resp := err.ToResponse()

	assert.Equal(t, "QUOTA_EXCEEDED", resp.Error.Code)
	assert.Equal(t, "t1", resp.Error.TenantID)
	assert.Equal(t, int64(100), resp.Error.Details["limit"])
}

func TestErrorString(t *testing.T) {
	err := TenantNotFound("t1")
	assert.Equal(t, "TENANT_NOT_FOUND: tenant not found (tenant t1)", err.Error())

	require.Contains(t, Unauthorized("").Error(), "UNAUTHORIZED")
}
