package model

import (
	"time"

	"github.com/google/uuid"
)

// QuotaType identifies which limit an admission check is made against.
type QuotaType string

const (
	QuotaRequestsPerDay    QuotaType = "requests_per_day"
	QuotaTokensPerDay      QuotaType = "tokens_per_day"
	QuotaConcurrent        QuotaType = "concurrent_requests"
	QuotaRequestsPerMinute QuotaType = "requests_per_minute"
)

// IsValid checks if the quota type is known.
func (q QuotaType) IsValid() bool {
	switch q {
	case QuotaRequestsPerDay, QuotaTokensPerDay, QuotaConcurrent, QuotaRequestsPerMinute:
		return true
	default:
		return false
	}
}

// CheckResult is the outcome of a quota evaluation.
type CheckResult string

const (
	CheckOK       CheckResult = "ok"
	CheckWarning  CheckResult = "warning"  // Over the warning threshold, never blocks
	CheckExceeded CheckResult = "exceeded" // Admission denied
)

// CheckDetail is the value form of a quota decision. The manager returns
// these; only the guard boundary turns Exceeded into an error.
type CheckDetail struct {
	Result  CheckResult `json:"result"`
	Message string      `json:"message,omitempty"`
	Current int64       `json:"current"`
	Limit   int64       `json:"limit"`
}

// Exceeded reports whether the check denied admission.
func (d CheckDetail) Exceeded() bool {
	return d.Result == CheckExceeded
}

// TenantUsage is a snapshot of one tenant's live consumption. Day counters
// are keyed by UTC calendar day; ConcurrentCount is a live gauge.
type TenantUsage struct {
	TenantID        string      `json:"tenant_id"`
	Day             string      `json:"day"` // UTC, 2006-01-02
	RequestsToday   int64       `json:"requests_today"`
	TokensToday     int64       `json:"tokens_today"`
	ConcurrentCount int64       `json:"concurrent_count"`
	RecentCalls     []time.Time `json:"-"`
}

// UsageRecord is a persisted post-hoc token accounting row. Token cost is
// unknowable before an LLM call completes, so records are written after the
// fact and never gate admission.
type UsageRecord struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID     string    `json:"tenant_id" gorm:"index;not null"`
	RequestID    string    `json:"request_id" gorm:"column:request_id"`
	InputTokens  int64     `json:"input_tokens" gorm:"column:input_tokens"`
	OutputTokens int64     `json:"output_tokens" gorm:"column:output_tokens"`
	TotalTokens  int64     `json:"total_tokens" gorm:"column:total_tokens"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
}

// TableName returns the database table name.
func (UsageRecord) TableName() string {
	return "usage_records"
}
