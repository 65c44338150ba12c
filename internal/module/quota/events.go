package quota

import (
	"github.com/agentgrid/governor/internal/infra/events"
	"github.com/agentgrid/governor/internal/model"
)

// Event type constants.
const (
	QuotaWarningType   = "QuotaWarning"
	QuotaExceededType  = "QuotaExceeded"
	RateLimitedType    = "RateLimited"
	TokensRecordedType = "TokensRecorded"
)

// QuotaWarningEvent is emitted when consumption crosses the warning
// threshold. Observability only; the request proceeded.
type QuotaWarningEvent struct {
	events.BaseEvent

	QuotaType model.QuotaType `json:"quota_type"`
	Current   int64           `json:"current"`
	Limit     int64           `json:"limit"`
}

// NewQuotaWarningEvent creates a new QuotaWarningEvent.
func NewQuotaWarningEvent(tenantID string, quotaType model.QuotaType, detail model.CheckDetail) *QuotaWarningEvent {
	return &QuotaWarningEvent{
		BaseEvent: events.NewBaseEvent(QuotaWarningType, tenantID),
		QuotaType: quotaType,
		Current:   detail.Current,
		Limit:     detail.Limit,
	}
}

// QuotaExceededEvent is emitted when an admission check denies a request.
type QuotaExceededEvent struct {
	events.BaseEvent

	QuotaType model.QuotaType `json:"quota_type"`
	Current   int64           `json:"current"`
	Limit     int64           `json:"limit"`
}

// NewQuotaExceededEvent creates a new QuotaExceededEvent.
func NewQuotaExceededEvent(tenantID string, quotaType model.QuotaType, detail model.CheckDetail) *QuotaExceededEvent {
	return &QuotaExceededEvent{
		BaseEvent: events.NewBaseEvent(QuotaExceededType, tenantID),
		QuotaType: quotaType,
		Current:   detail.Current,
		Limit:     detail.Limit,
	}
}

// RateLimitedEvent is emitted when the per-minute limiter rejects a call.
type RateLimitedEvent struct {
	events.BaseEvent

	Current           int64 `json:"current"`
	Limit             int64 `json:"limit"`
	RetryAfterSeconds int   `json:"retry_after_seconds"`
}

// NewRateLimitedEvent creates a new RateLimitedEvent.
func NewRateLimitedEvent(tenantID string, detail model.CheckDetail, retryAfterSeconds int) *RateLimitedEvent {
	return &RateLimitedEvent{
		BaseEvent:         events.NewBaseEvent(RateLimitedType, tenantID),
		Current:           detail.Current,
		Limit:             detail.Limit,
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// TokensRecordedEvent is emitted after post-hoc token accounting.
type TokensRecordedEvent struct {
	events.BaseEvent

	RequestID    string `json:"request_id,omitempty"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// NewTokensRecordedEvent creates a new TokensRecordedEvent.
func NewTokensRecordedEvent(tenantID, requestID string, inputTokens, outputTokens int64) *TokensRecordedEvent {
	return &TokensRecordedEvent{
		BaseEvent:    events.NewBaseEvent(TokensRecordedType, tenantID),
		RequestID:    requestID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}
}
