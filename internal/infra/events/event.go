package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the interface that all governance events must implement.
type Event interface {
	// EventID returns the unique identifier for this event instance.
	EventID() uuid.UUID

	// EventType returns the type name of the event (e.g., "QuotaWarning").
	EventType() string

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// TenantID returns the tenant this event concerns.
	TenantID() string
}

// BaseEvent provides a base implementation of the Event interface.
// Embed this struct in your events to inherit common fields.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Tenant    string    `json:"tenant_id"`
}

// EventID returns the unique identifier for this event instance.
func (e BaseEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type name of the event.
func (e BaseEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// TenantID returns the tenant this event concerns.
func (e BaseEvent) TenantID() string {
	return e.Tenant
}

// NewBaseEvent creates a new BaseEvent with the given parameters.
func NewBaseEvent(eventType, tenantID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		Tenant:    tenantID,
	}
}
