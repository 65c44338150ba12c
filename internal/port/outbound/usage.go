package outbound

import (
	"context"

	"github.com/agentgrid/governor/internal/model"
)

// UsageRecordPort persists post-hoc token accounting rows.
type UsageRecordPort interface {
	Create(ctx context.Context, record *model.UsageRecord) error
}

// UsageSnapshotPort stores day-counter snapshots so usage survives a
// restart. Implementations key by tenant and UTC day.
type UsageSnapshotPort interface {
	// Save stores the tenant's current day counters.
	Save(ctx context.Context, usage model.TenantUsage) error

	// Load returns the stored counters for the tenant's current day, or
	// (nil, nil) when none exist.
	Load(ctx context.Context, tenantID string) (*model.TenantUsage, error)
}
