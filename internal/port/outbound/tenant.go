package outbound

import (
	"context"

	"github.com/agentgrid/governor/internal/model"
)

// TenantStorePort reads tenant snapshots from the external tenant manager's
// store. The governance layer never writes tenant records.
type TenantStorePort interface {
	// FindByID returns the tenant snapshot, or (nil, nil) when no such
	// tenant exists.
	FindByID(ctx context.Context, tenantID string) (*model.Tenant, error)
}
