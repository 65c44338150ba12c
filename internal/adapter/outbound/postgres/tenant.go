package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/agentgrid/governor/internal/model"
	"github.com/agentgrid/governor/internal/port/outbound"
)

// tenantAdapter implements outbound.TenantStorePort against the tenant
// manager's table. Read-only: this service never writes tenant records.
type tenantAdapter struct {
	db *gorm.DB
}

// NewTenantAdapter creates a new tenant store adapter.
func NewTenantAdapter(db *gorm.DB) outbound.TenantStorePort {
	return &tenantAdapter{db: db}
}

func (a *tenantAdapter) FindByID(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var t model.Tenant
	err := a.db.WithContext(ctx).
		Where("id = ?", tenantID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Compile-time check
var _ outbound.TenantStorePort = (*tenantAdapter)(nil)
