package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/agentgrid/governor/internal/model"
	"github.com/agentgrid/governor/internal/port/outbound"
)

// usageRecordAdapter implements outbound.UsageRecordPort.
type usageRecordAdapter struct {
	db *gorm.DB
}

// NewUsageRecordAdapter creates a new usage record adapter.
func NewUsageRecordAdapter(db *gorm.DB) outbound.UsageRecordPort {
	return &usageRecordAdapter{db: db}
}

func (a *usageRecordAdapter) Create(ctx context.Context, record *model.UsageRecord) error {
	return a.db.WithContext(ctx).Create(record).Error
}

// Compile-time check
var _ outbound.UsageRecordPort = (*usageRecordAdapter)(nil)
