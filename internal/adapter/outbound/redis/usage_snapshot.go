package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentgrid/governor/internal/model"
	"github.com/agentgrid/governor/internal/port/outbound"
)

const usageKeyPrefix = "usage:"

// usageSnapshotAdapter implements outbound.UsageSnapshotPort. Day counters
// are stored as hashes keyed by tenant and UTC day, expiring a day after
// the window closes.
type usageSnapshotAdapter struct {
	client *redis.Client
}

// NewUsageSnapshotAdapter creates a new usage snapshot adapter.
func NewUsageSnapshotAdapter(client *redis.Client) outbound.UsageSnapshotPort {
	return &usageSnapshotAdapter{client: client}
}

func usageKey(tenantID, day string) string {
	return fmt.Sprintf("%s%s:%s", usageKeyPrefix, tenantID, day)
}

func (a *usageSnapshotAdapter) Save(ctx context.Context, usage model.TenantUsage) error {
	key := usageKey(usage.TenantID, usage.Day)

	pipe := a.client.Pipeline()
	pipe.HSet(ctx, key,
		"requests_today", usage.RequestsToday,
		"tokens_today", usage.TokensToday,
	)

	// Keep the key for a day past the window so a restart shortly after
	// midnight can still see yesterday's final counters.
	day, err := time.ParseInLocation("2006-01-02", usage.Day, time.UTC)
	if err == nil {
		pipe.ExpireAt(ctx, key, day.AddDate(0, 0, 2))
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (a *usageSnapshotAdapter) Load(ctx context.Context, tenantID string) (*model.TenantUsage, error) {
	day := time.Now().UTC().Format("2006-01-02")
	key := usageKey(tenantID, day)

	vals, err := a.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}

	usage := &model.TenantUsage{TenantID: tenantID, Day: day}
	if _, err := fmt.Sscan(vals["requests_today"], &usage.RequestsToday); err != nil {
		return nil, fmt.Errorf("parse requests_today: %w", err)
	}
	if _, err := fmt.Sscan(vals["tokens_today"], &usage.TokensToday); err != nil {
		return nil, fmt.Errorf("parse tokens_today: %w", err)
	}
	return usage, nil
}

// Compile-time check
var _ outbound.UsageSnapshotPort = (*usageSnapshotAdapter)(nil)
