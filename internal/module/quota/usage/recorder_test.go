package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentgrid/governor/internal/model"
)

// mockUsageRepo is a hand-written UsageRecordPort double.
type mockUsageRepo struct {
	mu   sync.Mutex
	rows []*model.UsageRecord
}

func (r *mockUsageRepo) Create(_ context.Context, row *model.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
	return nil
}

func (r *mockUsageRepo) all() []*model.UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.UsageRecord, len(r.rows))
	copy(out, r.rows)
	return out
}

func TestRecorderPersistsAsync(t *testing.T) {
	repo := &mockUsageRepo{}
	rec := NewRecorder(repo, zap.NewNop(), 10)

	rec.Record(&Record{
		TenantID:     "t1",
		RequestID:    "req-1",
		InputTokens:  100,
		OutputTokens: 40,
	})
	rec.Close()

	rows := repo.all()
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].TenantID)
	assert.Equal(t, "req-1", rows[0].RequestID)
	assert.Equal(t, int64(100), rows[0].InputTokens)
	assert.Equal(t, int64(40), rows[0].OutputTokens)
	assert.Equal(t, int64(140), rows[0].TotalTokens)
	assert.False(t, rows[0].CreatedAt.IsZero())
	assert.NotZero(t, rows[0].ID)
}

func TestRecorderCloseFlushesBuffer(t *testing.T) {
	repo := &mockUsageRepo{}
	rec := NewRecorder(repo, zap.NewNop(), 100)

	for i := 0; i < 50; i++ {
		rec.Record(&Record{TenantID: "t1", InputTokens: 1})
	}
	rec.Close()

	// Close drains everything still queued before returning.
	assert.Len(t, repo.all(), 50)
}

func TestRecorderPreservesExplicitTimestamp(t *testing.T) {
	repo := &mockUsageRepo{}
	rec := NewRecorder(repo, zap.NewNop(), 10)

	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	rec.Record(&Record{TenantID: "t1", Timestamp: ts})
	rec.Close()

	rows := repo.all()
	require.Len(t, rows, 1)
	assert.Equal(t, ts, rows[0].CreatedAt)
}
