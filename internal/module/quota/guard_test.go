package quota

import (
	"context"
	stderrors "errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentgrid/governor/internal/infra/events"
	"github.com/agentgrid/governor/internal/model"
	"github.com/agentgrid/governor/internal/module/tenant"
	"github.com/agentgrid/governor/internal/shared/errors"
)

// mockTenantStore is a hand-written TenantStorePort double.
type mockTenantStore struct {
	mu      sync.Mutex
	tenants map[string]*model.Tenant
	err     error
	calls   int
}

func newMockTenantStore(tenants ...*model.Tenant) *mockTenantStore {
	s := &mockTenantStore{tenants: make(map[string]*model.Tenant)}
	for _, t := range tenants {
		s.tenants[t.ID] = t
	}
	return s
}

func (s *mockTenantStore) FindByID(_ context.Context, id string) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.tenants[id], nil
}

func newTestGuard(store *mockTenantStore, bus *events.Bus) *Guard {
	return NewGuard(GuardDeps{
		Store:   store,
		Manager: NewManager(DefaultManagerConfig(), zap.NewNop()),
		Bus:     bus,
		Logger:  zap.NewNop(),
	})
}

func activeTenant(id string, quota model.TenantQuota) *model.Tenant {
	return &model.Tenant{
		ID:     id,
		Name:   "tenant " + id,
		Status: model.TenantStatusActive,
		Tier:   model.TierFree,
		Quota:  quota,
	}
}

func TestGuardTenantNotFound(t *testing.T) {
	g := newTestGuard(newMockTenantStore(), nil)

	err := g.CheckAndRecord(context.Background(), "ghost", model.QuotaRequestsPerDay, 1)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrTenantNotFound))
	assert.Equal(t, 404, errors.GetStatusCode(err))
}

func TestGuardInactiveTenantShortCircuits(t *testing.T) {
	suspended := activeTenant("t1", model.TenantQuota{
		MaxRequestsPerDay: 10, MaxTokensPerDay: 10,
		MaxConcurrentRequests: 10, MaxRequestsPerMinute: 10,
	})
	suspended.Status = model.TenantStatusSuspended
	g := newTestGuard(newMockTenantStore(suspended), nil)

	err := g.CheckAndRecord(context.Background(), "t1", model.QuotaRequestsPerDay, 1)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrTenantInactive))
	assert.Equal(t, 403, errors.GetStatusCode(err))

	// The rejection happened before any quota state was touched.
	assert.Equal(t, int64(0), g.manager.Snapshot("t1").RequestsToday)

	err = g.AcquireConcurrentSlot(context.Background(), "t1")
	assert.True(t, stderrors.Is(err, errors.ErrTenantInactive))

	err = g.RecordAPICall(context.Background(), "t1")
	assert.True(t, stderrors.Is(err, errors.ErrTenantInactive))
}

func TestGuardStoreErrorIsInternal(t *testing.T) {
	store := newMockTenantStore()
	store.err = stderrors.New("connection refused")
	g := newTestGuard(store, nil)

	err := g.CheckAndRecord(context.Background(), "t1", model.QuotaRequestsPerDay, 1)
	require.Error(t, err)
	assert.Equal(t, 500, errors.GetStatusCode(err))
}

func TestGuardQuotaExceededError(t *testing.T) {
	store := newMockTenantStore(activeTenant("t1", model.TenantQuota{
		MaxRequestsPerDay: 1, MaxTokensPerDay: 10,
		MaxConcurrentRequests: 1, MaxRequestsPerMinute: 10,
	}))
	bus := events.NewBus(zap.NewNop())
	var exceeded []events.Event
	bus.Register(events.NewHandlerFunc([]string{QuotaExceededType}, func(e events.Event) error {
		exceeded = append(exceeded, e)
		return nil
	}))
	g := newTestGuard(store, bus)

	require.NoError(t, g.CheckAndRecord(context.Background(), "t1", model.QuotaRequestsPerDay, 1))

	err := g.CheckAndRecord(context.Background(), "t1", model.QuotaRequestsPerDay, 1)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrQuotaExceeded))
	assert.Equal(t, 429, errors.GetStatusCode(err))

	var terr *errors.TenantError
	require.True(t, stderrors.As(err, &terr))
	assert.Equal(t, "QUOTA_EXCEEDED", terr.Code)
	assert.Equal(t, int64(1), terr.Details["limit"])

	require.Len(t, exceeded, 1)
	assert.Equal(t, "t1", exceeded[0].TenantID())
}

func TestGuardRateLimitCarriesRetryAfter(t *testing.T) {
	store := newMockTenantStore(activeTenant("t1", model.TenantQuota{
		MaxRequestsPerDay: 100, MaxTokensPerDay: 100,
		MaxConcurrentRequests: 1, MaxRequestsPerMinute: 1,
	}))
	g := newTestGuard(store, nil)

	require.NoError(t, g.RecordAPICall(context.Background(), "t1"))

	err := g.RecordAPICall(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrRateLimited))

	var terr *errors.TenantError
	require.True(t, stderrors.As(err, &terr))
	assert.Equal(t, 60, terr.RetryAfterSeconds)
}

func TestGuardWarningNeverBlocks(t *testing.T) {
	store := newMockTenantStore(activeTenant("t1", model.TenantQuota{
		MaxRequestsPerDay: 10, MaxTokensPerDay: 100,
		MaxConcurrentRequests: 1, MaxRequestsPerMinute: 100,
	}))
	bus := events.NewBus(zap.NewNop())
	var warnings int
	bus.Register(events.NewHandlerFunc([]string{QuotaWarningType}, func(events.Event) error {
		warnings++
		return nil
	}))
	g := newTestGuard(store, bus)

	for i := 0; i < 10; i++ {
		assert.NoError(t, g.CheckAndRecord(context.Background(), "t1", model.QuotaRequestsPerDay, 1))
	}
	assert.Equal(t, 3, warnings) // consumptions 8, 9, 10
}

func TestWithConcurrentSlotReleasesOnEveryPath(t *testing.T) {
	store := newMockTenantStore(activeTenant("t1", model.TenantQuota{
		MaxRequestsPerDay: 10_000, MaxTokensPerDay: 10_000,
		MaxConcurrentRequests: 3, MaxRequestsPerMinute: 10_000,
	}))
	g := newTestGuard(store, nil)
	ctx := context.Background()

	// Normal return.
	err := g.WithConcurrentSlot(ctx, "t1", func(ctx context.Context) error {
		assert.Equal(t, int64(1), g.ConcurrentCount("t1"))
		id, ok := tenant.TenantID(ctx)
		assert.True(t, ok)
		assert.Equal(t, "t1", id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), g.ConcurrentCount("t1"))

	// Error return.
	wantErr := stderrors.New("boom")
	err = g.WithConcurrentSlot(ctx, "t1", func(context.Context) error {
		return wantErr
	})
	assert.True(t, stderrors.Is(err, wantErr))
	assert.Equal(t, int64(0), g.ConcurrentCount("t1"))

	// Panic.
	assert.Panics(t, func() {
		_ = g.WithConcurrentSlot(ctx, "t1", func(context.Context) error {
			panic("worker crashed")
		})
	})
	assert.Equal(t, int64(0), g.ConcurrentCount("t1"))

	// Cancelled context.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = g.WithConcurrentSlot(cancelled, "t1", func(ctx context.Context) error {
		return ctx.Err()
	})
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Equal(t, int64(0), g.ConcurrentCount("t1"))
}

func TestWithConcurrentSlotRandomizedNoLeak(t *testing.T) {
	store := newMockTenantStore(activeTenant("t1", model.TenantQuota{
		MaxRequestsPerDay: 100_000, MaxTokensPerDay: 100_000,
		MaxConcurrentRequests: 8, MaxRequestsPerMinute: 100_000,
	}))
	g := newTestGuard(store, nil)

	rng := rand.New(rand.NewSource(42))
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		mode := rng.Intn(3)
		wg.Add(1)
		go func(mode int) {
			defer wg.Done()
			defer func() { recover() }()
			_ = g.WithConcurrentSlot(context.Background(), "t1", func(context.Context) error {
				switch mode {
				case 0:
					return nil
				case 1:
					return stderrors.New("failed")
				default:
					panic("crashed")
				}
			})
		}(mode)
	}
	wg.Wait()

	// Whatever mix of exits happened, every granted slot came back.
	assert.Equal(t, int64(0), g.ConcurrentCount("t1"))
}

func TestGuardConcurrentLimitError(t *testing.T) {
	store := newMockTenantStore(activeTenant("t1", model.TenantQuota{
		MaxRequestsPerDay: 100, MaxTokensPerDay: 100,
		MaxConcurrentRequests: 1, MaxRequestsPerMinute: 100,
	}))
	g := newTestGuard(store, nil)
	ctx := context.Background()

	require.NoError(t, g.AcquireConcurrentSlot(ctx, "t1"))

	err := g.AcquireConcurrentSlot(ctx, "t1")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConcurrentLimit))
	assert.Equal(t, 429, errors.GetStatusCode(err))

	g.ReleaseConcurrentSlot("t1")
	assert.NoError(t, g.AcquireConcurrentSlot(ctx, "t1"))
}

func TestRecordTokenUsageNeverGates(t *testing.T) {
	store := newMockTenantStore(activeTenant("t1", model.TenantQuota{
		MaxRequestsPerDay: 100, MaxTokensPerDay: 1000,
		MaxConcurrentRequests: 1, MaxRequestsPerMinute: 100,
	}))
	bus := events.NewBus(zap.NewNop())
	var recorded []*TokensRecordedEvent
	bus.Register(events.NewHandlerFunc([]string{TokensRecordedType}, func(e events.Event) error {
		recorded = append(recorded, e.(*TokensRecordedEvent))
		return nil
	}))
	g := newTestGuard(store, bus)
	ctx := context.Background()

	// Push past the daily token limit; the accounting path still succeeds.
	require.NoError(t, g.RecordTokenUsage(ctx, "t1", 900, 300))

	usage, err := g.Usage(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), usage.TokensToday)

	require.Len(t, recorded, 1)
	assert.Equal(t, int64(900), recorded[0].InputTokens)
	assert.Equal(t, int64(300), recorded[0].OutputTokens)
	assert.NotEmpty(t, recorded[0].RequestID)

	// The next admission check against tokens sees the overage and denies.
	err = g.CheckAndRecord(ctx, "t1", model.QuotaTokensPerDay, 1)
	assert.True(t, stderrors.Is(err, errors.ErrQuotaExceeded))
}

func TestGuardCheckQuotaDoesNotConsume(t *testing.T) {
	store := newMockTenantStore(activeTenant("t1", model.TenantQuota{
		MaxRequestsPerDay: 5, MaxTokensPerDay: 100,
		MaxConcurrentRequests: 1, MaxRequestsPerMinute: 100,
	}))
	g := newTestGuard(store, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		detail, err := g.CheckQuota(ctx, "t1", model.QuotaRequestsPerDay, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), detail.Current)
	}
}
