package quota

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentgrid/governor/internal/infra/events"
	"github.com/agentgrid/governor/internal/model"
	"github.com/agentgrid/governor/internal/module/quota/usage"
	"github.com/agentgrid/governor/internal/module/tenant"
	"github.com/agentgrid/governor/internal/port/outbound"
	"github.com/agentgrid/governor/internal/shared/errors"
	"github.com/agentgrid/governor/internal/utils/metrics"
)

// Guard is the enforcement façade: it composes the external tenant lookup
// with the manager and translates decisions into the error taxonomy. All
// guard operations short-circuit on inactive tenants before touching quota
// state.
type Guard struct {
	store     outbound.TenantStorePort
	manager   *Manager
	bus       *events.Bus
	recorder  *usage.Recorder
	snapshots outbound.UsageSnapshotPort
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// GuardDeps bundles the guard's collaborators. Recorder, Snapshots and
// Metrics may be nil.
type GuardDeps struct {
	Store     outbound.TenantStorePort
	Manager   *Manager
	Bus       *events.Bus
	Recorder  *usage.Recorder
	Snapshots outbound.UsageSnapshotPort
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// NewGuard creates a new quota guard.
func NewGuard(deps GuardDeps) *Guard {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		store:     deps.Store,
		manager:   deps.Manager,
		bus:       deps.Bus,
		recorder:  deps.Recorder,
		snapshots: deps.Snapshots,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

// resolve fetches the tenant snapshot and rejects missing or non-active
// tenants. On the first touch of a tenant it restores persisted day counters
// when a snapshot store is configured.
func (g *Guard) resolve(ctx context.Context, tenantID string) (*model.Tenant, error) {
	t, err := g.store.FindByID(ctx, tenantID)
	if err != nil {
		return nil, errors.Internal("tenant lookup failed", err)
	}
	if t == nil {
		return nil, errors.TenantNotFound(tenantID)
	}
	if !t.IsActive() {
		return nil, errors.TenantInactive(t.ID, string(t.Status))
	}

	if g.snapshots != nil && !g.manager.Known(t.ID) {
		stored, err := g.snapshots.Load(ctx, t.ID)
		if err != nil {
			g.logger.Warn("usage snapshot load failed",
				zap.String("tenant_id", t.ID),
				zap.Error(err),
			)
		} else if stored != nil {
			g.manager.Seed(t.ID, *stored)
		}
	}
	return t, nil
}

// CheckQuota is a non-consuming preview of an admission decision.
func (g *Guard) CheckQuota(ctx context.Context, tenantID string, quotaType model.QuotaType, amount int64) (model.CheckDetail, error) {
	t, err := g.resolve(ctx, tenantID)
	if err != nil {
		return model.CheckDetail{}, err
	}
	return g.manager.CheckQuota(t, quotaType, amount), nil
}

// CheckAndRecord evaluates and consumes in one atomic step. Exceeded becomes
// a QuotaExceeded error; warnings are logged and published, never blocking.
func (g *Guard) CheckAndRecord(ctx context.Context, tenantID string, quotaType model.QuotaType, amount int64) error {
	t, err := g.resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	detail := g.manager.TryConsume(t, quotaType, amount)
	if g.metrics != nil {
		g.metrics.RecordAdmission(string(quotaType), string(detail.Result))
	}

	switch detail.Result {
	case model.CheckExceeded:
		g.publish(NewQuotaExceededEvent(t.ID, quotaType, detail))
		return errors.QuotaExceeded(t.ID, string(quotaType), detail.Current, detail.Limit)
	case model.CheckWarning:
		g.warn(t.ID, quotaType, detail)
	}
	return nil
}

// CheckRateLimit previews the per-minute limiter without recording a call.
func (g *Guard) CheckRateLimit(ctx context.Context, tenantID string) error {
	t, err := g.resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	detail := g.manager.CheckRateLimit(t)
	if detail.Exceeded() {
		return g.rateLimited(t.ID, detail)
	}
	return nil
}

// RecordAPICall checks the per-minute limiter and records the call
// atomically. On rejection the error carries the retry hint matching the
// window length.
func (g *Guard) RecordAPICall(ctx context.Context, tenantID string) error {
	t, err := g.resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	detail := g.manager.TryCall(t)
	if g.metrics != nil {
		g.metrics.RecordAdmission(string(model.QuotaRequestsPerMinute), string(detail.Result))
	}

	switch detail.Result {
	case model.CheckExceeded:
		return g.rateLimited(t.ID, detail)
	case model.CheckWarning:
		g.warn(t.ID, model.QuotaRequestsPerMinute, detail)
	}
	return nil
}

// AcquireConcurrentSlot attempts a non-blocking slot acquisition. The caller
// owns the release; prefer WithConcurrentSlot for guaranteed pairing.
func (g *Guard) AcquireConcurrentSlot(ctx context.Context, tenantID string) error {
	t, err := g.resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	if !g.manager.AcquireSlot(t) {
		if g.metrics != nil {
			g.metrics.SlotRejectionsTotal.Inc()
		}
		return errors.ConcurrentLimit(t.ID, t.EffectiveQuota().MaxConcurrentRequests)
	}
	if g.metrics != nil {
		g.metrics.SetConcurrentSlots(t.ID, g.manager.ConcurrentCount(t.ID))
	}
	return nil
}

// ReleaseConcurrentSlot returns a slot acquired with AcquireConcurrentSlot.
func (g *Guard) ReleaseConcurrentSlot(tenantID string) {
	g.manager.ReleaseSlot(tenantID)
	if g.metrics != nil {
		g.metrics.SetConcurrentSlots(tenantID, g.manager.ConcurrentCount(tenantID))
	}
}

// ConcurrentCount returns the tenant's live concurrency gauge.
func (g *Guard) ConcurrentCount(tenantID string) int64 {
	return g.manager.ConcurrentCount(tenantID)
}

// WithConcurrentSlot runs fn while holding a concurrency slot. The release
// is deferred, so the slot is returned on every exit path: normal return,
// error, panic, and context cancellation. fn runs inside the tenant's
// isolation scope.
func (g *Guard) WithConcurrentSlot(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	if err := g.AcquireConcurrentSlot(ctx, tenantID); err != nil {
		return err
	}
	defer g.ReleaseConcurrentSlot(tenantID)

	return fn(tenant.WithTenant(ctx, tenantID))
}

// RecordTokenUsage is post-hoc accounting for a completed LLM call. Token
// cost is unknowable before the call finishes, so this path monitors and
// reports but never gates a request.
func (g *Guard) RecordTokenUsage(ctx context.Context, tenantID string, inputTokens, outputTokens int64) error {
	t, err := g.resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	total := inputTokens + outputTokens
	g.manager.RecordUsage(t.ID, model.QuotaTokensPerDay, total)
	if g.metrics != nil {
		g.metrics.RecordTokens(inputTokens, outputTokens)
	}

	requestID := uuid.NewString()
	if g.recorder != nil {
		g.recorder.Record(&usage.Record{
			TenantID:     t.ID,
			RequestID:    requestID,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		})
	}
	g.publish(NewTokensRecordedEvent(t.ID, requestID, inputTokens, outputTokens))

	// Warning visibility only; the call already happened.
	if detail := g.manager.CheckQuota(t, model.QuotaTokensPerDay, 0); detail.Result == model.CheckWarning {
		g.warn(t.ID, model.QuotaTokensPerDay, detail)
	}
	return nil
}

// Usage returns a snapshot of the tenant's current consumption.
func (g *Guard) Usage(ctx context.Context, tenantID string) (model.TenantUsage, error) {
	t, err := g.resolve(ctx, tenantID)
	if err != nil {
		return model.TenantUsage{}, err
	}
	return g.manager.Snapshot(t.ID), nil
}

func (g *Guard) rateLimited(tenantID string, detail model.CheckDetail) error {
	retryAfter := int(g.manager.Window().Seconds())
	if g.metrics != nil {
		g.metrics.RateLimitedTotal.Inc()
	}
	g.publish(NewRateLimitedEvent(tenantID, detail, retryAfter))
	return errors.RateLimited(tenantID, retryAfter)
}

func (g *Guard) warn(tenantID string, quotaType model.QuotaType, detail model.CheckDetail) {
	g.logger.Warn("tenant approaching quota limit",
		zap.String("tenant_id", tenantID),
		zap.String("quota_type", string(quotaType)),
		zap.Int64("current", detail.Current),
		zap.Int64("limit", detail.Limit),
	)
	if g.metrics != nil {
		g.metrics.RecordQuotaWarning(string(quotaType))
	}
	g.publish(NewQuotaWarningEvent(tenantID, quotaType, detail))
}

func (g *Guard) publish(event events.Event) {
	if g.bus != nil {
		g.bus.Publish(event)
	}
}
