package quota

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentgrid/governor/internal/model"
)

const dayFormat = "2006-01-02"

// ManagerConfig contains quota manager tuning.
type ManagerConfig struct {
	// WarningThreshold is the fraction of a limit at which checks start
	// returning CheckWarning. Warnings never block.
	WarningThreshold float64

	// RateLimitWindow is the trailing window for the per-minute limiter.
	RateLimitWindow time.Duration

	// Clock overrides time.Now, used by tests to cross day boundaries.
	Clock func() time.Time
}

// DefaultManagerConfig returns the default manager configuration.
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		WarningThreshold: 0.80,
		RateLimitWindow:  time.Minute,
		Clock:            time.Now,
	}
}

// tenantState is one tenant's mutable consumption state. All fields are
// guarded by mu; day counters reset lazily when the stored day key differs
// from the current UTC day.
type tenantState struct {
	mu          sync.Mutex
	day         string
	requests    int64
	tokens      int64
	concurrent  int64
	recentCalls []time.Time
}

// Manager is the admission-control and accounting engine. Per-tenant state
// is the unit of synchronization: operations for different tenants never
// contend on the same lock, and no operation blocks.
//
// The manager returns values (CheckDetail), never errors; translating
// Exceeded into the error taxonomy is the guard's job.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*tenantState

	threshold float64
	window    time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewManager creates a new quota manager.
func NewManager(cfg *ManagerConfig, logger *zap.Logger) *Manager {
	if cfg == nil {
		cfg = DefaultManagerConfig()
	}
	threshold := cfg.WarningThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.80
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		states:    make(map[string]*tenantState),
		threshold: threshold,
		window:    window,
		now:       clock,
		logger:    logger,
	}
}

// Window returns the rate-limit window length.
func (m *Manager) Window() time.Duration {
	return m.window
}

// state returns the tenant's state, creating it on first touch.
func (m *Manager) state(tenantID string) *tenantState {
	m.mu.RLock()
	st, ok := m.states[tenantID]
	m.mu.RUnlock()
	if ok {
		return st
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok = m.states[tenantID]; ok {
		return st
	}
	st = &tenantState{day: m.now().UTC().Format(dayFormat)}
	m.states[tenantID] = st
	return st
}

// rollover resets the day counters when the stored day key is stale.
// Caller holds st.mu.
func (m *Manager) rollover(st *tenantState, now time.Time) {
	day := now.UTC().Format(dayFormat)
	if st.day != day {
		st.day = day
		st.requests = 0
		st.tokens = 0
	}
}

// pruneCalls drops window-log entries older than the rate-limit window.
// Caller holds st.mu.
func (m *Manager) pruneCalls(st *tenantState, now time.Time) {
	cutoff := now.Add(-m.window)
	i := 0
	for ; i < len(st.recentCalls); i++ {
		if st.recentCalls[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		st.recentCalls = append(st.recentCalls[:0], st.recentCalls[i:]...)
	}
}

// evaluate compares a proposed consumption against a limit.
func (m *Manager) evaluate(quotaType model.QuotaType, current, amount, limit int64) model.CheckDetail {
	next := current + amount
	switch {
	case next > limit:
		return model.CheckDetail{
			Result:  model.CheckExceeded,
			Message: fmt.Sprintf("%s limit exceeded", quotaType),
			Current: current,
			Limit:   limit,
		}
	case float64(next) >= m.threshold*float64(limit):
		return model.CheckDetail{
			Result:  model.CheckWarning,
			Message: fmt.Sprintf("approaching %s limit", quotaType),
			Current: current,
			Limit:   limit,
		}
	default:
		return model.CheckDetail{Result: model.CheckOK, Current: current, Limit: limit}
	}
}

// CheckQuota evaluates a proposed consumption without recording it. Use
// TryConsume for admission decisions; the split form exists only for
// non-consuming previews and has the usual time-of-check gap.
func (m *Manager) CheckQuota(t *model.Tenant, quotaType model.QuotaType, amount int64) model.CheckDetail {
	st := m.state(t.ID)
	limits := t.EffectiveQuota()

	st.mu.Lock()
	defer st.mu.Unlock()
	now := m.now()
	m.rollover(st, now)

	switch quotaType {
	case model.QuotaRequestsPerDay:
		return m.evaluate(quotaType, st.requests, amount, limits.MaxRequestsPerDay)
	case model.QuotaTokensPerDay:
		return m.evaluate(quotaType, st.tokens, amount, limits.MaxTokensPerDay)
	case model.QuotaConcurrent:
		return m.evaluate(quotaType, st.concurrent, amount, limits.MaxConcurrentRequests)
	case model.QuotaRequestsPerMinute:
		m.pruneCalls(st, now)
		return m.evaluate(quotaType, int64(len(st.recentCalls)), amount, limits.MaxRequestsPerMinute)
	default:
		return model.CheckDetail{
			Result:  model.CheckExceeded,
			Message: fmt.Sprintf("unknown quota type %q", quotaType),
		}
	}
}

// TryConsume checks and records in a single critical section, so two
// concurrent requests can never both pass a nearly-exhausted limit. This is
// the form admission control must use.
func (m *Manager) TryConsume(t *model.Tenant, quotaType model.QuotaType, amount int64) model.CheckDetail {
	st := m.state(t.ID)
	limits := t.EffectiveQuota()

	st.mu.Lock()
	defer st.mu.Unlock()
	now := m.now()
	m.rollover(st, now)

	switch quotaType {
	case model.QuotaRequestsPerDay:
		detail := m.evaluate(quotaType, st.requests, amount, limits.MaxRequestsPerDay)
		if !detail.Exceeded() {
			st.requests += amount
		}
		return detail
	case model.QuotaTokensPerDay:
		detail := m.evaluate(quotaType, st.tokens, amount, limits.MaxTokensPerDay)
		if !detail.Exceeded() {
			st.tokens += amount
		}
		return detail
	case model.QuotaConcurrent:
		detail := m.evaluate(quotaType, st.concurrent, amount, limits.MaxConcurrentRequests)
		if !detail.Exceeded() {
			st.concurrent += amount
		}
		return detail
	case model.QuotaRequestsPerMinute:
		m.pruneCalls(st, now)
		detail := m.evaluate(quotaType, int64(len(st.recentCalls)), amount, limits.MaxRequestsPerMinute)
		if !detail.Exceeded() {
			for i := int64(0); i < amount; i++ {
				st.recentCalls = append(st.recentCalls, now)
			}
		}
		return detail
	default:
		return model.CheckDetail{
			Result:  model.CheckExceeded,
			Message: fmt.Sprintf("unknown quota type %q", quotaType),
		}
	}
}

// RecordUsage adds realized consumption without an admission check. This is
// the post-hoc accounting path for costs that are unknowable up front, such
// as tokens actually used by a completed LLM call.
func (m *Manager) RecordUsage(tenantID string, quotaType model.QuotaType, amount int64) {
	st := m.state(tenantID)

	st.mu.Lock()
	defer st.mu.Unlock()
	now := m.now()
	m.rollover(st, now)

	switch quotaType {
	case model.QuotaRequestsPerDay:
		st.requests += amount
	case model.QuotaTokensPerDay:
		st.tokens += amount
	case model.QuotaRequestsPerMinute:
		for i := int64(0); i < amount; i++ {
			st.recentCalls = append(st.recentCalls, now)
		}
	default:
		m.logger.Warn("record usage for unsupported quota type",
			zap.String("tenant_id", tenantID),
			zap.String("quota_type", string(quotaType)),
		)
	}
}

// CheckRateLimit evaluates the per-minute sliding-window log without
// recording a call.
func (m *Manager) CheckRateLimit(t *model.Tenant) model.CheckDetail {
	return m.CheckQuota(t, model.QuotaRequestsPerMinute, 1)
}

// TryCall checks the per-minute limit and records the call atomically.
func (m *Manager) TryCall(t *model.Tenant) model.CheckDetail {
	return m.TryConsume(t, model.QuotaRequestsPerMinute, 1)
}

// RecordCall appends a call timestamp to the sliding-window log.
func (m *Manager) RecordCall(tenantID string) {
	m.RecordUsage(tenantID, model.QuotaRequestsPerMinute, 1)
}

// AcquireSlot attempts a non-blocking concurrency-slot acquisition. It never
// queues: either the slot is granted now or the caller is rejected now.
func (m *Manager) AcquireSlot(t *model.Tenant) bool {
	st := m.state(t.ID)
	limit := t.EffectiveQuota().MaxConcurrentRequests

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.concurrent >= limit {
		return false
	}
	st.concurrent++
	return true
}

// ReleaseSlot returns a concurrency slot. A release that would take the
// gauge negative clamps to zero and logs: a stray double-release must not
// corrupt future admission decisions.
func (m *Manager) ReleaseSlot(tenantID string) {
	st := m.state(tenantID)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.concurrent <= 0 {
		st.concurrent = 0
		m.logger.Warn("concurrent slot released below zero, clamping",
			zap.String("tenant_id", tenantID),
		)
		return
	}
	st.concurrent--
}

// ConcurrentCount returns the tenant's live concurrency gauge.
func (m *Manager) ConcurrentCount(tenantID string) int64 {
	st := m.state(tenantID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.concurrent
}

// Known reports whether the manager holds state for the tenant.
func (m *Manager) Known(tenantID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[tenantID]
	return ok
}

// Seed installs restored usage for a tenant not yet tracked. Existing state
// wins; live counters are never overwritten.
func (m *Manager) Seed(tenantID string, usage model.TenantUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[tenantID]; ok {
		return
	}
	day := usage.Day
	if day == "" {
		day = m.now().UTC().Format(dayFormat)
	}
	m.states[tenantID] = &tenantState{
		day:      day,
		requests: usage.RequestsToday,
		tokens:   usage.TokensToday,
	}
}

// Snapshot returns a copy of the tenant's current usage.
func (m *Manager) Snapshot(tenantID string) model.TenantUsage {
	st := m.state(tenantID)

	st.mu.Lock()
	defer st.mu.Unlock()
	now := m.now()
	m.rollover(st, now)
	m.pruneCalls(st, now)

	calls := make([]time.Time, len(st.recentCalls))
	copy(calls, st.recentCalls)
	return model.TenantUsage{
		TenantID:        tenantID,
		Day:             st.day,
		RequestsToday:   st.requests,
		TokensToday:     st.tokens,
		ConcurrentCount: st.concurrent,
		RecentCalls:     calls,
	}
}

// Usages returns a usage snapshot for every tracked tenant.
func (m *Manager) Usages() []model.TenantUsage {
	m.mu.RLock()
	ids := make([]string, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	usages := make([]model.TenantUsage, 0, len(ids))
	for _, id := range ids {
		usages = append(usages, m.Snapshot(id))
	}
	return usages
}
