package policy

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/agentgrid/governor/internal/shared/errors"
	"github.com/agentgrid/governor/internal/utils/metrics"
)

// GuardConfig contains policy guard tuning.
type GuardConfig struct {
	BreakerFailureThreshold uint32
	BreakerTimeout          time.Duration
}

// DefaultGuardConfig returns the default policy guard configuration.
func DefaultGuardConfig() *GuardConfig {
	return &GuardConfig{
		BreakerFailureThreshold: 5,
		BreakerTimeout:          30 * time.Second,
	}
}

// Guard delegates permission checks to the configured engine and translates
// denials into the error taxonomy.
//
// With no engine configured the guard fails open: every check allows. This
// preserves the platform's observed behavior and is deliberate, not a
// recommendation.
type Guard struct {
	engine  Engine
	breaker *gobreaker.CircuitBreaker[*Decision]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGuard creates a new policy guard. engine may be nil.
func NewGuard(engine Engine, cfg *GuardConfig, m *metrics.Metrics, logger *zap.Logger) *Guard {
	if cfg == nil {
		cfg = DefaultGuardConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	failureThreshold := cfg.BreakerFailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "policy-engine",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
	}

	return &Guard{
		engine:  engine,
		breaker: gobreaker.NewCircuitBreaker[*Decision](settings),
		metrics: m,
		logger:  logger,
	}
}

// Evaluate asks the engine for a decision. Engine errors and an open
// breaker degrade to the fail-open path.
func (g *Guard) Evaluate(ctx context.Context, ec EvaluationContext) (*Decision, error) {
	if g.engine == nil {
		g.record("fail_open")
		return &Decision{Allowed: true, Effect: "allow", Reason: "no policy engine configured"}, nil
	}

	decision, err := g.breaker.Execute(func() (*Decision, error) {
		return g.engine.Evaluate(ctx, ec)
	})
	if err != nil {
		g.logger.Warn("policy engine unavailable, failing open",
			zap.String("tenant_id", ec.TenantID),
			zap.String("resource", ec.Resource),
			zap.String("action", ec.Action),
			zap.Error(err),
		)
		g.record("fail_open")
		return &Decision{Allowed: true, Effect: "allow", Reason: "policy engine unavailable"}, nil
	}

	if decision.Allowed {
		g.record("allow")
	} else {
		g.record("deny")
	}
	return decision, nil
}

// CheckPermission returns whether the principal may perform the action.
func (g *Guard) CheckPermission(ctx context.Context, ec EvaluationContext) (bool, error) {
	decision, err := g.Evaluate(ctx, ec)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// RequirePermission turns a denial into a PolicyDenied error.
func (g *Guard) RequirePermission(ctx context.Context, ec EvaluationContext) error {
	decision, err := g.Evaluate(ctx, ec)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return errors.PolicyDenied(ec.TenantID, decision.Reason).
			WithDetail("matched_policy", decision.MatchedPolicy).
			WithDetail("action", ec.Action).
			WithDetail("resource", ec.Resource)
	}
	return nil
}

func (g *Guard) record(effect string) {
	if g.metrics != nil {
		g.metrics.RecordPolicyDecision(effect)
	}
}
