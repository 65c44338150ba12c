// Package policy delegates permission decisions to an external
// policy-decision engine.
package policy

import "context"

// EvaluationContext describes one access decision request.
type EvaluationContext struct {
	Principal string `json:"principal"`
	Resource  string `json:"resource"`
	Action    string `json:"action"`
	TenantID  string `json:"tenant_id"`
}

// Decision is the engine's verdict.
type Decision struct {
	Allowed          bool     `json:"allowed"`
	Effect           string   `json:"effect"`
	Reason           string   `json:"reason,omitempty"`
	MatchedPolicy    string   `json:"matched_policy,omitempty"`
	ConditionsMet    []string `json:"conditions_met,omitempty"`
	EvaluationTimeMS float64  `json:"evaluation_time_ms"`
}

// Engine is the external policy-decision point. Implementations live
// outside this service.
type Engine interface {
	Evaluate(ctx context.Context, ec EvaluationContext) (*Decision, error)
}
