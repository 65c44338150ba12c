// Package tenant carries the active tenant identity through an operation.
//
// The carrier is context.Context: each entry derives a child context, so
// exiting a scope is structural (the parent context is untouched), nesting
// works for sub-agent runs, and cancellation unwinding cannot leave a stale
// tenant behind on a reused worker.
package tenant

import (
	"context"

	"github.com/agentgrid/governor/internal/shared/errors"
)

type ctxKey struct{}

// WithTenant returns a child context scoped to the given tenant.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// TenantID returns the tenant the operation is running for, if any.
func TenantID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// MustTenantID returns the current tenant id or an Unauthorized error when
// the operation has no tenant scope.
func MustTenantID(ctx context.Context) (string, error) {
	id, ok := TenantID(ctx)
	if !ok {
		return "", errors.Unauthorized("no tenant in context")
	}
	return id, nil
}

// Run executes fn inside a scope for tenantID. The caller's context is not
// modified, so the surrounding scope is restored on every exit path.
func Run(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	return fn(WithTenant(ctx, tenantID))
}
