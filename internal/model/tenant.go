package model

import (
	"time"
)

// TenantStatus represents the lifecycle status of a tenant.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended" // Admin suspended
	TenantStatusExpired   TenantStatus = "expired"   // Subscription lapsed
	TenantStatusInactive  TenantStatus = "inactive"  // Deactivated, not deleted
)

// IsValid checks if the status is a valid tenant status.
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusExpired, TenantStatusInactive:
		return true
	default:
		return false
	}
}

// TenantTier represents the subscription tier a tenant is on.
type TenantTier string

const (
	TierFree         TenantTier = "free"
	TierBasic        TenantTier = "basic"
	TierProfessional TenantTier = "professional"
	TierEnterprise   TenantTier = "enterprise"
)

// IsValid checks if the tier is a known tier.
func (t TenantTier) IsValid() bool {
	switch t {
	case TierFree, TierBasic, TierProfessional, TierEnterprise:
		return true
	default:
		return false
	}
}

// Tenant is a read-only snapshot of a tenant record. The tenant manager owns
// the lifecycle; the governance layer only reads status and limits.
type Tenant struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null"`

	Status TenantStatus `json:"status" gorm:"default:active"`
	Tier   TenantTier   `json:"tier" gorm:"default:free"`

	// Quota overrides; zero-value columns fall back to the tier preset.
	Quota TenantQuota `json:"quota" gorm:"embedded;embeddedPrefix:quota_"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the database table name.
func (Tenant) TableName() string {
	return "tenants"
}

// IsActive returns true only for tenants in the active status.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// EffectiveQuota returns the tenant's quota, falling back to the tier preset
// when no per-tenant override is set.
func (t *Tenant) EffectiveQuota() TenantQuota {
	if t.Quota.IsZero() {
		return QuotaForTier(t.Tier)
	}
	return t.Quota
}

// TenantQuota holds the per-tenant admission limits. All limits are
// non-negative; a zero limit always rejects.
type TenantQuota struct {
	MaxRequestsPerDay     int64 `json:"max_requests_per_day" gorm:"column:max_requests_per_day"`
	MaxTokensPerDay       int64 `json:"max_tokens_per_day" gorm:"column:max_tokens_per_day"`
	MaxConcurrentRequests int64 `json:"max_concurrent_requests" gorm:"column:max_concurrent_requests"`
	MaxRequestsPerMinute  int64 `json:"max_requests_per_minute" gorm:"column:max_requests_per_minute"`
}

// IsZero reports whether no limit is set at all.
func (q TenantQuota) IsZero() bool {
	return q == TenantQuota{}
}

// tierQuotas is the immutable tier preset table. Tiers vary only in numbers,
// so the presets are data rather than types.
var tierQuotas = map[TenantTier]TenantQuota{
	TierFree: {
		MaxRequestsPerDay:     100,
		MaxTokensPerDay:       50_000,
		MaxConcurrentRequests: 2,
		MaxRequestsPerMinute:  10,
	},
	TierBasic: {
		MaxRequestsPerDay:     1_000,
		MaxTokensPerDay:       500_000,
		MaxConcurrentRequests: 5,
		MaxRequestsPerMinute:  30,
	},
	TierProfessional: {
		MaxRequestsPerDay:     10_000,
		MaxTokensPerDay:       5_000_000,
		MaxConcurrentRequests: 20,
		MaxRequestsPerMinute:  120,
	},
	TierEnterprise: {
		MaxRequestsPerDay:     100_000,
		MaxTokensPerDay:       50_000_000,
		MaxConcurrentRequests: 100,
		MaxRequestsPerMinute:  600,
	},
}

// QuotaForTier returns the preset quota for a tier. Unknown tiers get the
// free preset.
func QuotaForTier(tier TenantTier) TenantQuota {
	if q, ok := tierQuotas[tier]; ok {
		return q
	}
	return tierQuotas[TierFree]
}
