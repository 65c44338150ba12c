package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsActive(t *testing.T) {
	tenant := &Tenant{Status: TenantStatusActive}
	assert.True(t, tenant.IsActive())

	for _, status := range []TenantStatus{TenantStatusSuspended, TenantStatusExpired, TenantStatusInactive} {
		tenant.Status = status
		assert.False(t, tenant.IsActive(), "status %s", status)
	}
}

func TestEffectiveQuotaFallsBackToTier(t *testing.T) {
	tenant := &Tenant{Tier: TierProfessional}
	assert.Equal(t, QuotaForTier(TierProfessional), tenant.EffectiveQuota())

	override := TenantQuota{
		MaxRequestsPerDay:     42,
		MaxTokensPerDay:       1,
		MaxConcurrentRequests: 1,
		MaxRequestsPerMinute:  1,
	}
	tenant.Quota = override
	assert.Equal(t, override, tenant.EffectiveQuota())
}

func TestQuotaForTierUnknownGetsFree(t *testing.T) {
	assert.Equal(t, QuotaForTier(TierFree), QuotaForTier(TenantTier("platinum")))
}

func TestTierPresetsAscend(t *testing.T) {
	free := QuotaForTier(TierFree)
	basic := QuotaForTier(TierBasic)
	pro := QuotaForTier(TierProfessional)
	ent := QuotaForTier(TierEnterprise)

	assert.Less(t, free.MaxRequestsPerDay, basic.MaxRequestsPerDay)
	assert.Less(t, basic.MaxRequestsPerDay, pro.MaxRequestsPerDay)
	assert.Less(t, pro.MaxRequestsPerDay, ent.MaxRequestsPerDay)
}
