package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentgrid/governor/internal/model"
	"github.com/agentgrid/governor/internal/module/quota"
)

// admissionHandler exposes admission-control operations to the rest of the
// platform.
type admissionHandler struct {
	guard *quota.Guard
}

// NewAdmissionHandler creates a new admission HTTP handler.
func NewAdmissionHandler(guard *quota.Guard) *admissionHandler {
	return &admissionHandler{guard: guard}
}

type admissionRequest struct {
	TenantID  string          `json:"tenant_id" binding:"required"`
	QuotaType model.QuotaType `json:"quota_type" binding:"required"`
	Amount    int64           `json:"amount"`
}

// Check previews an admission decision without consuming quota.
func (h *admissionHandler) Check(c *gin.Context) {
	var req admissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.QuotaType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown quota type"})
		return
	}
	if req.Amount <= 0 {
		req.Amount = 1
	}

	detail, err := h.guard.CheckQuota(c.Request.Context(), req.TenantID, req.QuotaType, req.Amount)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Consume checks and records atomically; the admission path callers use.
func (h *admissionHandler) Consume(c *gin.Context) {
	var req admissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.QuotaType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown quota type"})
		return
	}
	if req.Amount <= 0 {
		req.Amount = 1
	}

	if err := h.guard.CheckAndRecord(c.Request.Context(), req.TenantID, req.QuotaType, req.Amount); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admitted": true})
}

type tenantRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
}

// RecordCall runs the per-minute limiter for one call.
func (h *admissionHandler) RecordCall(c *gin.Context) {
	var req tenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.guard.RecordAPICall(c.Request.Context(), req.TenantID); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admitted": true})
}

// AcquireSlot grants a concurrency slot or rejects immediately. The caller
// must pair it with ReleaseSlot; slot leakage shows up as a stuck gauge.
func (h *admissionHandler) AcquireSlot(c *gin.Context) {
	var req tenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.guard.AcquireConcurrentSlot(c.Request.Context(), req.TenantID); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"acquired":         true,
		"concurrent_count": h.guard.ConcurrentCount(req.TenantID),
	})
}

// ReleaseSlot returns a concurrency slot.
func (h *admissionHandler) ReleaseSlot(c *gin.Context) {
	var req tenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.guard.ReleaseConcurrentSlot(req.TenantID)
	c.JSON(http.StatusOK, gin.H{
		"released":         true,
		"concurrent_count": h.guard.ConcurrentCount(req.TenantID),
	})
}
