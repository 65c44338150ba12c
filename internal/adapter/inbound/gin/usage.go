package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentgrid/governor/internal/module/quota"
)

// usageHandler exposes post-hoc accounting and usage reads.
type usageHandler struct {
	guard *quota.Guard
}

// NewUsageHandler creates a new usage HTTP handler.
func NewUsageHandler(guard *quota.Guard) *usageHandler {
	return &usageHandler{guard: guard}
}

// RecordTokens records realized token consumption after an LLM call. This
// never rejects on quota; token cost is only knowable after the fact.
func (h *usageHandler) RecordTokens(c *gin.Context) {
	var req struct {
		TenantID     string `json:"tenant_id" binding:"required"`
		InputTokens  int64  `json:"input_tokens"`
		OutputTokens int64  `json:"output_tokens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.InputTokens < 0 || req.OutputTokens < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token counts must be non-negative"})
		return
	}

	if err := h.guard.RecordTokenUsage(c.Request.Context(), req.TenantID, req.InputTokens, req.OutputTokens); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

// GetUsage returns the tenant's current consumption snapshot.
func (h *usageHandler) GetUsage(c *gin.Context) {
	tenantID := c.Param("id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant id required"})
		return
	}

	snapshot, err := h.guard.Usage(c.Request.Context(), tenantID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
