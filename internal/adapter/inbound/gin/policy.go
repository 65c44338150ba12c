package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentgrid/governor/internal/module/policy"
)

// policyHandler exposes permission checks backed by the external engine.
type policyHandler struct {
	guard *policy.Guard
}

// NewPolicyHandler creates a new policy HTTP handler.
func NewPolicyHandler(guard *policy.Guard) *policyHandler {
	return &policyHandler{guard: guard}
}

// Evaluate returns the full decision for an access request.
func (h *policyHandler) Evaluate(c *gin.Context) {
	var req policy.EvaluationContext
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := h.guard.Evaluate(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// Require answers 200 on allow and the mapped policy error otherwise.
func (h *policyHandler) Require(c *gin.Context) {
	var req policy.EvaluationContext
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.guard.RequirePermission(c.Request.Context(), req); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": true})
}
