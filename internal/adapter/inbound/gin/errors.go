package gin

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agentgrid/governor/internal/shared/errors"
)

// handleError maps governance errors to HTTP responses. Rate-style
// rejections carry a Retry-After header when the error has a retry hint.
func handleError(c *gin.Context, err error) {
	var tenantErr *errors.TenantError
	if stderrors.As(err, &tenantErr) {
		if tenantErr.RetryAfterSeconds > 0 {
			c.Header("Retry-After", strconv.Itoa(tenantErr.RetryAfterSeconds))
		}
		c.JSON(tenantErr.StatusCode, tenantErr.ToResponse())
		return
	}

	c.JSON(http.StatusInternalServerError, errors.ErrorResponse{
		Error: errors.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: "internal server error",
		},
	})
}
