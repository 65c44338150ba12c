package gin

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agentgrid/governor/internal/module/policy"
	"github.com/agentgrid/governor/internal/module/quota"
	"github.com/agentgrid/governor/internal/shared/middleware"
	"github.com/agentgrid/governor/internal/utils/metrics"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	QuotaGuard  *quota.Guard
	PolicyGuard *policy.Guard
	Metrics     *metrics.Metrics
	JWTSecret   string
	Logger      *zap.Logger
}

// NewRouter builds the service router.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admission := NewAdmissionHandler(deps.QuotaGuard)
	usage := NewUsageHandler(deps.QuotaGuard)
	pol := NewPolicyHandler(deps.PolicyGuard)

	v1 := r.Group("/v1")
	v1.Use(middleware.ServiceAuth(deps.JWTSecret))
	{
		v1.POST("/admission/check", admission.Check)
		v1.POST("/admission/consume", admission.Consume)
		v1.POST("/admission/calls", admission.RecordCall)
		v1.POST("/slots/acquire", admission.AcquireSlot)
		v1.POST("/slots/release", admission.ReleaseSlot)

		v1.POST("/usage/tokens", usage.RecordTokens)
		v1.GET("/tenants/:id/usage", usage.GetUsage)

		v1.POST("/policy/evaluate", pol.Evaluate)
		v1.POST("/policy/require", pol.Require)
	}

	return r
}
