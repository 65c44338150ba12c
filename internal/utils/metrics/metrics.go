package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Admission metrics
	AdmissionDecisionsTotal *prometheus.CounterVec
	QuotaWarningsTotal      *prometheus.CounterVec
	RateLimitedTotal        prometheus.Counter
	ConcurrentSlots         *prometheus.GaugeVec
	SlotRejectionsTotal     prometheus.Counter

	// Accounting metrics
	TokensRecordedTotal *prometheus.CounterVec

	// Policy metrics
	PolicyDecisionsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	return NewWith(namespace, prometheus.DefaultRegisterer)
}

// NewWith creates a new Metrics instance on the given registerer. Tests pass
// a fresh registry to avoid duplicate registration.
func NewWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "governor"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		// Admission metrics
		AdmissionDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "decisions_total",
				Help:      "Total number of admission decisions",
			},
			[]string{"quota_type", "result"}, // result: ok, warning, exceeded
		),
		QuotaWarningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "quota_warnings_total",
				Help:      "Total number of quota warning-threshold crossings",
			},
			[]string{"quota_type"},
		),
		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "rate_limited_total",
				Help:      "Total number of per-minute rate limit rejections",
			},
		),
		ConcurrentSlots: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "concurrent_slots",
				Help:      "Concurrency slots currently held per tenant",
			},
			[]string{"tenant_id"},
		),
		SlotRejectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "slot_rejections_total",
				Help:      "Total number of rejected concurrency-slot acquisitions",
			},
		),

		// Accounting metrics
		TokensRecordedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "tokens_recorded_total",
				Help:      "Total number of tokens recorded post-hoc",
			},
			[]string{"direction"}, // direction: input, output
		),

		// Policy metrics
		PolicyDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "decisions_total",
				Help:      "Total number of policy evaluations",
			},
			[]string{"effect"}, // effect: allow, deny, fail_open
		),
	}
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAdmission records an admission decision.
func (m *Metrics) RecordAdmission(quotaType, result string) {
	m.AdmissionDecisionsTotal.WithLabelValues(quotaType, result).Inc()
}

// RecordQuotaWarning records a warning-threshold crossing.
func (m *Metrics) RecordQuotaWarning(quotaType string) {
	m.QuotaWarningsTotal.WithLabelValues(quotaType).Inc()
}

// SetConcurrentSlots sets the per-tenant concurrency gauge.
func (m *Metrics) SetConcurrentSlots(tenantID string, count int64) {
	m.ConcurrentSlots.WithLabelValues(tenantID).Set(float64(count))
}

// RecordTokens records post-hoc token usage.
func (m *Metrics) RecordTokens(inputTokens, outputTokens int64) {
	if inputTokens > 0 {
		m.TokensRecordedTotal.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.TokensRecordedTotal.WithLabelValues("output").Add(float64(outputTokens))
	}
}

// RecordPolicyDecision records a policy evaluation outcome.
func (m *Metrics) RecordPolicyDecision(effect string) {
	m.PolicyDecisionsTotal.WithLabelValues(effect).Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
