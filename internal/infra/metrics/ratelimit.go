package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(rateLimitDecisionsTotal) }

var rateLimitDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_decisions_total",
		Help: "Rate limiter decisions per limiter, labeled allow/deny/error.",
	},
	[]string{"limiter", "result"},
)

func IncRateLimit(limiter, result string) {
	rateLimitDecisionsTotal.WithLabelValues(norm(limiter), norm(result)).Inc()
}
