package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(codesGeneratedTotal, codeGenerationFailuresTotal, redemptionsTotal) }

var codesGeneratedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "access_codes_generated_total",
		Help: "Access codes durably inserted.",
	},
)

var codeGenerationFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_code_generation_failures_total",
		Help: "Failed generation batches by reason.",
	},
	[]string{"reason"}, // 'budget', 'duplicate', 'storage'
)

var redemptionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_code_redemptions_total",
		Help: "Redemption attempts by result.",
	},
	[]string{"result"}, // 'ok', 'not_found', 'already_redeemed', 'invalid', 'error'
)

func AddCodesGenerated(n int) { codesGeneratedTotal.Add(float64(n)) }

func IncGenerationFailure(reason string) {
	codeGenerationFailuresTotal.WithLabelValues(norm(reason)).Inc()
}

func IncRedemption(result string) {
	redemptionsTotal.WithLabelValues(norm(result)).Inc()
}
