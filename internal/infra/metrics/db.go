package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbPoolAcquireWaits) }

var dbPoolConns = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "db_pool_conns",
		Help: "Connections in the Postgres pool by state.",
	},
	[]string{"state"}, // 'total', 'idle', 'in_use', 'max'
)

var dbPoolAcquireWaits = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_pool_empty_acquire_total",
		Help: "Cumulative acquires that had to wait for a free connection.",
	},
)

// PoolSnapshot is the subset of pool statistics exported as gauges.
type PoolSnapshot struct {
	Total         int32
	Idle          int32
	InUse         int32
	Max           int32
	EmptyAcquires int64
}

func SetDBPoolStats(s PoolSnapshot) {
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("in_use").Set(float64(s.InUse))
	dbPoolConns.WithLabelValues("max").Set(float64(s.Max))
	dbPoolAcquireWaits.Set(float64(s.EmptyAcquires))
}
