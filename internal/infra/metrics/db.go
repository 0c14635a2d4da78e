package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats, dbAcquireTotal) }

var (
	dbPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_stats",
			Help: "Current state of the database connection pool.",
		},
		[]string{"state"}, // 'total', 'idle', 'in_use', 'max'
	)

	dbAcquireTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_acquires",
			Help: "Cumulative pool acquires reported by the driver, by outcome.",
		},
		[]string{"outcome"}, // 'ok', 'empty', 'canceled'
	)
)

// PoolSnapshot mirrors the fields of pgxpool.Stat we export.
type PoolSnapshot struct {
	Total    int32
	Idle     int32
	InUse    int32
	Max      int32
	Acquires int64
	Empty    int64
	Canceled int64
}

func SetDBPoolStats(s PoolSnapshot) {
	dbPoolStats.WithLabelValues("total").Set(float64(s.Total))
	dbPoolStats.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(s.InUse))
	dbPoolStats.WithLabelValues("max").Set(float64(s.Max))
	dbAcquireTotal.WithLabelValues("ok").Set(float64(s.Acquires))
	dbAcquireTotal.WithLabelValues("empty").Set(float64(s.Empty))
	dbAcquireTotal.WithLabelValues("canceled").Set(float64(s.Canceled))
}
