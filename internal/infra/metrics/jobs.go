package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		chargeJobsTotal,
		chargeJobLatencyMs,
	)
}

var (
	chargeJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charge_jobs_total",
			Help: "Charge jobs by final per-attempt outcome (succeeded/rescheduled/failed).",
		},
		[]string{"outcome"},
	)

	chargeJobLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "charge_job_latency_ms",
			Help:    "Charge job execution latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
	)
)

func IncChargeJob(outcome string) {
	chargeJobsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveChargeJobLatency(ms int) {
	chargeJobLatencyMs.Observe(float64(ms))
}
