package services

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recompute outcomes used as the "outcome" label.
const (
	outcomeOK             = "ok"
	outcomeNotFound       = "not_found"
	outcomeStorageFailure = "storage_failure"
	outcomeCanceled       = "canceled"
)

var (
	// recomputeTotal counts recompute runs by window range and outcome.
	// Collapsed duplicate calls are not counted.
	recomputeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_attribution_recompute_total",
			Help: "Total number of attribution recomputes.",
		},
		[]string{"range", "outcome"},
	)

	// recomputeDuration records wall time of a recompute, transaction included.
	recomputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_attribution_recompute_duration_seconds",
			Help:    "Duration of attribution recomputes in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"range"},
	)

	// rowsWritten counts rollup rows upserted by successful recomputes.
	rowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_attribution_rows_written_total",
			Help: "Total number of attribution rows written.",
		},
		[]string{"range"},
	)
)

func init() {
	prometheus.MustRegister(recomputeTotal, recomputeDuration, rowsWritten)
}

// observeRecompute records one finished recompute.
func observeRecompute(rangeDays int, outcome string, rows int, took time.Duration) {
	r := strconv.Itoa(rangeDays)
	recomputeTotal.WithLabelValues(r, outcome).Inc()
	recomputeDuration.WithLabelValues(r).Observe(took.Seconds())
	if outcome == outcomeOK {
		rowsWritten.WithLabelValues(r).Add(float64(rows))
	}
}
