package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	candidatesTotal  *prometheus.CounterVec
	promotionsTotal  *prometheus.CounterVec
	baselineDegraded prometheus.Counter
	bestMetric       *prometheus.GaugeVec
	fitDuration      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		candidatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridcast_candidates_evaluated_total",
				Help: "Total number of candidate evaluations by family and outcome",
			},
			[]string{"family", "status"},
		),
		promotionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridcast_selection_decisions_total",
				Help: "Total number of selection decisions by outcome",
			},
			[]string{"decision"},
		),
		baselineDegraded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gridcast_baseline_degraded_total",
				Help: "Selections that fell back to the stale recorded baseline metric",
			},
		),
		bestMetric: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridcast_best_candidate_metric",
				Help: "Primary metric of the current run's best candidate",
			},
			[]string{"metric"},
		),
		fitDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridcast_fit_duration_seconds",
				Help:    "Duration of candidate fit calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"family"},
		),
	}
}

// RecordCandidate records one finished candidate evaluation.
func (r *Recorder) RecordCandidate(family string, failed bool) {
	status := "ok"
	if failed {
		status = "failed"
	}
	r.candidatesTotal.WithLabelValues(family, status).Inc()
}

// RecordPromotion records the selection outcome of a run.
func (r *Recorder) RecordPromotion(promoted bool) {
	decision := "retained"
	if promoted {
		decision = "promoted"
	}
	r.promotionsTotal.WithLabelValues(decision).Inc()
}

// RecordBaselineDegraded counts stale-baseline fallbacks.
func (r *Recorder) RecordBaselineDegraded() {
	r.baselineDegraded.Inc()
}

// RecordBestMetric records the best candidate's primary metric value.
func (r *Recorder) RecordBestMetric(metric string, value float64) {
	r.bestMetric.WithLabelValues(metric).Set(value)
}

// RecordFitDuration records one fit call's duration in seconds.
func (r *Recorder) RecordFitDuration(family string, seconds float64) {
	r.fitDuration.WithLabelValues(family).Observe(seconds)
}
