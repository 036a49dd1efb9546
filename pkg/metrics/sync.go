package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records reconciliation run outcomes and item churn.
type SyncMetrics struct {
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	created     prometheus.Counter
	archived    prometheus.Counter
	reactivated prometheus.Counter
	duplicates  prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Reconciliation runs by result.",
	}, []string{"result"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_run_duration_seconds",
		Help:    "Duration of reconciliation runs in seconds.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_items_created_total",
		Help: "Production items created by reconciliation.",
	})
	archived := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_items_archived_total",
		Help: "Production items archived by reconciliation.",
	})
	reactivated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_items_reactivated_total",
		Help: "Production items reactivated by reconciliation.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_duplicates_archived_total",
		Help: "Duplicate items collapsed by remediation.",
	})
	reg.MustRegister(runs, runDuration, created, archived, reactivated, duplicates)
	return &SyncMetrics{
		runs:        runs,
		runDuration: runDuration,
		created:     created,
		archived:    archived,
		reactivated: reactivated,
		duplicates:  duplicates,
	}
}

// ObserveRun records one finished run.
func (s *SyncMetrics) ObserveRun(duration time.Duration, success bool) {
	if s == nil || s.runs == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	s.runs.WithLabelValues(result).Inc()
	s.runDuration.Observe(duration.Seconds())
}

// CountItems adds the per-run item churn to the counters.
func (s *SyncMetrics) CountItems(created, archived, reactivated, duplicates int) {
	if s == nil || s.created == nil {
		return
	}
	s.created.Add(float64(created))
	s.archived.Add(float64(archived))
	s.reactivated.Add(float64(reactivated))
	s.duplicates.Add(float64(duplicates))
}
