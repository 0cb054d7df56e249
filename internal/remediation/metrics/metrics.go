package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FailuresTotal tracks failures entering the pipeline
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remediator_failures_total",
			Help: "Total number of failures handled by the pipeline",
		},
		[]string{"kind", "category"},
	)

	// CorrectionsTotal tracks correction attempts by action and outcome
	CorrectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remediator_corrections_total",
			Help: "Total number of correction attempts",
		},
		[]string{"action", "outcome"},
	)

	// HandlerOutcomes tracks executor handler results by action
	HandlerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remediator_handler_outcomes_total",
			Help: "Total number of correction handler runs by result",
		},
		[]string{"action", "outcome"},
	)

	// StrategyMisses tracks failures for which no strategy matched
	StrategyMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remediator_strategy_misses_total",
			Help: "Total number of failures without an applicable correction strategy",
		},
		[]string{"kind"},
	)

	// HandlerDuration tracks correction handler latency
	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remediator_handler_duration_seconds",
			Help:    "Correction handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// AuditWriteErrors tracks swallowed audit store write failures
	AuditWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remediator_audit_write_errors_total",
			Help: "Total number of audit store writes that failed",
		},
		[]string{"op"},
	)

	// DBConnectionPoolUsage tracks the percentage of open connections in use
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remediator_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)
)
