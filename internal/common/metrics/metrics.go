// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_reports_generated_total",
			Help: "Total number of fraud reports requested, by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	ReportsRepaired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_reports_repaired_total",
			Help: "Reports whose model output lacked every section header and was rewrapped",
		},
		[]string{"provider"},
	)

	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraud_report_duration_seconds",
			Help:    "Duration of report generation including retries",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	ReportAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_report_completion_attempts_total",
			Help: "Completion endpoint calls, including retries",
		},
		[]string{"provider", "outcome"},
	)

	ReportCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_report_cache_lookups_total",
			Help: "Report cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Tool invocations by tool name and result variant",
		},
		[]string{"tool", "status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)
