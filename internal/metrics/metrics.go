package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission metrics - Track write requests sent to the ledger
var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luckysol_submissions_total",
			Help: "Total number of submissions by action and final status",
		},
		[]string{"action", "status"},
	)

	SubmissionAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luckysol_submission_attempts",
			Help:    "Number of attempts used by each submission",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"action"},
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luckysol_retries_total",
			Help: "Total number of retried attempts by failure reason",
		},
		[]string{"reason"},
	)

	ConfirmationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "luckysol_confirmation_duration_seconds",
		Help:    "Time between send and confirmation of a transaction",
		Buckets: prometheus.DefBuckets,
	})
)

// Guard metrics - Track duplicate submission suppression
var (
	GuardRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luckysol_guard_rejections_total",
			Help: "Total number of submissions rejected as duplicate in flight",
		},
		[]string{"action"},
	)

	GuardActiveLeases = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "luckysol_guard_active_leases",
		Help: "Number of unexpired submission leases",
	})
)

// Decode metrics - Track account parsing health
var (
	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luckysol_decode_failures_total",
			Help: "Total number of account records that failed to decode",
		},
		[]string{"record", "kind"},
	)

	InvariantViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luckysol_invariant_violations_total",
			Help: "Total number of decoded records violating a data-model invariant",
		},
		[]string{"record"},
	)

	FallbackReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luckysol_fallback_reads_total",
			Help: "Reads served by the fallback source, by result",
		},
		[]string{"result"},
	)
)

// RPC and sync metrics
var (
	RPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luckysol_rpc_request_duration_seconds",
			Help:    "Latency of ledger RPC requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	SnapshotsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luckysol_snapshots_saved_total",
			Help: "Total number of account snapshots persisted by kind",
		},
		[]string{"kind"},
	)

	RoundsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "luckysol_rounds_tracked",
		Help: "Number of rounds seen in the last sync pass",
	})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "luckysol_sync_duration_seconds",
		Help:    "Time taken by one sync pass",
		Buckets: prometheus.DefBuckets,
	})
)

// Error metrics - Track failures
var (
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luckysol_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component"},
	)
)
