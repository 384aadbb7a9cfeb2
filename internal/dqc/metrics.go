package dqc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "dqc"
	subsystem        = "compiler"
)

var (
	// Compile outcomes
	compilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "compiles_total",
			Help:      "Total number of compile requests by outcome",
		},
		[]string{"status"},
	)

	compileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "compile_duration_seconds",
			Help:      "Time spent extracting a partitioned circuit",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
	)

	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of compile requests served from the result cache",
		},
	)

	// Emitted remote operations
	remoteOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "remote_operations_total",
			Help:      "Total number of remote protocol steps emitted into compiled circuits",
		},
		[]string{"operation"},
	)

	parkedQubits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "parked_qubits_total",
			Help:      "Total number of qubits parked on a communication slot for lack of data capacity",
		},
	)

	storedJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "stored_jobs",
			Help:      "Current number of compile jobs held in memory",
		},
	)

	executions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "executions_total",
			Help:      "Total number of compiled circuits handed to the executor by outcome",
		},
		[]string{"status"},
	)
)
