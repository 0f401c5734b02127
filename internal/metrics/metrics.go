package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hintscan_events_emitted_total",
		Help: "Total number of event firings, labelled by event category and emission mode.",
	}, []string{"category", "mode"})

	ListenersInvoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hintscan_listeners_invoked_total",
		Help: "Total number of listener invocations across all firings.",
	})

	ListenerFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hintscan_listener_faults_total",
		Help: "Total number of listener faults, labelled by kind (error, panic, timeout).",
	}, []string{"kind"})

	ProblemsReported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hintscan_problems_reported_total",
		Help: "Total number of problems stored by collectors, labelled by severity.",
	}, []string{"severity"})

	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hintscan_scans_total",
		Help: "Total number of scans, labelled by outcome (finished, failed).",
	}, []string{"status"})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hintscan_scan_duration_ms",
		Help:    "End-to-end scan latency in milliseconds.",
		Buckets: []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	ScansEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hintscan_scans_enqueued_total",
		Help: "Total number of scans placed on the scan queue.",
	})

	ScansDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hintscan_scans_dropped_total",
		Help: "Total number of scans rejected due to a full queue.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hintscan_queue_utilization_ratio",
		Help: "Current scan queue utilization (0–1).",
	})
)
