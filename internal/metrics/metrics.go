package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_events_enqueued_total",
		Help: "Total number of events accepted into the engine inbox.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_events_dropped_total",
		Help: "Total number of events rejected due to a full inbox.",
	})

	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_events_processed_total",
		Help: "Total number of events fully processed by a drain pass.",
	})

	EventsDeferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_events_deferred_total",
		Help: "Total number of events pushed back to the queue on budget exhaustion.",
	})

	HandlersFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simflow_handlers_fired_total",
		Help: "Total number of handler firings, labelled by scenario.",
	}, []string{"scenario"})

	GuardEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_guard_evaluations_total",
		Help: "Total number of guard script evaluations.",
	})

	GuardTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_guard_timeouts_total",
		Help: "Total number of guard evaluations aborted by the step budget.",
	})

	GuardFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_guard_failures_total",
		Help: "Total number of guard compile or runtime failures.",
	})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simflow_actions_executed_total",
		Help: "Total number of actions executed, labelled by type and status.",
	}, []string{"action_type", "status"})

	ProcessesScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_processes_scheduled_total",
		Help: "Total number of process schedule or reschedule operations.",
	})

	ProcessesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_processes_completed_total",
		Help: "Total number of processes popped due from the scheduler.",
	})

	SchedulerStaleDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_scheduler_stale_dropped_total",
		Help: "Total number of stale heap nodes silently discarded on pop.",
	})

	QueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simflow_queue_length",
		Help: "Events remaining in the dispatch queue after the last drain.",
	})

	InboxUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simflow_inbox_utilization_ratio",
		Help: "Current event inbox utilization (0–1).",
	})

	DrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "simflow_drain_duration_ms",
		Help:    "Duration of one drain pass in milliseconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
	})

	Warnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simflow_warnings_total",
		Help: "Total number of diagnostics emitted through the warning sink.",
	})
)
