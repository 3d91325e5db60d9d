// Package metrics provides Prometheus instrumentation for pools, groups
// and schedulers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "betterfuture"

// Registry holds all metric instances for instrumented components.
type Registry struct {
	// Pool metrics
	PoolTasksAdded     *prometheus.CounterVec
	PoolTasksCompleted *prometheus.CounterVec
	PoolTaskDuration   *prometheus.HistogramVec
	PoolSize           *prometheus.GaugeVec
	PoolRunning        *prometheus.GaugeVec
	PoolQueued         *prometheus.GaugeVec

	// Group metrics
	GroupsLive    *prometheus.GaugeVec
	GroupsSettled *prometheus.CounterVec

	// Scheduler metrics
	TasksScheduled *prometheus.CounterVec
	TasksFired     *prometheus.CounterVec
}

// DefaultRegistry is the registry used when no custom registerer is given.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		PoolTasksAdded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "tasks_added_total",
				Help:      "Total number of tasks added to the pool",
			},
			[]string{"pool_name"},
		),

		PoolTasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "tasks_completed_total",
				Help:      "Total number of pool tasks that reached a terminal state",
			},
			[]string{"pool_name", "state"},
		),

		PoolTaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "task_duration_seconds",
				Help:      "Time from task start to settlement",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		PoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "size",
				Help:      "Configured concurrency ceiling of the pool",
			},
			[]string{"pool_name"},
		),

		PoolRunning: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "running",
				Help:      "Number of tasks currently admitted and running",
			},
			[]string{"pool_name"},
		),

		PoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "queued",
				Help:      "Number of tasks waiting for admission",
			},
			[]string{"pool_name"},
		),

		GroupsLive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "group",
				Name:      "live",
				Help:      "Number of groups created and not yet settled",
			},
			[]string{"policy"},
		),

		GroupsSettled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "group",
				Name:      "settled_total",
				Help:      "Total number of groups that reached a terminal state",
			},
			[]string{"policy", "state"},
		),

		TasksScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_scheduled_total",
				Help:      "Total number of schedule entries registered",
			},
			[]string{"scheduler_name"},
		),

		TasksFired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_fired_total",
				Help:      "Total number of scheduled tasks submitted for execution",
			},
			[]string{"scheduler_name"},
		),
	}
}
