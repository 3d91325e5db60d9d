package pool

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BobKerns/better-future/pkg/future"
	"github.com/BobKerns/better-future/pkg/metrics"
)

// MetricsPool wraps a Pool with Prometheus metrics collection. The toggle
// may be flipped while tasks are in flight.
type MetricsPool struct {
	pool     Pool
	name     string
	registry *metrics.Registry
	enabled  atomic.Bool
}

// NewWithMetrics creates a pool with metrics enabled on its own registry.
func NewWithMetrics(size int, name string) Pool {
	registry := prometheus.NewRegistry()
	return NewWithConfigAndMetrics(Config{Size: size, Name: name}, metrics.Config{
		Enabled:  true,
		Registry: registry,
	})
}

// NewWithConfigAndMetrics creates a pool with custom config and metrics.
func NewWithConfigAndMetrics(cfg Config, metricsConfig metrics.Config) Pool {
	base := NewWithConfig(cfg)
	if !metricsConfig.Enabled {
		return base
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	mp := &MetricsPool{
		pool:     base,
		name:     cfg.Name,
		registry: registry,
	}
	mp.enabled.Store(true)
	mp.updateGauges()
	return mp
}

func (mp *MetricsPool) updateGauges() {
	if !mp.enabled.Load() {
		return
	}
	mp.registry.PoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	mp.registry.PoolRunning.WithLabelValues(mp.name).Set(float64(mp.pool.Running()))
	mp.registry.PoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.Queued()))
}

// Add enqueues the task and records admission metrics around its lifecycle.
func (mp *MetricsPool) Add(t future.Task) future.Task {
	if mp.enabled.Load() {
		mp.registry.PoolTasksAdded.WithLabelValues(mp.name).Inc()
		t.OnSettled(func() {
			mp.registry.PoolTasksCompleted.
				WithLabelValues(mp.name, t.State().String()).
				Inc()
			if start := t.StartTime(); !start.IsZero() {
				mp.registry.PoolTaskDuration.
					WithLabelValues(mp.name).
					Observe(t.EndTime().Sub(start).Seconds())
			}
			mp.updateGauges()
		})
	}

	mp.pool.Add(t)
	if mp.enabled.Load() {
		mp.updateGauges()
	}
	return t
}

// Name returns the pool's name.
func (mp *MetricsPool) Name() string { return mp.pool.Name() }

// Size returns the concurrency ceiling.
func (mp *MetricsPool) Size() int { return mp.pool.Size() }

// Running returns the number of currently admitted tasks.
func (mp *MetricsPool) Running() int {
	running := mp.pool.Running()
	if mp.enabled.Load() {
		mp.registry.PoolRunning.WithLabelValues(mp.name).Set(float64(running))
	}
	return running
}

// Queued returns the number of tasks waiting for admission.
func (mp *MetricsPool) Queued() int {
	queued := mp.pool.Queued()
	if mp.enabled.Load() {
		mp.registry.PoolQueued.WithLabelValues(mp.name).Set(float64(queued))
	}
	return queued
}

// TotalAdded returns the total number of tasks ever added.
func (mp *MetricsPool) TotalAdded() int64 { return mp.pool.TotalAdded() }

// TotalCompleted returns the total number of settled tasks.
func (mp *MetricsPool) TotalCompleted() int64 { return mp.pool.TotalCompleted() }

// EnableMetrics enables metrics collection.
func (mp *MetricsPool) EnableMetrics(config metrics.Config) error {
	if config.Registry != nil {
		mp.registry = metrics.NewRegistry(config.Registry)
	}
	mp.enabled.Store(config.Enabled)
	if mp.enabled.Load() {
		mp.updateGauges()
	}
	return nil
}

// DisableMetrics disables metrics collection.
func (mp *MetricsPool) DisableMetrics() {
	mp.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mp *MetricsPool) MetricsEnabled() bool {
	return mp.enabled.Load()
}
