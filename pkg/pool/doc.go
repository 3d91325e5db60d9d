/*
Package pool provides bounded-concurrency execution of futures.

A pool admits queued tasks in insertion order while keeping the number of
running tasks at or below a fixed ceiling. Tasks are paused on enqueue and
resumed on admission, so a future handed to a pool does not run until a
slot frees up.

Basic usage:

	p := pool.New(2)

	f := pool.AddFunc(p, func(c *future.Context[int]) (int, error) {
		return fetch(c.Context())
	})

	v, err := f.Wait(context.Background())

A pool-wide per-task timeout can be configured; it is measured from each
task's own start, and forces the task into the TIMEOUT state on expiry:

	p := pool.NewWithConfig(pool.Config{
		Size:        4,
		TaskTimeout: 30 * time.Second,
		Name:        "ingest",
	})

Prometheus instrumentation is available through NewWithMetrics and
NewWithConfigAndMetrics, which wrap the pool in a MetricsPool recording
admission counters, per-task durations and queue gauges.
*/
package pool
