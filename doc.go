/*
Package betterfuture provides lazy, cancelable, pausable futures for Go,
with bounded-concurrency pools, aggregating task groups and time-based
scheduling built on top of them.

Futures (pkg/future):
  - lazy computations that run only once awaited or started
  - cooperative pause, resume, cancellation and dual timeout timers
  - derived futures (Then, When, Catch, Finally) and combinators
    (All, Any, Race, AllSettled)

Pools (pkg/pool):
  - FIFO admission under a fixed concurrency ceiling
  - per-task timeouts measured from each task's own start
  - optional Prometheus instrumentation

Groups (pkg/group):
  - FIRST, ALL, ANY, ALL_SETTLED and REDUCE aggregation policies
  - background and daemon members alongside value-bearing ones
  - a live registry of unsettled groups

Scheduling (pkg/scheduler):
  - one-time, repeating and cron-based dispatch of tasks,
    optionally through a pool

Example usage:

	import (
		"github.com/BobKerns/better-future/pkg/future"
		"github.com/BobKerns/better-future/pkg/pool"
	)

	p := pool.New(4)
	f := pool.AddFunc(p, func(c *future.Context[string]) (string, error) {
		return fetchReport()
	})

	report, err := f.Wait(ctx)
*/
package betterfuture
