// Package integration contains integration tests that verify cross-package
// functionality: futures running through pools, aggregated by groups and
// dispatched by the scheduler.
package integration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BobKerns/better-future/internal/testutil"
	"github.com/BobKerns/better-future/pkg/future"
	"github.com/BobKerns/better-future/pkg/group"
	"github.com/BobKerns/better-future/pkg/pool"
	"github.com/BobKerns/better-future/pkg/scheduler"
)

// TestGroupOverPoolRespectsCeiling verifies that a group whose members run
// through a pool never exceeds the pool's concurrency ceiling, and that the
// aggregate still arrives in insertion order.
func TestGroupOverPoolRespectsCeiling(t *testing.T) {
	p := pool.New(2)

	var current, peak atomic.Int32
	g := group.All[int](group.Config{Name: "batch", Pool: p})
	for i := 0; i < 6; i++ {
		i := i
		g.Add(future.NewWithConfig(func(c *future.Context[int]) (int, error) {
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(15 * time.Millisecond)
			current.Add(-1)
			return i, nil
		}, future.Config{Cancelable: true}))
	}

	vs, err := g.Wait(context.Background())
	testutil.AssertNoError(t, err, "group over pool should complete")
	for i, v := range vs {
		testutil.AssertEqual(t, i, v, "values follow insertion order")
	}
	if peak.Load() > 2 {
		t.Errorf("pool ran %d members at once, ceiling is 2", peak.Load())
	}
	testutil.AssertEqual(t, int64(6), p.TotalCompleted(), "every member ran through the pool")
}

// TestPoolTimeoutPropagatesThroughReduce verifies that a member timed out
// by the pool is delivered to a reducer as a failure it can swallow,
// letting the rest of the batch succeed.
func TestPoolTimeoutPropagatesThroughReduce(t *testing.T) {
	clock := testutil.NewVirtualClock(time.Time{})
	p := pool.NewWithConfig(pool.Config{
		Size:        3,
		TaskTimeout: 50 * time.Millisecond,
		Name:        "bounded",
		Clock:       clock,
	})

	sumSurvivors := func(rc *group.ReducerContext[int]) (int, error) {
		total := 0
		for {
			v, idx, err := rc.Next()
			if idx < 0 {
				return total, nil
			}
			if err != nil {
				if !errors.Is(err, future.ErrTimeout) {
					return 0, err
				}
				continue
			}
			total += v
		}
	}

	stuck := future.Never[int]()
	g := group.Reduce[int, int](sumSurvivors, group.Config{Pool: p}).
		Add(future.NewFunc(func() (int, error) { return 1, nil })).
		Add(stuck).
		Add(future.NewFunc(func() (int, error) { return 2, nil }))
	g.Start()

	testutil.Eventually(t, time.Second, func() bool {
		return stuck.State() == future.Running
	}, "stuck member should be admitted")

	clock.Advance(50 * time.Millisecond)
	total, err := g.Wait(context.Background())
	testutil.AssertNoError(t, err, "the reducer swallowed the timeout")
	testutil.AssertEqual(t, 3, total, "surviving members still contribute")
	testutil.AssertEqual(t, future.Timeout, stuck.State(), "the stuck member was timed out by the pool")
}

// TestScheduledWorkRunsThroughPool verifies the full path: the scheduler
// dispatches task factories into a pool and every job runs to completion.
func TestScheduledWorkRunsThroughPool(t *testing.T) {
	p := pool.New(2)
	s := scheduler.NewWithConfig(scheduler.Config{
		Pool:         p,
		TickInterval: 5 * time.Millisecond,
		Name:         "integration",
	})
	testutil.AssertNoError(t, s.Start(), "scheduler should start")
	defer func() { <-s.Stop() }()

	results := make(chan int, 3)
	for i, id := range []string{"job-a", "job-b", "job-c"} {
		i := i
		err := s.ScheduleAfter(id, func() future.Task {
			return future.NewFunc(func() (int, error) {
				v := i * 10
				results <- v
				return v, nil
			}).AsTask()
		}, time.Duration(i+1)*10*time.Millisecond)
		testutil.AssertNoError(t, err, "schedule should succeed")
	}

	got := map[int]bool{}
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case v := <-results:
			got[v] = true
		case <-deadline:
			t.Fatalf("only %d of 3 scheduled jobs ran", len(got))
		}
	}
	for _, want := range []int{0, 10, 20} {
		if !got[want] {
			t.Errorf("missing result %d", want)
		}
	}
	testutil.AssertEqual(t, int64(3), p.TotalAdded(), "jobs should have been dispatched through the pool")
}
