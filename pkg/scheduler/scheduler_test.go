package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/BobKerns/better-future/internal/testutil"
	"github.com/BobKerns/better-future/pkg/future"
	"github.com/BobKerns/better-future/pkg/pool"
)

func countingFactory(n *atomic.Int32) TaskFactory {
	return func() future.Task {
		return future.NewFunc(func() (int32, error) {
			return n.Add(1), nil
		}).AsTask()
	}
}

func TestScheduleValidation(t *testing.T) {
	s := New()

	factory := countingFactory(&atomic.Int32{})

	err := s.Schedule("", factory, time.Now())
	testutil.AssertError(t, err, "empty ID should be rejected")

	err = s.Schedule("task", nil, time.Now())
	testutil.AssertError(t, err, "nil factory should be rejected")

	err = s.Schedule("task", factory, time.Time{})
	testutil.AssertError(t, err, "zero run time should be rejected")

	err = s.Schedule("task", factory, time.Now().Add(time.Hour))
	testutil.AssertNoError(t, err, "valid schedule should succeed")

	err = s.Schedule("task", factory, time.Now().Add(time.Hour))
	testutil.AssertError(t, err, "duplicate ID should be rejected")
}

func TestScheduleAfterFires(t *testing.T) {
	s := NewWithConfig(Config{TickInterval: 5 * time.Millisecond})
	testutil.AssertNoError(t, s.Start(), "Start should succeed")
	defer func() { <-s.Stop() }()

	var fired atomic.Int32
	err := s.ScheduleAfter("once", countingFactory(&fired), 10*time.Millisecond)
	testutil.AssertNoError(t, err, "ScheduleAfter should succeed")

	testutil.Eventually(t, time.Second, func() bool {
		return fired.Load() == 1
	}, "one-time entry should fire exactly once")

	time.Sleep(30 * time.Millisecond)
	testutil.AssertEqual(t, int32(1), fired.Load(), "one-time entry should not fire again")
	testutil.AssertEqual(t, 0, len(s.List()), "fired one-time entry should be removed")
}

func TestScheduleRepeating(t *testing.T) {
	s := NewWithConfig(Config{TickInterval: 5 * time.Millisecond})
	testutil.AssertNoError(t, s.Start(), "Start should succeed")
	defer func() { <-s.Stop() }()

	var fired atomic.Int32
	err := s.ScheduleRepeating("tick", countingFactory(&fired), 10*time.Millisecond)
	testutil.AssertNoError(t, err, "ScheduleRepeating should succeed")

	testutil.Eventually(t, time.Second, func() bool {
		return fired.Load() >= 3
	}, "repeating entry should fire multiple times")

	testutil.AssertEqual(t, true, s.Cancel("tick"), "Cancel should remove the entry")
	testutil.AssertEqual(t, false, s.Cancel("tick"), "second Cancel should report missing")
}

func TestScheduleRepeatingRejectsBadInterval(t *testing.T) {
	s := New()
	err := s.ScheduleRepeating("tick", countingFactory(&atomic.Int32{}), 0)
	testutil.AssertError(t, err, "non-positive interval should be rejected")
}

func TestScheduleCron(t *testing.T) {
	s := New()
	factory := countingFactory(&atomic.Int32{})

	err := s.ScheduleCron("bad", "not a cron expr", factory)
	testutil.AssertError(t, err, "invalid cron expression should be rejected")

	err = s.ScheduleCron("empty", "", factory)
	testutil.AssertError(t, err, "empty cron expression should be rejected")

	err = s.ScheduleCron("hourly", "0 0 * * * *", factory)
	testutil.AssertNoError(t, err, "valid cron expression should be accepted")

	entries := s.List()
	testutil.AssertEqual(t, 1, len(entries), "cron entry should be listed")
	if !entries[0].RunAt.After(time.Now()) {
		t.Error("cron entry should have a future run time")
	}
}

func TestListSortedByRunTime(t *testing.T) {
	s := New()
	factory := countingFactory(&atomic.Int32{})

	now := time.Now()
	testutil.AssertNoError(t, s.Schedule("late", factory, now.Add(2*time.Hour)), "schedule late")
	testutil.AssertNoError(t, s.Schedule("early", factory, now.Add(time.Hour)), "schedule early")

	entries := s.List()
	testutil.AssertEqual(t, 2, len(entries), "both entries should be listed")
	testutil.AssertEqual(t, "early", entries[0].ID, "entries should be sorted by run time")
	testutil.AssertEqual(t, "late", entries[1].ID, "entries should be sorted by run time")

	s.CancelAll()
	testutil.AssertEqual(t, 0, len(s.List()), "CancelAll should clear every entry")
}

func TestDispatchThroughPool(t *testing.T) {
	p := pool.New(1)
	s := NewWithConfig(Config{
		TickInterval: 5 * time.Millisecond,
		Pool:         p,
		Name:         "pooled",
	})
	testutil.AssertNoError(t, s.Start(), "Start should succeed")
	defer func() { <-s.Stop() }()

	var fired atomic.Int32
	for _, id := range []string{"a", "b", "c"} {
		err := s.ScheduleAfter(id, countingFactory(&fired), time.Millisecond)
		testutil.AssertNoError(t, err, "schedule should succeed")
	}

	testutil.Eventually(t, time.Second, func() bool {
		return fired.Load() == 3
	}, "all entries should run through the pool")
	testutil.AssertEqual(t, int64(3), p.TotalAdded(), "pool should have received every dispatch")
}

func TestLifecycle(t *testing.T) {
	s := New()

	select {
	case <-s.Stop():
	case <-time.After(time.Second):
		t.Fatal("Stop before Start should return a closed channel")
	}

	testutil.AssertNoError(t, s.Start(), "Start should succeed")
	testutil.AssertError(t, s.Start(), "second Start should be rejected")

	select {
	case <-s.Stop():
	case <-time.After(time.Second):
		t.Fatal("Stop should complete once the loop exits")
	}
}

func TestRestartAfterStop(t *testing.T) {
	s := NewWithConfig(Config{TickInterval: 5 * time.Millisecond})

	testutil.AssertNoError(t, s.Start(), "first Start should succeed")
	select {
	case <-s.Stop():
	case <-time.After(time.Second):
		t.Fatal("Stop should complete once the loop exits")
	}

	testutil.AssertNoError(t, s.Start(), "Start after Stop should succeed")
	defer func() { <-s.Stop() }()

	var fired atomic.Int32
	err := s.ScheduleAfter("again", countingFactory(&fired), time.Millisecond)
	testutil.AssertNoError(t, err, "schedule on restarted scheduler should succeed")

	testutil.Eventually(t, time.Second, func() bool {
		return fired.Load() == 1
	}, "restarted scheduler should dispatch entries")
}
