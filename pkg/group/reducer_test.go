package group_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BobKerns/better-future/internal/testutil"
	"github.com/BobKerns/better-future/pkg/future"
	"github.com/BobKerns/better-future/pkg/group"
)

func runningAverage(rc *group.ReducerContext[int]) (float64, error) {
	var sum, n int
	for {
		v, idx, err := rc.Next()
		if idx < 0 {
			break
		}
		if err != nil {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, errors.New("no values to average")
	}
	return float64(sum) / float64(n), nil
}

func TestReduceRunningAverage(t *testing.T) {
	g := group.Reduce[int, float64](runningAverage, group.Config{Name: "avg"}).
		Add(value(10, 20*time.Millisecond)).
		Add(value(20, 0)).
		Add(value(30, 10*time.Millisecond))

	avg, err := g.Wait(context.Background())
	testutil.AssertNoError(t, err, "reduce group should fulfill with the aggregate")
	testutil.AssertEqual(t, 20.0, avg, "average of 10, 20 and 30")
}

func TestReduceSwallowsMemberFailures(t *testing.T) {
	g := group.Reduce[int, float64](runningAverage, group.Config{}).
		Add(value(10, 0)).
		Add(failure(errors.New("ignored by the reducer"))).
		Add(value(30, 0))

	avg, err := g.Wait(context.Background())
	testutil.AssertNoError(t, err, "a reducer may swallow member failures")
	testutil.AssertEqual(t, 20.0, avg, "average of the surviving values")
}

func TestReducePropagatesMemberFailure(t *testing.T) {
	boom := errors.New("fatal member failure")
	propagate := func(rc *group.ReducerContext[int]) (int, error) {
		var sum int
		for {
			v, idx, err := rc.Next()
			if idx < 0 {
				return sum, nil
			}
			if err != nil {
				return 0, err
			}
			sum += v
		}
	}

	g := group.Reduce[int, int](propagate, group.Config{}).
		Add(value(1, 0)).
		Add(failure(boom))

	_, err := g.Wait(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("returning a member failure should reject the group, got %v", err)
	}
}

func TestReduceEarlyReturn(t *testing.T) {
	firstOnly := func(rc *group.ReducerContext[int]) (int, error) {
		v, idx, err := rc.Next()
		if idx < 0 || err != nil {
			return 0, err
		}
		return v, nil
	}

	slow := value(2, 50*time.Millisecond)
	g := group.Reduce[int, int](firstOnly, group.Config{}).
		Add(value(1, 0)).
		Add(slow)

	v, err := g.Wait(context.Background())
	testutil.AssertNoError(t, err, "a reducer may finish before every member reports")
	testutil.AssertEqual(t, 1, v, "the early aggregate wins")

	<-slow.Done()
}

func TestReduceEmptyGroup(t *testing.T) {
	g := group.Reduce[int, float64](runningAverage, group.Config{})

	_, err := g.Wait(context.Background())
	testutil.AssertError(t, err, "the reducer decides what an empty group means")
	if !strings.Contains(err.Error(), "no values") {
		t.Errorf("expected the reducer's own failure, got %v", err)
	}
}

func TestReducePanicRejectsGroup(t *testing.T) {
	explode := func(rc *group.ReducerContext[int]) (int, error) {
		panic("reducer blew up")
	}

	g := group.Reduce[int, int](explode, group.Config{}).Add(value(1, 0))

	_, err := g.Wait(context.Background())
	testutil.AssertError(t, err, "a panicking reducer should reject the group")
	if !strings.Contains(err.Error(), "reducer blew up") {
		t.Errorf("rejection should carry the panic value: %v", err)
	}
}

func TestReduceDeliveriesAreOrderedBySettlement(t *testing.T) {
	indices := make([]int, 0, 3)
	collect := func(rc *group.ReducerContext[int]) (int, error) {
		for {
			_, idx, _ := rc.Next()
			if idx < 0 {
				return len(indices), nil
			}
			indices = append(indices, idx)
		}
	}

	g := group.Reduce[int, int](collect, group.Config{}).
		Add(value(1, 40*time.Millisecond)).
		Add(value(2, 0)).
		Add(value(3, 20*time.Millisecond))

	n, err := g.Wait(context.Background())
	testutil.AssertNoError(t, err, "collector should see every member")
	testutil.AssertEqual(t, 3, n, "one delivery per member")

	testutil.AssertEqual(t, 1, indices[0], "fastest member delivered first")
	testutil.AssertEqual(t, 2, indices[1], "middle member delivered second")
	testutil.AssertEqual(t, 0, indices[2], "slowest member delivered last")
}

func TestReduceCancelledGroupUnblocksReducer(t *testing.T) {
	member := future.Never[int]()
	g := group.Reduce[int, float64](runningAverage, group.Config{}).Add(member)
	g.Start()

	g.ForceCancel("teardown")
	_, err := g.Wait(context.Background())
	if !errors.Is(err, future.ErrCancelled) {
		t.Errorf("cancelled reduce group should reject with the cancellation, got %v", err)
	}

	<-member.Done()
}
