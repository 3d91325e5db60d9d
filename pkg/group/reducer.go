package group

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/BobKerns/better-future/pkg/future"
)

// ReducerFunc is the body of a reducer coroutine. It runs on its own
// goroutine, created once per group at group start, and pulls settled
// member outcomes through the ReducerContext one at a time. Its return
// value becomes the group's fulfillment; a returned error rejects the
// group.
//
// A running-average reducer looks like:
//
//	func(rc *group.ReducerContext[float64]) (float64, error) {
//		var sum float64
//		var n int
//		for {
//			v, idx, err := rc.Next()
//			if idx < 0 {
//				break
//			}
//			if err != nil {
//				continue // swallow this member's failure
//			}
//			sum += v
//			n++
//		}
//		if n == 0 {
//			return 0, errors.New("no values")
//		}
//		return sum / float64(n), nil
//	}
type ReducerFunc[T, R any] func(rc *ReducerContext[T]) (R, error)

// ReducerContext delivers settled member outcomes to a reducer coroutine.
type ReducerContext[T any] struct {
	in <-chan reduceItem[T]
}

type reduceItem[T any] struct {
	val T
	idx int
	err error
}

// Next blocks for the next (value, sourceIndex) pair. A rejected member is
// delivered with a non-nil error and the zero value; the reducer may
// swallow the failure and keep going, or return it to fail the whole
// group. Once every member has reported, Next returns index -1 and the
// reducer should produce its final aggregate.
func (rc *ReducerContext[T]) Next() (T, int, error) {
	it, ok := <-rc.in
	if !ok {
		var zero T
		return zero, -1, nil
	}
	return it.val, it.idx, it.err
}

type reduceResult[R any] struct {
	val R
	err error
}

// reducer drives a ReducerFunc on its own goroutine. Sends and the final
// close are strictly serialized by the single aggregation loop.
type reducer[T, R any] struct {
	in   chan reduceItem[T]
	out  chan reduceResult[R]
	once sync.Once
}

func startReducer[T, R any](fn ReducerFunc[T, R]) *reducer[T, R] {
	r := &reducer[T, R]{
		in:  make(chan reduceItem[T]),
		out: make(chan reduceResult[R], 1),
	}
	rc := &ReducerContext[T]{in: r.in}
	go func() {
		defer func() {
			if p := recover(); p != nil {
				var zero R
				r.out <- reduceResult[R]{zero, fmt.Errorf("reducer panicked: %v\n%s", p, debug.Stack())}
			}
		}()
		v, err := fn(rc)
		r.out <- reduceResult[R]{v, err}
	}()
	return r
}

// finish closes the input channel, which Next reports as the sentinel
// index -1. Safe to call more than once; also used to unblock the
// coroutine when the group is torn down early.
func (r *reducer[T, R]) finish() {
	r.once.Do(func() { close(r.in) })
}

// reduceAggregate adapts a ReducerFunc to the aggregation loop. Each
// settlement is handed to the coroutine as it arrives, so space stays O(1)
// in the member count.
func reduceAggregate[T, R any](fn ReducerFunc[T, R]) aggregateFunc[T, R] {
	return func(c *future.Context[R], members []*future.Future[T], events <-chan settlement[T]) (R, error) {
		var zero R
		red := startReducer(fn)
		defer red.finish()

		for remaining := len(members); remaining > 0; remaining-- {
			select {
			case ev := <-events:
				select {
				case red.in <- reduceItem[T]{val: ev.val, idx: ev.idx, err: ev.err}:
				case res := <-red.out:
					// The coroutine finished early, propagating or
					// producing on its own terms.
					return res.val, res.err
				case <-c.Done():
					return zero, c.Err()
				}
			case res := <-red.out:
				return res.val, res.err
			case <-c.Done():
				return zero, c.Err()
			}
		}

		red.finish()
		select {
		case res := <-red.out:
			return res.val, res.err
		case <-c.Done():
			return zero, c.Err()
		}
	}
}
