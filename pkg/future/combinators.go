package future

import (
	"errors"
	"time"
)

// Outcome is the per-member settlement record produced by AllSettled.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Fulfilled reports whether the member produced a value.
func (o Outcome[T]) Fulfilled() bool { return o.Err == nil }

// Rejected reports whether the member produced a failure.
func (o Outcome[T]) Rejected() bool { return o.Err != nil }

// Resolve returns a future already fulfilled with v.
func Resolve[T any](v T) *Future[T] {
	f := &Future[T]{s: newShared[T](Config{})}
	f.s.mu.Lock()
	f.s.startFired = true
	f.s.startedAt = f.s.clock.Now()
	f.s.value = v
	f.s.finishLocked(Fulfilled, nil)
	return f
}

// Reject returns a future already rejected with err.
func Reject[T any](err error) *Future[T] {
	f := &Future[T]{s: newShared[T](Config{})}
	f.s.mu.Lock()
	f.s.startFired = true
	f.s.startedAt = f.s.clock.Now()
	f.s.finishLocked(Rejected, err)
	return f
}

// NewCancelled returns a future already cancelled with the given message.
// Awaiting it rejects with the recorded cancellation failure.
func NewCancelled[T any](message string) *Future[T] {
	f := &Future[T]{s: newShared[T](Config{})}
	f.s.mu.Lock()
	f.s.cancelLocked(message)
	return f
}

// Never returns a future that, once started, never settles on its own.
// It is cancelable so callers can still dispose of it.
func Never[T any]() *Future[T] {
	return NewWithConfig(func(c *Context[T]) (T, error) {
		<-c.Done()
		var zero T
		return zero, c.Err()
	}, Config{Cancelable: true})
}

// After returns a future that fulfills with the current time once d has
// elapsed after it starts.
func After(d time.Duration) *Future[time.Time] {
	return NewWithConfig(func(c *Context[time.Time]) (time.Time, error) {
		fired := make(chan struct{})
		t := c.Clock().AfterFunc(d, func() { close(fired) })
		defer t.Stop()
		select {
		case <-fired:
			return c.Clock().Now(), nil
		case <-c.Done():
			return time.Time{}, c.Err()
		}
	}, Config{Cancelable: true})
}

// Expire returns a future that times out d after it starts and never
// produces a value.
func Expire[T any](d time.Duration) *Future[T] {
	return NewWithConfig(neverSettle[T], Config{Cancelable: true, TimeoutFromStart: d})
}

// ExpireFromNow returns a future that times out d after construction,
// whether or not it has started.
func ExpireFromNow[T any](d time.Duration) *Future[T] {
	return NewWithConfig(neverSettle[T], Config{Cancelable: true, TimeoutFromNow: d})
}

func neverSettle[T any](c *Context[T]) (T, error) {
	<-c.Done()
	var zero T
	return zero, c.Err()
}

// Race returns a future that settles with whichever member settles first,
// value or failure. Members are not started by constructing the race; they
// start when the race itself starts.
func Race[T any](members ...*Future[T]) *Future[T] {
	return NewWithConfig(func(c *Context[T]) (T, error) {
		var zero T
		if len(members) == 0 {
			<-c.Done()
			return zero, c.Err()
		}
		startAll(members)
		events := watchAll(members, c.Done())
		select {
		case ev := <-events:
			return ev.val, ev.err
		case <-c.Done():
			return zero, c.Err()
		}
	}, Config{Cancelable: true})
}

// All returns a future that fulfills with every member's value in member
// order, or rejects with the first member failure to arrive. Members start
// only when the combinator starts.
func All[T any](members ...*Future[T]) *Future[[]T] {
	return NewWithConfig(func(c *Context[[]T]) ([]T, error) {
		startAll(members)
		events := watchAll(members, c.Done())
		results := make([]T, len(members))
		for remaining := len(members); remaining > 0; remaining-- {
			select {
			case ev := <-events:
				if ev.err != nil {
					return nil, ev.err
				}
				results[ev.idx] = ev.val
			case <-c.Done():
				return nil, c.Err()
			}
		}
		return results, nil
	}, Config{Cancelable: true})
}

// AllSettled returns a future that fulfills with a per-member Outcome
// record in member order. It never rejects due to member failure. Members
// start only when the combinator starts.
func AllSettled[T any](members ...*Future[T]) *Future[[]Outcome[T]] {
	return NewWithConfig(func(c *Context[[]Outcome[T]]) ([]Outcome[T], error) {
		startAll(members)
		events := watchAll(members, c.Done())
		outcomes := make([]Outcome[T], len(members))
		for remaining := len(members); remaining > 0; remaining-- {
			select {
			case ev := <-events:
				outcomes[ev.idx] = Outcome[T]{Value: ev.val, Err: ev.err}
			case <-c.Done():
				return nil, c.Err()
			}
		}
		return outcomes, nil
	}, Config{Cancelable: true})
}

// Any returns a future that fulfills with the first member to fulfill and
// rejects, with every member failure joined in member order, only when all
// members reject. Members start only when the combinator starts.
func Any[T any](members ...*Future[T]) *Future[T] {
	return NewWithConfig(func(c *Context[T]) (T, error) {
		var zero T
		if len(members) == 0 {
			return zero, errors.New("no members fulfilled")
		}
		startAll(members)
		events := watchAll(members, c.Done())
		errs := make([]error, len(members))
		for remaining := len(members); remaining > 0; remaining-- {
			select {
			case ev := <-events:
				if ev.err == nil {
					return ev.val, nil
				}
				errs[ev.idx] = ev.err
			case <-c.Done():
				return zero, c.Err()
			}
		}
		return zero, errors.Join(errs...)
	}, Config{Cancelable: true})
}

type memberEvent[T any] struct {
	idx int
	val T
	err error
}

func startAll[T any](members []*Future[T]) {
	for _, m := range members {
		m.s.markObserved()
		m.Start()
	}
}

// watchAll fans member settlements into a single channel. The channel is
// buffered to the member count so watchers never block; each watcher exits
// when its member settles or stop closes.
func watchAll[T any](members []*Future[T], stop <-chan struct{}) <-chan memberEvent[T] {
	events := make(chan memberEvent[T], len(members))
	for i, m := range members {
		go func(i int, m *Future[T]) {
			select {
			case <-m.s.done:
				v, err := m.Result()
				events <- memberEvent[T]{idx: i, val: v, err: err}
			case <-stop:
			}
		}(i, m)
	}
	return events
}
