package future

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Wait starts the future if it is still pending and blocks until it
// settles, returning the recorded value or failure. The context bounds the
// wait only; a cancelled context does not affect the future itself.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	s := f.s
	s.markObserved()
	f.Start()
	select {
	case <-s.done:
		s.mu.Lock()
		v, err := s.value, s.err
		s.mu.Unlock()
		return v, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then starts the future as a side effect and returns a derived future
// whose outcome is the result of applying the handlers to this future's
// outcome. Either handler may be nil, in which case the corresponding
// outcome passes through unchanged. A handler that returns an error or
// panics produces a rejected derived future.
func (f *Future[T]) Then(onFulfilled func(T) (T, error), onRejected func(error) (T, error)) *Future[T] {
	f.s.markObserved()
	d := f.derive(onFulfilled, onRejected, nil)
	f.Start()
	d.Start()
	return d
}

// When has the same outcome-handling contract as Then but does not start
// the future, so passive observers can attach without triggering execution.
func (f *Future[T]) When(onFulfilled func(T) (T, error), onRejected func(error) (T, error)) *Future[T] {
	f.s.markObserved()
	d := f.derive(onFulfilled, onRejected, nil)
	d.Start()
	return d
}

// Catch attaches a failure handler without starting the future.
func (f *Future[T]) Catch(onRejected func(error) (T, error)) *Future[T] {
	f.s.markObserved()
	d := f.derive(nil, onRejected, nil)
	d.Start()
	return d
}

// Finally attaches a handler invoked on any terminal outcome; the value or
// failure passes through unchanged. It does not start the future.
func (f *Future[T]) Finally(onFinally func()) *Future[T] {
	f.s.markObserved()
	d := f.derive(nil, nil, onFinally)
	d.Start()
	return d
}

// derive builds the handler-applying future. Its computation blocks on the
// parent's terminal transition, so starting it merely attaches an observer.
func (f *Future[T]) derive(onFulfilled func(T) (T, error), onRejected func(error) (T, error), onFinally func()) *Future[T] {
	parent := f.s
	return NewWithConfig(func(c *Context[T]) (T, error) {
		select {
		case <-parent.done:
		case <-c.Done():
			var zero T
			return zero, c.Err()
		}
		parent.mu.Lock()
		v, err := parent.value, parent.err
		parent.mu.Unlock()

		if err == nil && onFulfilled != nil {
			v, err = protect(onFulfilled, v)
		} else if err != nil && onRejected != nil {
			v, err = protectErr(onRejected, err)
		}
		if onFinally != nil {
			onFinally()
		}
		return v, err
	}, Config{Cancelable: true, Clock: parent.clock, Logger: &parent.log})
}

func protect[T any](fn func(T) (T, error), v T) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(v)
}

func protectErr[T any](fn func(error) (T, error), in error) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(in)
}

// OnStart registers an observer for the Running transition. Registering
// after the future has already started still invokes the handler, exactly
// once, on its own goroutine.
func (f *Future[T]) OnStart(fn func(*Future[T])) *Future[T] {
	f.OnStarted(func() { fn(f) })
	return f
}

// OnStarted is the non-generic form of OnStart used through the Task view.
func (f *Future[T]) OnStarted(fn func()) {
	s := f.s
	s.mu.Lock()
	if s.startFired {
		s.mu.Unlock()
		go fn()
		return
	}
	s.startObs = append(s.startObs, fn)
	s.mu.Unlock()
}

// OnCancel registers an observer invoked with the recorded failure if the
// future ends up Cancelled. Late registration on an already-cancelled
// future still fires, exactly once.
func (f *Future[T]) OnCancel(fn func(error)) *Future[T] {
	s := f.s
	s.mu.Lock()
	if s.state == Cancelled {
		err := s.err
		s.mu.Unlock()
		go fn(err)
		return f
	}
	s.cancelObs = append(s.cancelObs, fn)
	s.mu.Unlock()
	return f
}

// OnTimeout registers an observer invoked with the recorded failure if the
// future ends up Timeout. Late registration still fires, exactly once.
func (f *Future[T]) OnTimeout(fn func(error)) *Future[T] {
	s := f.s
	s.mu.Lock()
	if s.state == Timeout {
		err := s.err
		s.mu.Unlock()
		go fn(err)
		return f
	}
	s.timeoutObs = append(s.timeoutObs, fn)
	s.mu.Unlock()
	return f
}

// OnSettled registers an observer for the terminal transition, whatever it
// is. Pools and groups use it to learn when a member leaves the running
// set; unlike Done it does not mark the future as observed, so it will not
// suppress unhandled-rejection diagnostics.
func (f *Future[T]) OnSettled(fn func()) {
	s := f.s
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		go fn()
		return
	}
	s.settleObs = append(s.settleObs, fn)
	s.mu.Unlock()
}
