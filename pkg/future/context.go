package future

import (
	"context"
	"time"
)

// Context is the capability handle passed into a running computation. There
// is one per future, created on first need and reused; it is a view onto
// the future's shared state and does not own it.
//
// A cooperative computation periodically awaits Runnable to observe pause,
// cancellation and timeout requests; nothing in the system preempts a
// computation that never checks.
type Context[T any] struct {
	s *shared[T]
}

// Runnable is the "may I continue" gate, evaluated fresh against the
// current state on every call:
//
//   - Pending or Delay: returns ErrNotRunning; the gate may only be read
//     from inside an already-running computation.
//   - Running: returns nil immediately.
//   - Paused: blocks until matching Resume calls bring the pause depth back
//     to zero, then re-evaluates.
//   - Cancelled or Timeout: returns the recorded failure.
//   - Fulfilled or Rejected: returns a FinishedError.
//
// The context argument bounds the blocking of a paused gate only.
func (c *Context[T]) Runnable(ctx context.Context) error {
	s := c.s
	for {
		s.mu.Lock()
		switch {
		case s.state == Running:
			s.mu.Unlock()
			return nil
		case s.state == Pending || s.state == Delay:
			s.mu.Unlock()
			return ErrNotRunning
		case s.state == Cancelled || s.state == Timeout:
			err := s.err
			s.mu.Unlock()
			return err
		case s.state.Terminal():
			fe := &FinishedError{TaskID: s.id, StartTime: s.startedAt, EndTime: s.endedAt}
			s.mu.Unlock()
			return fe
		default: // Paused
			gate := s.resumeGate
			done := s.done
			s.mu.Unlock()
			select {
			case <-gate:
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Pause increments the owning future's pause depth.
func (c *Context[T]) Pause() { (&Future[T]{s: c.s}).Pause() }

// Resume decrements the owning future's pause depth.
func (c *Context[T]) Resume() { (&Future[T]{s: c.s}).Resume() }

// Done returns a channel closed when the owning future settles. Long
// computations select on it to bail out once their result can no longer
// matter.
func (c *Context[T]) Done() <-chan struct{} { return c.s.done }

// Err returns the owning future's recorded failure, if any.
func (c *Context[T]) Err() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.err
}

// Context returns a context.Context cancelled when the owning future
// settles, for plumbing into I/O inside the computation.
func (c *Context[T]) Context() context.Context { return c.s.lifeCtx }

// ID returns the owning future's identifier.
func (c *Context[T]) ID() string { return c.s.id }

// StartTime returns when the owning future entered Running.
func (c *Context[T]) StartTime() time.Time {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.startedAt
}

// Clock returns the owning future's time source, so computations schedule
// their own delays against the same (possibly virtual) clock.
func (c *Context[T]) Clock() Clock { return c.s.clock }

// TaskContext returns the future's context handle, creating it on first
// use. Reading Runnable through it outside a running computation returns
// ErrNotRunning.
func (f *Future[T]) TaskContext() *Context[T] {
	return f.s.context()
}
