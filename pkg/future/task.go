package future

import "time"

// Task is the non-generic view of a future, used by pools, groups and the
// scheduler to hold members of heterogeneous result types. Obtain one with
// AsTask.
type Task interface {
	// ID returns the future's unique identifier.
	ID() string

	// Start triggers the Pending transition; idempotent.
	Start()

	// Pause increments the pause depth.
	Pause()

	// Resume decrements the pause depth; no-op at zero.
	Resume()

	// Cancel requests cancellation, failing with ErrNotCancelable when the
	// future was not built with Cancelable.
	Cancel(message string) error

	// ForceCancel cancels regardless of the Cancelable flag.
	ForceCancel(message string)

	// ForceTimeout times the future out immediately.
	ForceTimeout(message string)

	// OnStarted registers an observer for the Running transition; late
	// registration still fires exactly once.
	OnStarted(fn func())

	// OnSettled registers an observer for the terminal transition; late
	// registration still fires exactly once.
	OnSettled(fn func())

	// Done returns a channel closed on the terminal transition.
	Done() <-chan struct{}

	// State returns the current lifecycle state.
	State() State

	// Err returns the recorded failure, if any.
	Err() error

	// StartTime returns when the future entered Running, or zero.
	StartTime() time.Time

	// EndTime returns when the future settled, or zero.
	EndTime() time.Time
}

// taskView adapts a Future to the Task interface. The chaining-style
// methods on Future return the future itself, so the adapter flattens them
// to the plain signatures the interface requires.
type taskView[T any] struct {
	f *Future[T]
}

// AsTask returns the non-generic view of the future.
func (f *Future[T]) AsTask() Task { return taskView[T]{f: f} }

func (v taskView[T]) ID() string                   { return v.f.ID() }
func (v taskView[T]) Start()                       { v.f.Start() }
func (v taskView[T]) Pause()                       { v.f.Pause() }
func (v taskView[T]) Resume()                      { v.f.Resume() }
func (v taskView[T]) Cancel(message string) error  { return v.f.Cancel(message) }
func (v taskView[T]) ForceCancel(message string)   { v.f.ForceCancel(message) }
func (v taskView[T]) ForceTimeout(message string)  { v.f.ForceTimeout(message) }
func (v taskView[T]) OnStarted(fn func())          { v.f.OnStarted(fn) }
func (v taskView[T]) OnSettled(fn func())          { v.f.OnSettled(fn) }
func (v taskView[T]) Done() <-chan struct{}        { return v.f.s.done }
func (v taskView[T]) State() State                 { return v.f.State() }
func (v taskView[T]) Err() error                   { return v.f.Err() }
func (v taskView[T]) StartTime() time.Time         { return v.f.StartTime() }
func (v taskView[T]) EndTime() time.Time           { return v.f.EndTime() }
