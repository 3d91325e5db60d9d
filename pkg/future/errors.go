package future

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors used across the library. Typed failure records below
// match these through errors.Is, so callers can classify a failure without
// depending on the concrete type.
var (
	// ErrTimeout matches any timeout failure produced by a future.
	ErrTimeout = errors.New("future timed out")

	// ErrCancelled matches any cancellation failure produced by a future.
	ErrCancelled = errors.New("future cancelled")

	// ErrFinished matches failures from waiting on the runnable gate of a
	// future that already settled normally.
	ErrFinished = errors.New("future already finished")

	// ErrNotCancelable is returned by Cancel when the future was not
	// constructed with Cancelable set.
	ErrNotCancelable = errors.New("future is not cancelable")

	// ErrNotRunning is returned by the runnable gate when it is read
	// outside an already-running computation.
	ErrNotRunning = errors.New("runnable gate read outside a running computation")
)

// TimeoutError is the failure recorded when a timeout timer wins the race
// against the computation. StartTime is zero when the future timed out
// before it ever started (a from-creation timeout). EndTime is the moment
// the timeout was detected, so EndTime.Sub(StartTime) measures the overrun.
type TimeoutError struct {
	TaskID    string
	StartTime time.Time
	EndTime   time.Time
	Message   string
}

func (e *TimeoutError) Error() string {
	if e.StartTime.IsZero() {
		return fmt.Sprintf("%s: task %s timed out before starting", e.Message, e.TaskID)
	}
	return fmt.Sprintf("%s: task %s timed out after %v", e.Message, e.TaskID, e.EndTime.Sub(e.StartTime))
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// CancelledError is the failure recorded when a future is cancelled.
type CancelledError struct {
	TaskID    string
	StartTime time.Time
	EndTime   time.Time
	Message   string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s: task %s cancelled", e.Message, e.TaskID)
}

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

// FinishedError is the failure produced when code waits on the runnable
// gate after the future has already reached Fulfilled or Rejected.
type FinishedError struct {
	TaskID    string
	StartTime time.Time
	EndTime   time.Time
}

func (e *FinishedError) Error() string {
	return fmt.Sprintf("task %s already finished", e.TaskID)
}

func (e *FinishedError) Is(target error) bool { return target == ErrFinished }
