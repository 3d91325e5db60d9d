package future

import "time"

// Clock abstracts time for futures, pools and groups. The default
// implementation wraps the wall clock; tests substitute a virtual clock to
// drive timeout races deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules fn to run once after d has elapsed and returns a
	// handle that can cancel the pending call.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancelable handle for a pending AfterFunc call.
type Timer interface {
	// Stop cancels the pending call. It reports whether the call was
	// prevented from running.
	Stop() bool
}

// WallClock returns the real-time clock backed by the time package.
func WallClock() Clock {
	return wallClock{}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, fn func()) Timer {
	return wallTimer{time.AfterFunc(d, fn)}
}

type wallTimer struct {
	t *time.Timer
}

func (w wallTimer) Stop() bool { return w.t.Stop() }
