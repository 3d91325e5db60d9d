package future

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BobKerns/better-future/pkg/common/logging"
)

// unhandledGrace is how long a settled-rejected future waits for an
// observer to attach before the rejection is reported as unhandled.
const unhandledGrace = 250 * time.Millisecond

// defaultTimeoutMessage is used when Config.TimeoutMessage is empty.
const defaultTimeoutMessage = "timeout"

// Config holds construction options for a Future.
type Config struct {
	// Cancelable enables Cancel. Cancelling a future built without it
	// returns ErrNotCancelable.
	Cancelable bool

	// Delay postpones the Running transition by this much after Start.
	Delay time.Duration

	// TimeoutFromStart arms a timer on the Running transition; if it fires
	// before the computation settles, the future times out.
	TimeoutFromStart time.Duration

	// TimeoutFromNow arms a timer at construction, before the future has
	// even started; if it fires first, the future times out.
	TimeoutFromNow time.Duration

	// TimeoutMessage overrides the failure text of timeout errors.
	TimeoutMessage string

	// Clock substitutes the time source. Defaults to the wall clock.
	Clock Clock

	// Logger receives diagnostics such as unhandled rejections.
	// Defaults to the shared component logger.
	Logger *zerolog.Logger
}

// Future is a lazy, cancelable, pausable unit of computation producing a
// value of type T. The computation does not run until the future is
// started, either explicitly via Start or implicitly via Wait or Then.
//
// Derived futures (Then, When, Catch, Finally) and combinators hold a
// reference to the parent's shared state record rather than a copy; the
// record is mutated only under its own lock and every terminal transition
// is applied at most once.
type Future[T any] struct {
	s *shared[T]
}

// computation is the tagged union of accepted computation shapes. Exactly
// one field is non-nil, chosen by the constructor used.
type computation[T any] struct {
	ctxFn      func(*Context[T]) (T, error)
	fn         func() (T, error)
	deferredFn func(resolve func(T), reject func(error))
}

// shared is the single owned state record behind a future and everything
// derived from it.
type shared[T any] struct {
	id    string
	cfg   Config
	clock Clock
	log   zerolog.Logger

	mu        sync.Mutex
	state     State
	createdAt time.Time
	startedAt time.Time
	endedAt   time.Time

	// comp is cleared once invoked, enforcing at-most-once execution.
	comp  *computation[T]
	value T
	err   error

	pauseDepth int
	resumeGate chan struct{}

	done       chan struct{}
	lifeCtx    context.Context
	lifeCancel context.CancelFunc

	startFired bool
	startObs   []func()
	settleObs  []func()
	cancelObs  []func(error)
	timeoutObs []func(error)

	timers []Timer

	observed bool

	taskCtx *Context[T]
}

// New creates a future from a context-aware computation. The computation
// receives the future's Context, whose Runnable gate it should await at
// points where it is willing to observe pause, cancellation or timeout.
func New[T any](fn func(*Context[T]) (T, error)) *Future[T] {
	return NewWithConfig(fn, Config{})
}

// NewWithConfig creates a context-aware future with explicit configuration.
func NewWithConfig[T any](fn func(*Context[T]) (T, error), cfg Config) *Future[T] {
	return fromComputation(&computation[T]{ctxFn: fn}, cfg)
}

// NewFunc creates a future from a plain zero-argument computation. Such a
// computation cannot observe pause or cancellation; it runs to completion
// and a late result is simply discarded once the future is terminal.
func NewFunc[T any](fn func() (T, error)) *Future[T] {
	return NewFuncWithConfig(fn, Config{})
}

// NewFuncWithConfig creates a zero-argument future with explicit configuration.
func NewFuncWithConfig[T any](fn func() (T, error), cfg Config) *Future[T] {
	return fromComputation(&computation[T]{fn: fn}, cfg)
}

// NewDeferred creates a future settled through explicit resolve/reject
// callbacks, for interop with work that completes outside the computation
// itself. The function is invoked once, on start; whichever callback is
// called first settles the future.
func NewDeferred[T any](fn func(resolve func(T), reject func(error))) *Future[T] {
	return NewDeferredWithConfig(fn, Config{})
}

// NewDeferredWithConfig creates a resolve/reject future with explicit configuration.
func NewDeferredWithConfig[T any](fn func(resolve func(T), reject func(error)), cfg Config) *Future[T] {
	return fromComputation(&computation[T]{deferredFn: fn}, cfg)
}

func fromComputation[T any](comp *computation[T], cfg Config) *Future[T] {
	s := newShared[T](cfg)
	s.comp = comp
	if cfg.TimeoutFromNow > 0 {
		s.mu.Lock()
		t := s.clock.AfterFunc(cfg.TimeoutFromNow, s.fireTimeout)
		s.timers = append(s.timers, t)
		s.mu.Unlock()
	}
	return &Future[T]{s: s}
}

func newShared[T any](cfg Config) *shared[T] {
	clock := cfg.Clock
	if clock == nil {
		clock = WallClock()
	}
	log := logging.Component("future")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &shared[T]{
		id:         uuid.NewString(),
		cfg:        cfg,
		clock:      clock,
		log:        log,
		state:      Pending,
		createdAt:  clock.Now(),
		done:       make(chan struct{}),
		lifeCtx:    ctx,
		lifeCancel: cancel,
	}
}

// Start triggers the Pending transition. It is idempotent: calling Start on
// a future that is no longer pending has no effect. It returns the same
// future for chaining.
func (f *Future[T]) Start() *Future[T] {
	s := f.s
	s.mu.Lock()
	if s.state != Pending {
		s.mu.Unlock()
		return f
	}
	if s.cfg.Delay > 0 {
		s.state = Delay
		t := s.clock.AfterFunc(s.cfg.Delay, s.run)
		s.timers = append(s.timers, t)
		s.mu.Unlock()
		return f
	}
	s.mu.Unlock()
	s.run()
	return f
}

// run performs the transition into Running (or Paused, when pause depth is
// already above zero) and launches the computation.
func (s *shared[T]) run() {
	s.mu.Lock()
	if s.state != Pending && s.state != Delay {
		s.mu.Unlock()
		return
	}
	s.state = Running
	if s.pauseDepth > 0 {
		s.state = Paused
	}
	s.startedAt = s.clock.Now()
	s.startFired = true
	comp := s.comp
	s.comp = nil
	obs := s.startObs
	s.startObs = nil
	if s.cfg.TimeoutFromStart > 0 {
		t := s.clock.AfterFunc(s.cfg.TimeoutFromStart, s.fireTimeout)
		s.timers = append(s.timers, t)
	}
	s.mu.Unlock()

	for _, fn := range obs {
		fn()
	}
	if comp == nil {
		return
	}
	go s.invoke(comp)
}

// invoke runs the computation on its own goroutine and settles the future
// with the outcome. Panics become rejections.
func (s *shared[T]) invoke(comp *computation[T]) {
	defer func() {
		if r := recover(); r != nil {
			s.reject(fmt.Errorf("computation panicked: %v\n%s", r, debug.Stack()))
		}
	}()

	switch {
	case comp.ctxFn != nil:
		v, err := comp.ctxFn(s.context())
		s.settle(v, err)
	case comp.fn != nil:
		v, err := comp.fn()
		s.settle(v, err)
	case comp.deferredFn != nil:
		comp.deferredFn(s.fulfill, s.reject)
	}
}

func (s *shared[T]) settle(v T, err error) {
	if err != nil {
		s.reject(err)
		return
	}
	s.fulfill(v)
}

func (s *shared[T]) fulfill(v T) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.value = v
	s.finishLocked(Fulfilled, nil)
}

// reject records a failure. A failure that is itself a recognized timeout
// or cancellation signal lands in the corresponding state rather than
// Rejected, preserving the outward "rejected with this specific failure"
// contract.
func (s *shared[T]) reject(err error) {
	st := Rejected
	switch {
	case errors.Is(err, ErrCancelled):
		st = Cancelled
	case errors.Is(err, ErrTimeout):
		st = Timeout
	}
	s.mu.Lock()
	s.finishLocked(st, err)
}

// finishLocked applies the terminal transition. The caller must hold s.mu;
// finishLocked releases it and then runs the collected observers. It is a
// no-op when the future is already terminal.
func (s *shared[T]) finishLocked(st State, err error) {
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.err = err
	s.endedAt = s.clock.Now()
	s.comp = nil
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	if s.resumeGate != nil {
		close(s.resumeGate)
		s.resumeGate = nil
	}
	var cancelObs []func(error)
	var timeoutObs []func(error)
	switch st {
	case Cancelled:
		cancelObs = s.cancelObs
	case Timeout:
		timeoutObs = s.timeoutObs
	}
	s.cancelObs = nil
	s.timeoutObs = nil
	settleObs := s.settleObs
	s.settleObs = nil
	unhandled := st == Rejected && !s.observed
	close(s.done)
	s.lifeCancel()
	s.mu.Unlock()

	for _, fn := range cancelObs {
		fn(err)
	}
	for _, fn := range timeoutObs {
		fn(err)
	}
	for _, fn := range settleObs {
		fn()
	}
	if unhandled {
		s.armUnhandledCheck(err)
	}
}

// armUnhandledCheck reports a rejection that still has no observer after a
// short grace period. The report happens at most once per future.
func (s *shared[T]) armUnhandledCheck(err error) {
	s.clock.AfterFunc(unhandledGrace, func() {
		s.mu.Lock()
		observed := s.observed
		s.mu.Unlock()
		if observed {
			return
		}
		s.log.Warn().
			Str("future_id", s.id).
			Err(err).
			Msg("unhandled rejection")
	})
}

func (s *shared[T]) fireTimeout() {
	s.forceTimeout(s.timeoutMessage())
}

func (s *shared[T]) forceTimeout(message string) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	err := &TimeoutError{
		TaskID:    s.id,
		StartTime: s.startedAt,
		EndTime:   s.clock.Now(),
		Message:   message,
	}
	s.finishLocked(Timeout, err)
}

func (s *shared[T]) timeoutMessage() string {
	if s.cfg.TimeoutMessage != "" {
		return s.cfg.TimeoutMessage
	}
	return defaultTimeoutMessage
}

// Cancel requests cancellation. It returns ErrNotCancelable when the future
// was not built with Cancelable set; on a future that is already terminal
// it is a no-op. Cancellation is cooperative: a computation that never
// checks the runnable gate keeps running, and its eventual result is
// discarded.
func (f *Future[T]) Cancel(message string) error {
	s := f.s
	s.mu.Lock()
	if !s.cfg.Cancelable {
		s.mu.Unlock()
		return ErrNotCancelable
	}
	if s.state.Terminal() {
		s.mu.Unlock()
		return nil
	}
	s.cancelLocked(message)
	return nil
}

// ForceCancel cancels regardless of the Cancelable flag. It is the path
// pools and groups use to terminate members; application code should
// prefer Cancel.
func (f *Future[T]) ForceCancel(message string) {
	s := f.s
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.cancelLocked(message)
}

// cancelLocked must be called with s.mu held; it releases it.
func (s *shared[T]) cancelLocked(message string) {
	if message == "" {
		message = "cancelled"
	}
	err := &CancelledError{
		TaskID:    s.id,
		StartTime: s.startedAt,
		EndTime:   s.clock.Now(),
		Message:   message,
	}
	s.finishLocked(Cancelled, err)
}

// ForceTimeout times the future out immediately, as if a timer had fired.
// Pools use it to impose a per-task ceiling on arbitrary members.
func (f *Future[T]) ForceTimeout(message string) {
	if message == "" {
		message = f.s.timeoutMessage()
	}
	f.s.forceTimeout(message)
}

// Pause increments the pause depth. The first increment suspends progress:
// the runnable gate stops resolving until a matching number of Resume calls
// brings the depth back to zero. Pausing a terminal future is a no-op.
func (f *Future[T]) Pause() *Future[T] {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return f
	}
	s.pauseDepth++
	if s.pauseDepth == 1 {
		s.resumeGate = make(chan struct{})
		if s.state == Running {
			s.state = Paused
		}
	}
	return f
}

// Resume decrements the pause depth. Resuming at depth zero is a no-op;
// the depth never goes negative. Reaching zero reopens the runnable gate
// and returns the future to Running.
func (f *Future[T]) Resume() *Future[T] {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pauseDepth == 0 {
		return f
	}
	s.pauseDepth--
	if s.pauseDepth == 0 {
		if s.resumeGate != nil {
			close(s.resumeGate)
			s.resumeGate = nil
		}
		if s.state == Paused {
			s.state = Running
		}
	}
	return f
}

// State returns the current lifecycle state.
func (f *Future[T]) State() State {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.state
}

// Err returns the recorded failure, or nil if the future has not settled
// with one.
func (f *Future[T]) Err() error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.err
}

// Result returns the recorded outcome. It is meaningful only once Done is
// closed; before settlement it returns the zero value and a nil error.
func (f *Future[T]) Result() (T, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.value, f.s.err
}

// Done returns a channel closed when the future reaches a terminal state.
func (f *Future[T]) Done() <-chan struct{} {
	f.s.markObserved()
	return f.s.done
}

// ID returns the future's unique identifier.
func (f *Future[T]) ID() string { return f.s.id }

// CreatedAt returns when the future was constructed.
func (f *Future[T]) CreatedAt() time.Time { return f.s.createdAt }

// StartTime returns when the future entered Running, or the zero time if
// it has not started.
func (f *Future[T]) StartTime() time.Time {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.startedAt
}

// EndTime returns when the future settled, or the zero time if it has not.
func (f *Future[T]) EndTime() time.Time {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.endedAt
}

func (s *shared[T]) markObserved() {
	s.mu.Lock()
	s.observed = true
	s.mu.Unlock()
}

// context returns the lazily-created task context shared by every caller.
func (s *shared[T]) context() *Context[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskCtx == nil {
		s.taskCtx = &Context[T]{s: s}
	}
	return s.taskCtx
}
