package pool

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BobKerns/better-future/pkg/common/logging"
	"github.com/BobKerns/better-future/pkg/future"
)

// Pool admits queued tasks into execution while keeping the number of
// running tasks at or below a fixed ceiling. Admission is FIFO; a task
// leaves the running set only on its own terminal transition, which
// triggers admission of the next queued task.
type Pool interface {
	// Add pauses the task, enqueues it and attempts admission. It returns
	// the same task for chaining.
	Add(t future.Task) future.Task

	// Name returns the pool's name.
	Name() string

	// Size returns the concurrency ceiling.
	Size() int

	// Running returns the number of currently admitted tasks.
	Running() int

	// Queued returns the number of tasks waiting for admission.
	Queued() int

	// TotalAdded returns the total number of tasks ever added.
	TotalAdded() int64

	// TotalCompleted returns the total number of tasks that settled after
	// admission.
	TotalCompleted() int64
}

// Config holds configuration options for creating a pool.
type Config struct {
	// Size is the concurrency ceiling. Must be greater than 0.
	Size int

	// TaskTimeout, when positive, forces a timeout on every admitted task
	// this long after the task starts.
	TaskTimeout time.Duration

	// Name identifies the pool in logs and metrics.
	Name string

	// Clock substitutes the time source used for task timeouts.
	Clock future.Clock

	// Logger receives admission diagnostics.
	Logger *zerolog.Logger
}

// New creates a pool with the given concurrency ceiling.
func New(size int) Pool {
	return NewWithConfig(Config{Size: size})
}

// NewWithConfig creates a pool with the specified configuration.
func NewWithConfig(cfg Config) Pool {
	if cfg.Size <= 0 {
		panic("pool size must be positive")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = future.WallClock()
	}
	log := logging.Component("pool")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	if cfg.Name != "" {
		log = log.With().Str("pool", cfg.Name).Logger()
	}
	return &basicPool{
		cfg:   cfg,
		clock: clock,
		log:   log,
	}
}

// AddFunc wraps a raw computation in a cancelable future and adds it to
// the pool.
func AddFunc[T any](p Pool, fn func(*future.Context[T]) (T, error)) *future.Future[T] {
	f := future.NewWithConfig(fn, future.Config{Cancelable: true})
	p.Add(f.AsTask())
	return f
}

type basicPool struct {
	cfg   Config
	clock future.Clock
	log   zerolog.Logger

	mu             sync.Mutex
	queue          []future.Task
	running        int
	totalAdded     int64
	totalCompleted int64
}

func (p *basicPool) Add(t future.Task) future.Task {
	t.Pause()
	p.mu.Lock()
	p.queue = append(p.queue, t)
	p.totalAdded++
	p.mu.Unlock()

	p.log.Debug().Str("task_id", t.ID()).Msg("task queued")
	p.admit()
	return t
}

// admit moves queued tasks into the running set while a slot is free.
func (p *basicPool) admit() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 || p.running >= p.cfg.Size {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.running++
		p.mu.Unlock()

		p.launch(t)
	}
}

func (p *basicPool) launch(t future.Task) {
	if d := p.cfg.TaskTimeout; d > 0 {
		// The pool-wide ceiling is measured from the task's own start, not
		// from admission, so a delayed task gets its full allowance.
		t.OnStarted(func() {
			timer := p.clock.AfterFunc(d, func() {
				t.ForceTimeout("pool task timeout")
			})
			t.OnSettled(func() { timer.Stop() })
		})
	}
	t.OnSettled(func() { p.release(t) })

	p.log.Debug().Str("task_id", t.ID()).Msg("task admitted")
	t.Resume()
	t.Start()
}

func (p *basicPool) release(t future.Task) {
	p.mu.Lock()
	p.running--
	p.totalCompleted++
	p.mu.Unlock()

	p.log.Debug().
		Str("task_id", t.ID()).
		Stringer("state", t.State()).
		Msg("task settled")
	p.admit()
}

func (p *basicPool) Name() string { return p.cfg.Name }

func (p *basicPool) Size() int { return p.cfg.Size }

func (p *basicPool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *basicPool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *basicPool) TotalAdded() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalAdded
}

func (p *basicPool) TotalCompleted() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalCompleted
}
