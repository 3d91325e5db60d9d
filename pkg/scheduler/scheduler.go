package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/BobKerns/better-future/pkg/common/logging"
	"github.com/BobKerns/better-future/pkg/future"
	"github.com/BobKerns/better-future/pkg/metrics"
	"github.com/BobKerns/better-future/pkg/pool"
)

// TaskFactory produces a fresh task for each firing. Repeating and cron
// entries fire many times, and a settled future cannot run again, so the
// scheduler asks the factory for a new task on every dispatch.
type TaskFactory func() future.Task

// Entry describes a scheduled entry.
type Entry struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // Zero for one-time entries
	Created  time.Time
}

// Scheduler dispatches deferred tasks at scheduled times. Dispatched tasks
// run through the configured pool, or start directly when no pool is set.
type Scheduler interface {
	// Basic scheduling
	Schedule(id string, factory TaskFactory, runAt time.Time) error
	ScheduleAfter(id string, factory TaskFactory, delay time.Duration) error
	ScheduleRepeating(id string, factory TaskFactory, interval time.Duration) error

	// Cron scheduling
	ScheduleCron(id string, cronExpr string, factory TaskFactory) error

	// Entry management
	Cancel(id string) bool
	CancelAll()
	List() []Entry

	// Lifecycle
	Start() error
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	Pool         pool.Pool      // Optional; nil starts tasks directly
	Location     *time.Location // For cron scheduling
	TickInterval time.Duration  // How often to check for ready entries (default: 50ms)
	MaxEntries   int            // Maximum number of scheduled entries (default: 10000)
	Name         string
	Logger       *zerolog.Logger
	Metrics      *metrics.Registry
}

type entry struct {
	id           string
	factory      TaskFactory
	runAt        time.Time
	interval     time.Duration
	cronSchedule cron.Schedule
	created      time.Time
}

type scheduler struct {
	pool         pool.Pool
	location     *time.Location
	tickInterval time.Duration
	maxEntries   int
	name         string
	cronParser   cron.Parser
	log          zerolog.Logger
	metrics      *metrics.Registry

	mu       sync.RWMutex
	entries  map[string]*entry
	ticker   *time.Ticker
	done     chan struct{}
	loopDone chan struct{}
	running  bool
}

// New creates a scheduler with default configuration.
func New() Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) Scheduler {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	name := cfg.Name
	if name == "" {
		name = "scheduler"
	}

	log := logging.Component("scheduler")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	log = log.With().Str("scheduler", name).Logger()

	return &scheduler{
		pool:         cfg.Pool,
		location:     location,
		tickInterval: tickInterval,
		maxEntries:   maxEntries,
		name:         name,
		cronParser:   cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		log:          log,
		metrics:      cfg.Metrics,
		entries:      make(map[string]*entry),
	}
}

func validate(id string, factory TaskFactory) error {
	if id == "" {
		return fmt.Errorf("entry ID cannot be empty")
	}
	if len(id) > 255 {
		return fmt.Errorf("entry ID too long (max 255 characters)")
	}
	if factory == nil {
		return fmt.Errorf("task factory cannot be nil")
	}
	return nil
}

// add inserts the entry under the lock, enforcing uniqueness and capacity.
func (s *scheduler) add(e *entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.id]; exists {
		return fmt.Errorf("entry with ID %q already exists, cancel it first or use a different ID", e.id)
	}
	if len(s.entries) >= s.maxEntries {
		return fmt.Errorf("cannot schedule entry: maximum number of entries (%d) reached", s.maxEntries)
	}

	s.entries[e.id] = e
	if s.metrics != nil {
		s.metrics.TasksScheduled.WithLabelValues(s.name).Inc()
	}
	return nil
}

func (s *scheduler) Schedule(id string, factory TaskFactory, runAt time.Time) error {
	if err := validate(id, factory); err != nil {
		return err
	}
	if runAt.IsZero() {
		return fmt.Errorf("entry run time cannot be zero")
	}

	return s.add(&entry{
		id:      id,
		factory: factory,
		runAt:   runAt,
		created: time.Now(),
	})
}

func (s *scheduler) ScheduleAfter(id string, factory TaskFactory, delay time.Duration) error {
	return s.Schedule(id, factory, time.Now().Add(delay))
}

func (s *scheduler) ScheduleRepeating(id string, factory TaskFactory, interval time.Duration) error {
	if err := validate(id, factory); err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}

	now := time.Now()
	return s.add(&entry{
		id:       id,
		factory:  factory,
		runAt:    now,
		interval: interval,
		created:  now,
	})
}

func (s *scheduler) ScheduleCron(id string, cronExpr string, factory TaskFactory) error {
	if err := validate(id, factory); err != nil {
		return err
	}
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}

	schedule, err := s.cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	now := time.Now()
	return s.add(&entry{
		id:           id,
		factory:      factory,
		runAt:        schedule.Next(now.In(s.location)),
		cronSchedule: schedule,
		created:      now,
	})
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		delete(s.entries, id)
		return true
	}
	return false
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
}

func (s *scheduler) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, Entry{
			ID:       e.id,
			RunAt:    e.runAt,
			Interval: e.interval,
			Created:  e.created,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RunAt.Before(entries[j].RunAt)
	})

	return entries
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}

	// Fresh channels per run so the scheduler can be restarted after Stop.
	s.running = true
	s.ticker = time.NewTicker(s.tickInterval)
	s.done = make(chan struct{})
	s.loopDone = make(chan struct{})

	go s.run(s.done, s.loopDone, s.ticker)
	return nil
}

func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		stopped := make(chan struct{})
		close(stopped)
		return stopped
	}
	s.running = false
	close(s.done)
	s.ticker.Stop()
	loopDone := s.loopDone
	s.mu.Unlock()

	return loopDone
}

func (s *scheduler) run(done <-chan struct{}, loopDone chan<- struct{}, ticker *time.Ticker) {
	defer close(loopDone)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("scheduler loop panicked")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.dispatchReady()
		}
	}
}

// dispatchReady collects entries that have come due, reschedules the
// repeating ones, then dispatches outside the lock.
func (s *scheduler) dispatchReady() {
	now := time.Now()

	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return
	}

	ready := make([]*entry, 0, len(s.entries))
	for id, e := range s.entries {
		if now.Before(e.runAt) {
			continue
		}
		ready = append(ready, e)

		switch {
		case e.interval > 0:
			e.runAt = now.Add(e.interval)
		case e.cronSchedule != nil:
			e.runAt = e.cronSchedule.Next(now.In(s.location))
		default:
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, e := range ready {
		s.dispatch(e)
	}
}

func (s *scheduler) dispatch(e *entry) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("entry", e.id).Interface("panic", r).Msg("task factory panicked")
		}
	}()

	t := e.factory()
	if t == nil {
		s.log.Warn().Str("entry", e.id).Msg("task factory returned nil")
		return
	}

	if s.pool != nil {
		s.pool.Add(t)
	} else {
		t.Start()
	}

	if s.metrics != nil {
		s.metrics.TasksFired.WithLabelValues(s.name).Inc()
	}
	s.log.Debug().Str("entry", e.id).Str("task", t.ID()).Msg("task dispatched")
}
