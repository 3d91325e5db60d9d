package group

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BobKerns/better-future/pkg/future"
	"github.com/BobKerns/better-future/pkg/metrics"
	"github.com/BobKerns/better-future/pkg/pool"
)

// Policy selects how a group combines its normal members' outcomes.
type Policy int

const (
	// PolicyFirst settles with whichever normal member settles first.
	PolicyFirst Policy = iota

	// PolicyAll fulfills with every member's value in insertion order, or
	// rejects on the first member rejection.
	PolicyAll

	// PolicyAny fulfills with the first member to fulfill; rejects only if
	// every member rejects.
	PolicyAny

	// PolicyAllSettled fulfills with per-member outcome records and never
	// rejects due to member failure.
	PolicyAllSettled

	// PolicyReduce streams each member's outcome into a reducer coroutine
	// and fulfills with its final aggregate.
	PolicyReduce
)

// String returns the symbolic policy name.
func (p Policy) String() string {
	switch p {
	case PolicyFirst:
		return "FIRST"
	case PolicyAll:
		return "ALL"
	case PolicyAny:
		return "ANY"
	case PolicyAllSettled:
		return "ALL_SETTLED"
	case PolicyReduce:
		return "REDUCE"
	default:
		return "UNKNOWN"
	}
}

// Config holds construction options for a group.
type Config struct {
	// Name identifies the group in logs, metrics and the live registry.
	Name string

	// Timeout, when positive, times the group out this long after group
	// start, cascading forced timeout to every member.
	Timeout time.Duration

	// Pool, when set, receives every member for bounded-concurrency
	// execution instead of the member being started directly.
	Pool pool.Pool

	// Clock substitutes the time source for the group's own timers.
	Clock future.Clock

	// Logger receives the group future's diagnostics.
	Logger *zerolog.Logger

	// Metrics, when set, records live-group gauges and settlement counters.
	Metrics *metrics.Registry
}

// Group aggregates many futures into one. A group is itself a future of
// the aggregate result: it stays dormant until started, can be cancelled
// or timed out, and its own terminal transition is forwarded to every
// member.
//
// Members come in three kinds. Normal members contribute values to the
// aggregation policy. Background members must settle before the group can
// report success but contribute no value. Daemon members are
// force-cancelled the instant the group settles, whatever their progress.
type Group[T, R any] struct {
	*future.Future[R]

	policy    Policy
	cfg       Config
	aggregate aggregateFunc[T, R]

	mu         sync.Mutex
	normal     []*future.Future[T]
	background []future.Task
	daemons    []future.Task
	launched   bool
}

type aggregateFunc[T, R any] func(c *future.Context[R], members []*future.Future[T], events <-chan settlement[T]) (R, error)

type settlement[T any] struct {
	idx int
	val T
	err error
}

// First creates a group that settles with whichever normal member settles
// first, value or failure.
func First[T any](cfg Config) *Group[T, T] {
	return newGroup[T, T](PolicyFirst, cfg, firstAggregate[T])
}

// All creates a group that fulfills with every normal member's value in
// insertion order, or rejects with the first member rejection to arrive.
func All[T any](cfg Config) *Group[T, []T] {
	return newGroup[T, []T](PolicyAll, cfg, allAggregate[T])
}

// Any creates a group that fulfills with the first normal member to
// fulfill, and rejects with every member failure joined in insertion order
// only if all members reject.
func Any[T any](cfg Config) *Group[T, T] {
	return newGroup[T, T](PolicyAny, cfg, anyAggregate[T])
}

// AllSettled creates a group that fulfills with a per-member Outcome
// record in insertion order and never rejects due to member failure.
func AllSettled[T any](cfg Config) *Group[T, []future.Outcome[T]] {
	return newGroup[T, []future.Outcome[T]](PolicyAllSettled, cfg, allSettledAggregate[T])
}

// Reduce creates a group that streams each member's outcome into the
// reducer coroutine as it settles and fulfills with the coroutine's final
// aggregate. Space is O(1) in the member count: values are folded into the
// accumulator as they arrive instead of being retained.
func Reduce[T, R any](fn ReducerFunc[T, R], cfg Config) *Group[T, R] {
	return newGroup[T, R](PolicyReduce, cfg, reduceAggregate(fn))
}

func newGroup[T, R any](policy Policy, cfg Config, aggregate aggregateFunc[T, R]) *Group[T, R] {
	g := &Group[T, R]{
		policy:    policy,
		cfg:       cfg,
		aggregate: aggregate,
	}
	g.Future = future.NewWithConfig(g.run, future.Config{
		Cancelable:       true,
		TimeoutFromStart: cfg.Timeout,
		TimeoutMessage:   g.describe("timed out"),
		Clock:            cfg.Clock,
		Logger:           cfg.Logger,
	})

	// Settlement forwarding to members.
	g.Future.OnCancel(func(error) {
		g.forEachMember(func(t future.Task) { t.ForceCancel(g.describe("cancelled")) })
	})
	g.Future.OnTimeout(func(error) {
		g.forEachMember(func(t future.Task) { t.ForceTimeout(g.describe("timed out")) })
	})
	g.Future.OnSettled(func() {
		g.cancelDaemons()
		deregister(g.Future.ID())
		if m := cfg.Metrics; m != nil {
			m.GroupsLive.WithLabelValues(policy.String()).Dec()
			m.GroupsSettled.WithLabelValues(policy.String(), g.Future.State().String()).Inc()
		}
	})

	register(g.Future.ID(), g)
	if m := cfg.Metrics; m != nil {
		m.GroupsLive.WithLabelValues(policy.String()).Inc()
	}
	return g
}

func (g *Group[T, R]) describe(what string) string {
	if g.cfg.Name != "" {
		return fmt.Sprintf("group %s %s", g.cfg.Name, what)
	}
	return "group " + what
}

// run is the group's own computation: it launches members, drives the
// aggregation policy and waits out background members.
func (g *Group[T, R]) run(c *future.Context[R]) (R, error) {
	var zero R

	g.mu.Lock()
	g.launched = true
	normal := append([]*future.Future[T](nil), g.normal...)
	background := append([]future.Task(nil), g.background...)
	daemons := append([]future.Task(nil), g.daemons...)
	g.mu.Unlock()

	for _, m := range normal {
		g.launchMember(m.AsTask())
	}
	for _, t := range background {
		g.launchMember(t)
	}
	for _, t := range daemons {
		g.launchMember(t)
	}

	events := watchMembers(normal, c.Done())
	result, err := g.aggregate(c, normal, events)
	if err != nil {
		return zero, err
	}

	// Background members hold up success but contribute no value.
	for _, b := range background {
		select {
		case <-b.Done():
		case <-c.Done():
			return zero, c.Err()
		}
	}
	return result, nil
}

func (g *Group[T, R]) launchMember(t future.Task) {
	if g.cfg.Pool != nil {
		g.cfg.Pool.Add(t)
		return
	}
	t.Start()
}

// Add registers a normal member. Adding while the group is pending just
// enqueues; adding while it runs also launches the member immediately,
// though only members present at group start contribute to the
// aggregation. Adding to a settled group cancels the newcomer.
func (g *Group[T, R]) Add(m *future.Future[T]) *Group[T, R] {
	g.addMember(m.AsTask(), func() {
		g.normal = append(g.normal, m)
	})
	return g
}

// AddBackground registers a background member: it must settle before the
// group can report success, but contributes no value.
func (g *Group[T, R]) AddBackground(t future.Task) *Group[T, R] {
	g.addMember(t, func() {
		g.background = append(g.background, t)
	})
	return g
}

// AddDaemon registers a daemon member: it never blocks group completion
// and is force-cancelled the instant the group settles.
func (g *Group[T, R]) AddDaemon(t future.Task) *Group[T, R] {
	g.addMember(t, func() {
		g.daemons = append(g.daemons, t)
	})
	return g
}

func (g *Group[T, R]) addMember(t future.Task, record func()) {
	g.mu.Lock()
	if g.Future.State().Terminal() {
		g.mu.Unlock()
		// The group's own failure, if any, has already propagated; the
		// newcomer just gets cancelled.
		t.ForceCancel(g.describe("already settled"))
		return
	}
	record()
	launched := g.launched
	g.mu.Unlock()

	if launched {
		g.launchMember(t)
	}

	// The group can settle between the terminal check above and the launch,
	// after the settle observers have already swept the member lists. The
	// newcomer would be left running, so re-check and cancel it here.
	// ForceCancel on an already-settled task is a no-op.
	if g.Future.State().Terminal() {
		t.ForceCancel(g.describe("already settled"))
	}
}

func (g *Group[T, R]) forEachMember(fn func(future.Task)) {
	g.mu.Lock()
	tasks := make([]future.Task, 0, len(g.normal)+len(g.background)+len(g.daemons))
	for _, m := range g.normal {
		tasks = append(tasks, m.AsTask())
	}
	tasks = append(tasks, g.background...)
	tasks = append(tasks, g.daemons...)
	g.mu.Unlock()

	for _, t := range tasks {
		fn(t)
	}
}

func (g *Group[T, R]) cancelDaemons() {
	g.mu.Lock()
	daemons := append([]future.Task(nil), g.daemons...)
	g.mu.Unlock()

	for _, t := range daemons {
		t.ForceCancel(g.describe("settled"))
	}
}

// Name returns the group's configured name.
func (g *Group[T, R]) Name() string { return g.cfg.Name }

// Policy returns the group's combination policy.
func (g *Group[T, R]) Policy() Policy { return g.policy }

func (g *Group[T, R]) info() Info {
	g.mu.Lock()
	members := len(g.normal) + len(g.background) + len(g.daemons)
	g.mu.Unlock()
	return Info{
		ID:      g.Future.ID(),
		Name:    g.cfg.Name,
		Policy:  g.policy,
		State:   g.Future.State(),
		Members: members,
		Created: g.Future.CreatedAt(),
	}
}

// watchMembers fans member settlements into one channel, buffered to the
// member count so watchers never block. The single aggregation loop is the
// only reader, so resumptions of the aggregation (and of the reducer
// coroutine behind it) are strictly serialized even when several members
// settle at once.
func watchMembers[T any](members []*future.Future[T], stop <-chan struct{}) <-chan settlement[T] {
	events := make(chan settlement[T], len(members))
	for i, m := range members {
		go func(i int, m *future.Future[T]) {
			select {
			case <-m.Done():
				v, err := m.Result()
				events <- settlement[T]{idx: i, val: v, err: err}
			case <-stop:
			}
		}(i, m)
	}
	return events
}

// firstAggregate implements race semantics over the normal members.
func firstAggregate[T any](c *future.Context[T], members []*future.Future[T], events <-chan settlement[T]) (T, error) {
	var zero T
	if len(members) == 0 {
		<-c.Done()
		return zero, c.Err()
	}
	select {
	case ev := <-events:
		return ev.val, ev.err
	case <-c.Done():
		return zero, c.Err()
	}
}

func allAggregate[T any](c *future.Context[[]T], members []*future.Future[T], events <-chan settlement[T]) ([]T, error) {
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
}

func anyAggregate[T any](c *future.Context[T], members []*future.Future[T], events <-chan settlement[T]) (T, error) {
	var zero T
	if len(members) == 0 {
		return zero, errors.New("group has no members")
	}
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
}

func allSettledAggregate[T any](c *future.Context[[]future.Outcome[T]], members []*future.Future[T], events <-chan settlement[T]) ([]future.Outcome[T], error) {
	outcomes := make([]future.Outcome[T], len(members))
	for remaining := len(members); remaining > 0; remaining-- {
		select {
		case ev := <-events:
			outcomes[ev.idx] = future.Outcome[T]{Value: ev.val, Err: ev.err}
		case <-c.Done():
			return nil, c.Err()
		}
	}
	return outcomes, nil
}
