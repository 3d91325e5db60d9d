package testutil

import (
	"container/heap"
	"sync"
	"time"

	"github.com/BobKerns/better-future/pkg/future"
)

// VirtualClock implements future.Clock with manually-advanced time, so
// tests can drive timeout races deterministically instead of sleeping.
// Pending timers sit in a min-heap ordered by due time; Advance fires
// every timer that comes due, in due order, moving the clock through each
// timer's due instant as it fires.
type VirtualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers timerHeap
	seq    int
}

// NewVirtualClock creates a virtual clock starting at the given time. A
// zero start uses the current wall time.
func NewVirtualClock(start time.Time) *VirtualClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &VirtualClock{now: start}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules fn to fire once the clock has been advanced past d.
func (c *VirtualClock) AfterFunc(d time.Duration, fn func()) future.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &virtualTimer{
		clock: c,
		due:   c.now.Add(d),
		seq:   c.seq,
		fn:    fn,
	}
	c.seq++
	heap.Push(&c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer due on the way
// in due order. Ties fire in scheduling order. Callbacks run without the
// clock lock held and may schedule further timers; a timer scheduled
// inside a callback fires during the same Advance if it comes due within
// the remaining window.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for c.timers.Len() > 0 {
		next := c.timers.items[0]
		if next.due.After(target) {
			break
		}
		heap.Pop(&c.timers)
		if next.stopped {
			continue
		}
		next.fired = true
		if next.due.After(c.now) {
			c.now = next.due
		}
		c.mu.Unlock()
		next.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Pending returns the number of timers scheduled and not yet fired or
// stopped.
func (c *VirtualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers.items {
		if !t.stopped {
			n++
		}
	}
	return n
}

type virtualTimer struct {
	clock   *VirtualClock
	due     time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
	index   int
}

// Stop cancels the pending timer, reporting whether it was prevented from
// firing.
func (t *virtualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// timerHeap is a min-heap of timers ordered by due time, with scheduling
// order breaking ties.
type timerHeap struct {
	items []*virtualTimer
}

func (h *timerHeap) Len() int { return len(h.items) }

func (h *timerHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.due.Equal(b.due) {
		return a.seq < b.seq
	}
	return a.due.Before(b.due)
}

func (h *timerHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*virtualTimer)
	t.index = len(h.items)
	h.items = append(h.items, t)
}

func (h *timerHeap) Pop() any {
	old := h.items
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return t
}
