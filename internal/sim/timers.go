package sim

import (
	"sort"
	"sync"
	"time"
)

// ManualTimers is a host.Timers driven by Advance. Callbacks run on the
// goroutine that calls Advance, so scenarios stay deterministic.
type ManualTimers struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	seq       int
	next      time.Duration
	period    time.Duration
	fn        func()
	cancelled bool
}

// NewManualTimers creates timers at elapsed time zero.
func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

// Repeat implements host.Timers.
func (m *ManualTimers) Repeat(delay, period time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{seq: m.seq, next: m.now + delay, period: period, fn: fn}
	m.timers = append(m.timers, t)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		t.cancelled = true
		m.removeLocked(t)
	}
}

// Advance moves time forward by d, running every callback that comes due
// in time order. Timers due at the same instant run in creation order.
// It returns the number of callbacks run.
func (m *ManualTimers) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	ran := 0
	for {
		m.mu.Lock()
		t := m.nextDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return ran
		}
		m.now = t.next
		if t.period > 0 {
			t.next += t.period
		} else {
			t.cancelled = true
			m.removeLocked(t)
		}
		fn := t.fn
		m.mu.Unlock()

		fn()
		ran++
	}
}

// Elapsed returns the simulated time since creation.
func (m *ManualTimers) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of live timers.
func (m *ManualTimers) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *ManualTimers) nextDue(target time.Duration) *manualTimer {
	due := make([]*manualTimer, 0, len(m.timers))
	for _, t := range m.timers {
		if !t.cancelled && t.next <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].next != due[j].next {
			return due[i].next < due[j].next
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}

func (m *ManualTimers) removeLocked(t *manualTimer) {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// WallTimers is a host.Timers on the real clock. Each timer runs on its
// own goroutine until cancelled.
type WallTimers struct{}

// Repeat implements host.Timers.
func (WallTimers) Repeat(delay, period time.Duration, fn func()) func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		for {
			select {
			case <-done:
				return
			case <-timer.C:
			}
			select {
			case <-done:
				return
			default:
			}
			fn()
			if period <= 0 {
				return
			}
			timer.Reset(period)
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}
