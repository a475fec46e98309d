// Package throttle rate-limits a progress callback with leading and trailing
// delivery: the first call is forwarded immediately, calls inside the window
// replace a single pending value, and the most recent value is always
// forwarded once the window elapses.
package throttle

import (
	"sync"
	"time"
)

// DefaultDelay is the window used for streamed reading progress.
const DefaultDelay = 80 * time.Millisecond

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// Stopper cancels a scheduled function.
type Stopper interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Option configures a Throttle.
type Option[T any] func(*Throttle[T])

// WithClock replaces the wall clock.
func WithClock[T any](c Clock) Option[T] {
	return func(t *Throttle[T]) {
		t.clock = c
	}
}

// Throttle forwards values to a sink at most once per delay window, except for
// the trailing delivery of the latest value.
type Throttle[T any] struct {
	sink  func(T)
	delay time.Duration
	clock Clock

	mu       sync.Mutex
	last     time.Time
	fired    bool
	pending  *T
	timer    Stopper
	stopped  bool
	sinkLock sync.Mutex

	// inflight is closed when the running trailing delivery returns.
	inflight chan struct{}
}

// New wraps sink. A non-positive delay uses DefaultDelay.
func New[T any](sink func(T), delay time.Duration, opts ...Option[T]) *Throttle[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}

	t := &Throttle[T]{
		sink:  sink,
		delay: delay,
		clock: realClock{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Call offers v to the sink.
func (t *Throttle[T]) Call(v T) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	now := t.clock.Now()
	elapsed := now.Sub(t.last)

	if !t.fired || elapsed >= t.delay {
		t.cancelTimerLocked()
		t.pending = nil
		t.fired = true
		t.last = now
		t.mu.Unlock()

		t.deliver(v)
		return
	}

	t.pending = &v
	t.cancelTimerLocked()
	t.timer = t.clock.AfterFunc(t.delay-elapsed, t.trailing)
	t.mu.Unlock()
}

// Flush synchronously forwards the pending value, if any. A trailing
// delivery already under way completes before Flush returns.
func (t *Throttle[T]) Flush() {
	t.mu.Lock()
	t.cancelTimerLocked()
	v := t.pending
	t.pending = nil
	if v != nil {
		t.last = t.clock.Now()
	}
	wait := t.inflight
	t.mu.Unlock()

	if wait != nil {
		<-wait
	}
	if v != nil {
		t.deliver(*v)
	}
}

// Stop drops any pending value and ignores further calls.
func (t *Throttle[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.pending = nil
	t.cancelTimerLocked()
}

func (t *Throttle[T]) trailing() {
	t.mu.Lock()
	v := t.pending
	t.pending = nil
	t.timer = nil
	if v == nil || t.stopped {
		t.mu.Unlock()
		return
	}
	t.last = t.clock.Now()
	done := make(chan struct{})
	t.inflight = done
	t.mu.Unlock()

	t.deliver(*v)

	t.mu.Lock()
	if t.inflight == done {
		t.inflight = nil
	}
	t.mu.Unlock()
	close(done)
}

// deliver serializes sink invocations so a trailing timer and a leading call
// never run the sink concurrently.
func (t *Throttle[T]) deliver(v T) {
	t.sinkLock.Lock()
	defer t.sinkLock.Unlock()
	t.sink(v)
}

func (t *Throttle[T]) cancelTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
