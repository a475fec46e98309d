// Package timer measures the duration of a single labelled operation. Each
// Timer is owned by the code that started it, so concurrent operations with
// the same label never interfere.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/tarot/pkg/logger"
)

// Timer measures one operation.
type Timer struct {
	label  string
	logger *slog.Logger
	start  time.Time
	now    func() time.Time

	once    sync.Once
	elapsed time.Duration
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		t.now = now
	}
}

// Start begins timing label. A nil logger discards the stop record.
func Start(l *slog.Logger, label string, opts ...Option) *Timer {
	if l == nil {
		l = logger.Nop()
	}

	t := &Timer{
		label:  label,
		logger: l,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.start = t.now()
	return t
}

// Label returns the label the timer was started with.
func (t *Timer) Label() string {
	return t.label
}

// Elapsed returns the time since Start without stopping the timer.
func (t *Timer) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// Stop records and logs the elapsed time. Only the first call has an effect;
// later calls return the recorded duration.
func (t *Timer) Stop() time.Duration {
	t.once.Do(func() {
		t.elapsed = t.now().Sub(t.start)
		t.logger.Debug("timer stopped",
			"label", t.label,
			"elapsed_ms", t.elapsed.Milliseconds(),
		)
	})
	return t.elapsed
}

// Measure times fn under label and returns its error.
func Measure(l *slog.Logger, label string, fn func() error) (time.Duration, error) {
	t := Start(l, label)
	err := fn()
	return t.Stop(), err
}
