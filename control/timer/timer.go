// Package timer sets an event every so often.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var firesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "timer_fires_total",
	Help: "number of times each timer has set its event",
}, []string{"event"})

// Timer sets Event once Period has passed since it started, was reset, or last fired.  Elapsed time
// is only looked at every Check, so a fire can be up to Check late; the next period is measured from
// when the fire actually happened, not from when it was due.
type Timer struct {
	Event  *event.Event
	Period time.Duration
	Check  time.Duration

	// Now and After replace time.Now and time.After in tests.
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	base   time.Time          // must hold mu to read or write.
	cancel context.CancelFunc // must hold mu to read or write.
	done   chan struct{}      // must hold mu to read or write.
}

// New returns a stopped timer.
func New(ev *event.Event, period, check time.Duration) *Timer {
	return &Timer{Event: ev, Period: period, Check: check, Now: time.Now, After: time.After}
}

// Start begins checking.  It returns right away; the checks stop when ctx is done or Stop is called.
// Starting a running timer restarts it.
func (t *Timer) Start(ctx context.Context) {
	t.Stop()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.mu.Lock()
	t.base = t.Now()
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()
	go func() {
		defer close(done)
		t.run(ctx)
	}()
}

// Reset starts the current period over from now.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = t.Now()
}

// Stop halts the timer and waits for the checking goroutine to exit.  It is safe to call on a timer
// that was never started.
func (t *Timer) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// check sets the event if a full period has passed at now, and reports whether it did.
func (t *Timer) check(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.base) < t.Period {
		return false
	}
	t.Event.Set()
	firesCounter.WithLabelValues(t.Event.String()).Inc()
	t.base = now
	return true
}

func (t *Timer) run(ctx context.Context) {
	for {
		select {
		case <-t.After(t.Check):
		case <-ctx.Done():
			return
		}
		t.check(t.Now())
	}
}
