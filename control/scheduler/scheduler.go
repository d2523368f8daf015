// Package scheduler decides which of the clock's activities runs.  Configuring and setting the time
// are privileged: at most one of them runs at a time, and only from idle.  Refreshing the display
// happens every minute regardless of mode, but never twice at once.
//
// One goroutine, the one calling Run, owns every task handle.  Checking whether an activity is
// running and starting one happen in that goroutine without anything in between, so two privileged
// activities can never both be started.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/event"
	"github.com/JMBoggess/Split-Flap-Clock/control/timer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"
)

var (
	startedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_activities_started_total",
		Help: "activities started, by activity",
	}, []string{"activity"})
	errorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_activity_errors_total",
		Help: "activities that returned an error other than being canceled, by activity",
	}, []string{"activity"})
	modeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_mode",
		Help: "current mode: 0 idle, 1 configuring, 2 setting time",
	})
)

// Mode is which privileged activity, if any, is running.
type Mode int32

const (
	Idle Mode = iota
	Configuring
	SettingTime
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Configuring:
		return "configuring"
	case SettingTime:
		return "setting time"
	}
	return fmt.Sprintf("mode(%d)", int32(m))
}

const (
	// ResyncPeriod and ResyncCheck drive the periodic time sync.
	ResyncPeriod = time.Hour
	ResyncCheck  = time.Minute

	// RefreshRetry is when the minute timer tries again if it went off while a refresh was running.
	RefreshRetry = time.Minute
)

// Events are everything the scheduler reacts to, plus ConfigExit, which the setup page sets and the
// configure activity waits on.
type Events struct {
	ConfigClick   *event.Event
	ConfigCancel  *event.Event
	SetTimeClick  *event.Event
	SetTimeCancel *event.Event
	Resync        *event.Event
	ConfigExit    *event.Event
}

// NewEvents returns a fresh set of unset events.
func NewEvents() Events {
	return Events{
		ConfigClick:   event.New("config-click"),
		ConfigCancel:  event.New("config-cancel"),
		SetTimeClick:  event.New("set-time-click"),
		SetTimeCancel: event.New("set-time-cancel"),
		Resync:        event.New("resync"),
		ConfigExit:    event.New("config-exit"),
	}
}

// Activities are the things the scheduler starts.  Configure and SetTime must return promptly once
// their context is canceled, after cleaning up.  Refresh is never canceled.
type Activities interface {
	Configure(ctx context.Context, s *Scheduler) error
	SetTime(ctx context.Context, s *Scheduler) error
	Refresh(ctx context.Context) error
}

// Clock tells the scheduler when the next minute starts.
type Clock interface {
	Now() time.Time
}

type task struct {
	name   string
	cancel context.CancelFunc
	err    error
	reply  []chan error // refresh only; told the result when the task finishes.
}

type refreshRequest struct {
	reply chan error
}

// Scheduler runs the clock's activities.  Create one with New.
type Scheduler struct {
	Events     Events
	Activities Activities
	Clock      Clock

	ResyncPeriod time.Duration
	ResyncCheck  time.Duration

	mode     atomic.Int32
	finished chan *task
	requests chan refreshRequest

	// Owned by the goroutine calling Run.
	config, setTime, refresh *task
	running                  int
	l                        trace.EventLog
}

// New returns a scheduler using the hourly resync.
func New(events Events, activities Activities, clock Clock) *Scheduler {
	return &Scheduler{
		Events:       events,
		Activities:   activities,
		Clock:        clock,
		ResyncPeriod: ResyncPeriod,
		ResyncCheck:  ResyncCheck,
		finished:     make(chan *task),
		requests:     make(chan refreshRequest),
	}
}

// Mode returns the current mode.  It stays Configuring or SettingTime until the activity has
// returned, cleanup included.
func (s *Scheduler) Mode() Mode { return Mode(s.mode.Load()) }

func (s *Scheduler) publish() {
	m := Idle
	if s.setTime != nil {
		m = SettingTime
	} else if s.config != nil {
		m = Configuring
	}
	if old := Mode(s.mode.Swap(int32(m))); old != m {
		s.l.Printf("mode %v -> %v", old, m)
	}
	modeGauge.Set(float64(m))
}

func (s *Scheduler) launch(ctx context.Context, name string, f func(context.Context) error) *task {
	ctx, cancel := context.WithCancel(ctx)
	t := &task{name: name, cancel: cancel}
	s.running++
	startedCounter.WithLabelValues(name).Inc()
	s.l.Printf("start %s", name)
	go func() {
		t.err = f(ctx)
		cancel()
		s.finished <- t
	}()
	return t
}

func (s *Scheduler) startConfig(ctx context.Context) {
	s.Events.ConfigExit.Clear()
	s.config = s.launch(ctx, "configure", func(ctx context.Context) error { return s.Activities.Configure(ctx, s) })
	s.publish()
}

func (s *Scheduler) startSetTime(ctx context.Context) {
	s.setTime = s.launch(ctx, "set-time", func(ctx context.Context) error { return s.Activities.SetTime(ctx, s) })
	s.publish()
}

func (s *Scheduler) startRefresh(ctx context.Context) {
	s.refresh = s.launch(ctx, "refresh", s.Activities.Refresh)
}

// complete handles a finished task and reports whether it was the refresh.
func (s *Scheduler) complete(t *task) bool {
	s.running--
	switch {
	case t.err == nil:
		s.l.Printf("%s finished", t.name)
	case errors.Is(t.err, context.Canceled):
		s.l.Printf("%s canceled: %v", t.name, t.err)
		log.Printf("%s canceled", t.name)
	default:
		errorsCounter.WithLabelValues(t.name).Inc()
		s.l.Errorf("%s failed: %v", t.name, t.err)
		log.Printf("%s failed: %v", t.name, t.err)
	}
	var wasRefresh bool
	switch t {
	case s.config:
		s.config = nil
	case s.setTime:
		s.setTime = nil
	case s.refresh:
		s.refresh = nil
		wasRefresh = true
		for _, r := range t.reply {
			r <- t.err
		}
	}
	s.publish()
	return wasRefresh
}

func (s *Scheduler) untilNextMinute() time.Duration {
	now := s.Clock.Now()
	return now.Truncate(time.Minute).Add(time.Minute).Sub(now)
}

// RequestRefresh refreshes the display, or joins the refresh already running, and waits for it to
// finish.  Activities call it from inside Run.
func (s *Scheduler) RequestRefresh(ctx context.Context) error {
	req := refreshRequest{reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return fmt.Errorf("request refresh: %w", ctx.Err())
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return fmt.Errorf("wait for refresh: %w", ctx.Err())
	}
}

// Run sets the time, then reacts to events until the context is done.  Before returning, it cancels
// whatever is running and waits for it.
func (s *Scheduler) Run(ctx context.Context) error {
	s.l = trace.NewEventLog("scheduler", "run")
	defer s.l.Finish()

	resync := timer.New(s.Events.Resync, s.ResyncPeriod, s.ResyncCheck)
	defer resync.Stop()

	refreshTimer := time.NewTimer(time.Hour)
	refreshTimer.Stop()
	defer refreshTimer.Stop()

	// Until the first time set finishes, only the set-time cancel button and refresh requests are
	// listened to; other button presses stay pending.
	s.startSetTime(ctx)
	startup := true
	var (
		configClick, configCancel, setTimeClick, resyncC <-chan struct{}
		refreshC                                         <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return s.shutdown(ctx)

		case t := <-s.finished:
			if s.complete(t) {
				refreshTimer.Reset(s.untilNextMinute())
			}
			if startup && s.setTime == nil {
				startup = false
				configClick, configCancel = s.Events.ConfigClick.C(), s.Events.ConfigCancel.C()
				setTimeClick, resyncC = s.Events.SetTimeClick.C(), s.Events.Resync.C()
				refreshC = refreshTimer.C
				resync.Start(ctx)
				refreshTimer.Reset(0)
				s.l.Printf("startup complete")
			}

		case req := <-s.requests:
			if s.refresh == nil {
				s.startRefresh(ctx)
			}
			s.refresh.reply = append(s.refresh.reply, req.reply)

		case <-refreshC:
			if s.refresh != nil {
				refreshTimer.Reset(RefreshRetry)
				continue
			}
			s.startRefresh(ctx)

		case <-configClick:
			if s.Mode() == Idle {
				s.startConfig(ctx)
			}

		case <-configCancel:
			if s.Mode() == Configuring {
				s.l.Printf("cancel configure")
				s.config.cancel()
			}

		case <-setTimeClick:
			if s.Mode() == Idle {
				s.startSetTime(ctx)
			}

		case <-s.Events.SetTimeCancel.C():
			if s.Mode() == SettingTime {
				s.l.Printf("cancel set-time")
				s.setTime.cancel()
			}

		case <-resyncC:
			if s.Mode() == Idle {
				s.startSetTime(ctx)
			}
		}
	}
}

// shutdown cancels every task and waits for them all to finish.
func (s *Scheduler) shutdown(ctx context.Context) error {
	for _, t := range []*task{s.config, s.setTime, s.refresh} {
		if t != nil {
			t.cancel()
		}
	}
	for s.running > 0 {
		s.complete(<-s.finished)
	}
	return fmt.Errorf("scheduler: %w", ctx.Err())
}
