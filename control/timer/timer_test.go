package timer

import (
	"context"
	"testing"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/event"
)

func TestCheck(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	ev := event.New("resync")
	tm := New(ev, time.Hour, time.Minute)
	tm.Now = func() time.Time { return now }
	tm.Reset()

	testData := []struct {
		at   time.Duration
		want bool
	}{
		{time.Minute, false},
		{59 * time.Minute, false},
		{60 * time.Minute, true},
		{61 * time.Minute, false},
		// Re-based at the 60 minute fire, not at the nominal due time.
		{119 * time.Minute, false},
		{120 * time.Minute, true},
		{181 * time.Minute, true},
		{240 * time.Minute, false},
	}
	for _, test := range testData {
		ev.Clear()
		if got, want := tm.check(start.Add(test.at)), test.want; got != want {
			t.Errorf("check at %v:\n  got: %v\n want: %v", test.at, got, want)
		}
		if got, want := ev.IsSet(), test.want; got != want {
			t.Errorf("event set at %v:\n  got: %v\n want: %v", test.at, got, want)
		}
	}
}

func TestReset(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	tm := New(event.New("resync"), time.Hour, time.Minute)
	tm.Now = func() time.Time { return now }
	tm.Reset()

	now = start.Add(50 * time.Minute)
	tm.Reset()
	if tm.check(start.Add(time.Hour)) {
		t.Error("fired an hour after start despite a reset at 50 minutes")
	}
	if !tm.check(start.Add(110 * time.Minute)) {
		t.Error("did not fire an hour after the reset")
	}
}

func TestStartStop(t *testing.T) {
	ev := event.New("tick")
	tm := New(ev, 20*time.Millisecond, 5*time.Millisecond)
	tm.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ev.Wait(ctx); err != nil {
		t.Fatalf("wait for first fire: %v", err)
	}
	if err := ev.Wait(ctx); err != nil {
		t.Fatalf("wait for second fire: %v", err)
	}

	tm.Stop()
	ev.Clear()
	time.Sleep(50 * time.Millisecond)
	if ev.IsSet() {
		t.Error("timer fired after Stop")
	}
	tm.Stop()
}

func TestStopOnCancel(t *testing.T) {
	checks := make(chan time.Time)
	tm := New(event.New("tick"), time.Hour, time.Minute)
	tm.After = func(time.Duration) <-chan time.Time { return checks }

	ctx, cancel := context.WithCancel(context.Background())
	tm.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		tm.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the timer to stop after cancel")
	}
}
