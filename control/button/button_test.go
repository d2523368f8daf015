package button

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/event"
	"github.com/JMBoggess/Split-Flap-Clock/control/hw"
	"periph.io/x/conn/v3/gpio"
)

func TestSample(t *testing.T) {
	testData := []struct {
		name      string
		held      time.Duration
		wantClick bool
		wantLong  bool
	}{
		{"tap", 100 * time.Millisecond, true, false},
		{"just short", 1900 * time.Millisecond, true, false},
		{"exactly long", 2000 * time.Millisecond, false, true},
		{"long", 5 * time.Second, false, true},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			m := &Monitor{Name: "test", Click: event.New("click"), LongClick: event.New("long")}
			start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			m.sample(gpio.High, start)
			m.sample(gpio.Low, start.Add(PollInterval))
			for at := 2 * PollInterval; at <= test.held; at += PollInterval {
				m.sample(gpio.Low, start.Add(at))
			}
			if m.Click.IsSet() || m.LongClick.IsSet() {
				t.Fatal("event set while the button is still held")
			}
			m.sample(gpio.High, start.Add(PollInterval+test.held))
			if got, want := m.Click.IsSet(), test.wantClick; got != want {
				t.Errorf("click:\n  got: %v\n want: %v", got, want)
			}
			if got, want := m.LongClick.IsSet(), test.wantLong; got != want {
				t.Errorf("long click:\n  got: %v\n want: %v", got, want)
			}
		})
	}
}

func TestSampleLeavesPendingEvent(t *testing.T) {
	m := &Monitor{Name: "test", Click: event.New("click"), LongClick: event.New("long")}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		m.sample(gpio.Low, now)
		now = now.Add(PollInterval)
		m.sample(gpio.High, now)
		now = now.Add(PollInterval)
	}
	if !m.Click.IsSet() {
		t.Fatal("click not set")
	}
	m.Click.Clear()
	if m.Click.IsSet() {
		t.Error("three clicks queued more than one event")
	}
}

func TestRun(t *testing.T) {
	pin := hw.NewSim("button", gpio.High)
	m := &Monitor{Name: "test", Pin: pin, Click: event.New("click"), LongClick: event.New("long")}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- m.Run(ctx) }()

	pin.Set(gpio.Low)
	time.Sleep(3 * PollInterval)
	pin.Set(gpio.High)

	wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer wcancel()
	if err := m.Click.Wait(wctx); err != nil {
		t.Errorf("wait for click: %v", err)
	}
	if m.LongClick.IsSet() {
		t.Error("long click set by a short press")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("error after cancel:\n  got: %v\n want: %v", err, context.Canceled)
	}
}
