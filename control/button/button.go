// Package button turns a push button into click and long-click events.
package button

import (
	"context"
	"fmt"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/event"
	"github.com/JMBoggess/Split-Flap-Clock/control/hw"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"periph.io/x/conn/v3/gpio"
)

const (
	// PollInterval is how often the button is read.
	PollInterval = 100 * time.Millisecond

	// LongClick is how long the button must be held for a release to count as a long click.
	LongClick = 2000 * time.Millisecond
)

var clicksCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "button_clicks_total",
	Help: "button releases, by button and kind of click",
}, []string{"button", "kind"})

// Monitor watches one button wired between a pulled-up input and ground.
type Monitor struct {
	Name      string
	Pin       hw.Pin
	Click     *event.Event
	LongClick *event.Event

	pressed bool
	since   time.Time
}

// sample feeds one reading into the press/release state machine.  Events that are already set are
// left alone.
func (m *Monitor) sample(l gpio.Level, now time.Time) {
	down := l == gpio.Low
	switch {
	case down && !m.pressed:
		m.pressed, m.since = true, now
	case !down && m.pressed:
		m.pressed = false
		ev, kind := m.Click, "click"
		if now.Sub(m.since) >= LongClick {
			ev, kind = m.LongClick, "long"
		}
		if !ev.IsSet() {
			ev.Set()
		}
		clicksCounter.WithLabelValues(m.Name, kind).Inc()
	}
}

// Run polls the button until the context is done.
func (m *Monitor) Run(ctx context.Context) error {
	t := time.NewTicker(PollInterval)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			m.sample(m.Pin.Read(), now)
		case <-ctx.Done():
			return fmt.Errorf("button %s: %w", m.Name, ctx.Err())
		}
	}
}
