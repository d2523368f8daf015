package led

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/hw"
	"periph.io/x/conn/v3/gpio"
)

// instant is an After that never waits, and remembers what it was asked to wait for.
type instant struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (i *instant) After(d time.Duration) <-chan time.Time {
	i.mu.Lock()
	i.delays = append(i.delays, d)
	i.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func newTestLED(t *testing.T) (*LED, *hw.Trace, *instant) {
	t.Helper()
	trace := new(hw.Trace)
	l, err := New(&hw.Sim{Name: "led", Trace: trace})
	if err != nil {
		t.Fatalf("new led: %v", err)
	}
	trace.Reset()
	clock := new(instant)
	l.After = clock.After
	return l, trace, clock
}

func levels(ts []hw.Transition) []gpio.Level {
	var result []gpio.Level
	for _, tr := range ts {
		result = append(result, tr.Level)
	}
	return result
}

func TestOnOff(t *testing.T) {
	l, trace, _ := newTestLED(t)
	if err := l.On(); err != nil {
		t.Fatal(err)
	}
	if err := l.Off(); err != nil {
		t.Fatal(err)
	}
	if got, want := levels(trace.Transitions()), []gpio.Level{gpio.High, gpio.Low}; !reflect.DeepEqual(got, want) {
		t.Errorf("levels:\n  got: %v\n want: %v", got, want)
	}
}

func TestBlinkError(t *testing.T) {
	l, trace, clock := newTestLED(t)
	if err := l.BlinkError(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	ls := levels(trace.Transitions())
	// Off to start, 40 toggles, then off to finish.
	if got, want := len(ls), 1+ErrorToggles+1; got != want {
		t.Fatalf("transitions:\n  got: %v\n want: %v", got, want)
	}
	for i, lv := range ls[1 : 1+ErrorToggles] {
		if got, want := lv, gpio.Level(i%2 == 0); got != want {
			t.Errorf("toggle %d:\n  got: %v\n want: %v", i, got, want)
		}
	}
	if got, want := ls[len(ls)-1], gpio.Low; got != want {
		t.Errorf("final level:\n  got: %v\n want: %v", got, want)
	}

	var pauses, shorts int
	for _, d := range clock.delays {
		switch d {
		case ErrorPause:
			pauses++
		case ErrorShort:
			shorts++
		default:
			t.Errorf("unexpected delay %v", d)
		}
	}
	if got, want := pauses, 5; got != want {
		t.Errorf("pauses:\n  got: %v\n want: %v", got, want)
	}
	if got, want := shorts, 35; got != want {
		t.Errorf("short delays:\n  got: %v\n want: %v", got, want)
	}
}

func TestBlinkConstantStops(t *testing.T) {
	l, trace, _ := newTestLED(t)
	ticks := make(chan time.Time)
	l.After = func(time.Duration) <-chan time.Time { return ticks }
	if err := l.BlinkConstant(); err != nil {
		t.Fatal(err)
	}
	ticks <- time.Time{}
	ticks <- time.Time{}
	if err := l.On(); err != nil {
		t.Fatal(err)
	}

	ls := levels(trace.Transitions())
	if got, want := ls[len(ls)-1], gpio.High; got != want {
		t.Errorf("final level:\n  got: %v\n want: %v", got, want)
	}
	if got, want := ls[:4], []gpio.Level{gpio.Low, gpio.High, gpio.Low, gpio.High}; !reflect.DeepEqual(got, want) {
		t.Errorf("blink levels:\n  got: %v\n want: %v", got, want)
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("wait after On: %v", err)
	}
}
