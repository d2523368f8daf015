// Package led drives the status LED.
package led

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/hw"
	"periph.io/x/conn/v3/gpio"
)

const (
	// ConstantPeriod is the time between toggles while blinking constantly.
	ConstantPeriod = 500 * time.Millisecond

	// ErrorShort and ErrorPause are the time after each toggle of the error pattern; the pause follows
	// the last toggle of each group.
	ErrorShort = 200 * time.Millisecond
	ErrorPause = 1000 * time.Millisecond

	// ErrorToggles is 4 blinks (8 toggles) repeated 5 times.
	ErrorToggles = 8 * 5
)

// LED is a status light.  Every call replaces whatever the light was doing before.
type LED struct {
	Pin hw.Pin

	// After replaces time.After in tests.
	After func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	level  gpio.Level         // must hold mu to read or write.
	cancel context.CancelFunc // must hold mu to read or write.
	done   chan struct{}      // must hold mu to read or write.
}

// New returns an LED on pin, switched off.
func New(pin hw.Pin) (*LED, error) {
	l := &LED{Pin: pin, After: time.After}
	if err := l.Off(); err != nil {
		return nil, err
	}
	return l, nil
}

// stop ends any blinking pattern and waits for it to finish.
func (l *LED) stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (l *LED) set(level gpio.Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	if err := l.Pin.Out(level); err != nil {
		return fmt.Errorf("set led %v: %w", level, err)
	}
	return nil
}

func (l *LED) toggle() error {
	l.mu.Lock()
	level := !l.level
	l.mu.Unlock()
	return l.set(level)
}

// On turns the light on.
func (l *LED) On() error {
	l.stop()
	return l.set(gpio.High)
}

// Off turns the light off.
func (l *LED) Off() error {
	l.stop()
	return l.set(gpio.Low)
}

// blink runs pattern in the background, starting from off.
func (l *LED) blink(pattern func(ctx context.Context) error) error {
	l.stop()
	if err := l.set(gpio.Low); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.mu.Lock()
	l.cancel, l.done = cancel, done
	l.mu.Unlock()
	go func() {
		defer close(done)
		if err := pattern(ctx); err != nil {
			log.Printf("led: blink pattern stopped: %v", err)
		}
	}()
	return nil
}

func (l *LED) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-l.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// BlinkConstant toggles the light every ConstantPeriod until told to do something else.
func (l *LED) BlinkConstant() error {
	return l.blink(func(ctx context.Context) error {
		for {
			if err := l.toggle(); err != nil {
				return err
			}
			if !l.sleep(ctx, ConstantPeriod) {
				return nil
			}
		}
	})
}

// BlinkError flashes four short blinks, pauses, and does that five times, then leaves the light off.
func (l *LED) BlinkError() error {
	return l.blink(func(ctx context.Context) error {
		for n := ErrorToggles; n > 0; n-- {
			if err := l.toggle(); err != nil {
				return err
			}
			d := ErrorShort
			if n%8 == 1 {
				d = ErrorPause
			}
			if !l.sleep(ctx, d) {
				return nil
			}
		}
		return l.set(gpio.Low)
	})
}

// Wait blocks until the current pattern has finished on its own, or ctx is done.  The constant blink
// never finishes.
func (l *LED) Wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for led pattern: %w", ctx.Err())
	}
}
