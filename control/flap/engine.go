// Package flap drives the split-flap digits: a 28BYJ-48 stepper per digit, fed through shared shift
// registers two digits to a register, with a hall sensor per digit that sees a magnet on the drum
// just before the home flap drops.
//
// All digits step in lockstep.  Every tick produces one frame with a byte per register, and the
// nibble for a digit is either the coil pattern of the current phase or zero, depending on whether
// that digit still has somewhere to go.  There is no encoder, so the engine only knows where a drum
// is because it counted the steps since the last time it saw the magnet.
package flap

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/hw"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flap_ticks_total",
		Help: "frames sent to the shift registers with at least one digit moving",
	})
	overrunCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flap_step_overruns_total",
		Help: "attempts that hit the step cap with digits still moving",
	})
	exhaustedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flap_attempts_exhausted_total",
		Help: "calls to Show that ran out of attempts with digits still moving",
	})
	showDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flap_show_duration_seconds",
		Help:    "time taken by each call to Show",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})
)

// Bus accepts one byte per shift register and latches them together.
type Bus interface {
	Write(frame []byte) error
}

// Engine owns every digit.  Only one goroutine may call Show, Home or the calibration methods at a
// time; Glyphs and ServeHTTP are safe to call from anywhere.
type Engine struct {
	bus       Bus
	sensors   []hw.Pin
	digits    []*Digit
	registers int
	phase     int
	degraded  bool

	glyphsMu sync.Mutex
	glyphs   []string // must hold glyphsMu to read or write.
}

// NewEngine returns an engine for one digit per sensor, with the alphabet of digit i at
// alphabets[i].  Every position starts unknown.
func NewEngine(bus Bus, sensors []hw.Pin, alphabets []Alphabet) (*Engine, error) {
	if len(sensors) == 0 {
		return nil, fmt.Errorf("no digits")
	}
	if got, want := len(alphabets), len(sensors); got != want {
		return nil, fmt.Errorf("%d alphabets for %d digits", got, want)
	}
	e := &Engine{
		bus:       bus,
		sensors:   sensors,
		registers: (len(sensors) + 1) / 2,
	}
	for _, a := range alphabets {
		e.digits = append(e.digits, &Digit{Alphabet: a})
	}
	e.updateGlyphs()
	return e, nil
}

// Registers returns the number of shift registers the engine writes to.
func (e *Engine) Registers() int { return e.registers }

// Digits returns the number of digits.
func (e *Engine) Digits() int { return len(e.digits) }

// Digit returns the state of digit i, for inspection.
func (e *Engine) Digit(i int) *Digit { return e.digits[i] }

// Degraded reports whether the last Show gave up with digits still moving.  The next Show rehomes
// every digit first.
func (e *Engine) Degraded() bool { return e.degraded }

func (e *Engine) magnet(i int) bool { return hw.Active(e.sensors[i]) }

func (e *Engine) planAll() {
	for i, d := range e.digits {
		d.Phase = d.plan(e.magnet(i))
	}
}

func (e *Engine) outstanding() bool {
	for _, d := range e.digits {
		if d.Phase.Moving() {
			return true
		}
	}
	return false
}

// tick emits one frame for every digit that is still moving, then updates each digit's directive.
// The whole frame goes out before any sensor is read.
func (e *Engine) tick() error {
	moving := make([]bool, len(e.digits))
	for i, d := range e.digits {
		moving[i] = d.Phase.Moving()
	}
	if err := e.bus.Write(Frame(e.phase, moving, e.registers)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	stepsCounter.Inc()
	e.phase = (e.phase + 1) % 4
	for i, d := range e.digits {
		if d.seeking() {
			d.advance(e.magnet(i))
		} else {
			d.advance(false)
		}
	}
	return nil
}

// run ticks until every digit is at its target or StepCap ticks have been sent.
func (e *Engine) run() error {
	for n := 0; n < StepCap && e.outstanding(); n++ {
		if err := e.tick(); err != nil {
			return fmt.Errorf("tick %d: %w", n, err)
		}
	}
	return nil
}

// Show turns every digit to the matching glyph in targets.  A glyph missing from a digit's alphabet
// fails the call before anything moves.  If the attempts run out with digits still moving, Show
// still returns nil; the digits may be showing the wrong thing, which Degraded reports.  The shift
// registers are always left at zero, even when the call fails validation.
func (e *Engine) Show(targets []string) (retErr error) {
	start := time.Now()
	defer func() {
		showDuration.Observe(time.Since(start).Seconds())
		e.updateGlyphs()
		if err := e.bus.Write(make([]byte, e.registers)); err != nil && retErr == nil {
			retErr = fmt.Errorf("park: %w", err)
		}
	}()

	if got, want := len(targets), len(e.digits); got != want {
		return fmt.Errorf("%d glyphs for %d digits", got, want)
	}
	indexes := make([]int, len(targets))
	for i, g := range targets {
		idx, err := e.digits[i].Alphabet.Index(g)
		if err != nil {
			return fmt.Errorf("digit %d: %w", i, err)
		}
		indexes[i] = idx
	}

	if e.degraded {
		for _, d := range e.digits {
			d.forget()
		}
		e.degraded = false
	}
	for i, d := range e.digits {
		d.Target = indexes[i]
	}

	e.planAll()
	for attempt := 1; attempt <= MaxAttempts && e.outstanding(); attempt++ {
		if err := e.run(); err != nil {
			return fmt.Errorf("attempt %d: %w", attempt, err)
		}
		if e.outstanding() {
			overrunCounter.Inc()
			log.Printf("flap: attempt %d hit the %d step cap with digits still moving; rehoming every digit", attempt, StepCap)
			for _, d := range e.digits {
				d.forget()
			}
		}
		e.planAll()
	}
	if e.outstanding() {
		exhaustedCounter.Inc()
		e.degraded = true
		log.Printf("flap: gave up showing %q after %d attempts; display may be wrong", targets, MaxAttempts)
	}
	return nil
}
