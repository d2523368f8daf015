package flap

import (
	"fmt"
	"math"
)

const (
	// FullRevolutionSteps is the number of full steps in one turn of the drum.
	FullRevolutionSteps = 2048

	// StepCap bounds one attempt at 1.25 revolutions, enough for the worst-case homing run.
	StepCap = FullRevolutionSteps + FullRevolutionSteps/4

	// HomeReads is how far the drum keeps turning after the magnet is first sensed before the home
	// flap has dropped.
	HomeReads = 90

	// MaxAttempts is the number of tries Show makes: already there, go straight to the target, or
	// home first and then go to the target.  Needing more means something is wrong.
	MaxAttempts = 3
)

// PhaseKind says what a digit is doing during a display run.
type PhaseKind int

const (
	AtTarget PhaseKind = iota
	SeekOffMagnet
	SeekOnMagnet
	Advancing
)

// Phase is a digit's step directive.  Remaining is only meaningful while Advancing.
type Phase struct {
	Kind      PhaseKind
	Remaining int
}

// Moving reports whether the digit turns on the next tick.
func (p Phase) Moving() bool { return p.Kind != AtTarget }

func (p Phase) String() string {
	switch p.Kind {
	case AtTarget:
		return "at target"
	case SeekOffMagnet:
		return "seeking off magnet"
	case SeekOnMagnet:
		return "seeking magnet"
	case Advancing:
		return fmt.Sprintf("advancing %d steps", p.Remaining)
	}
	return fmt.Sprintf("invalid phase %d", int(p.Kind))
}

// StepsBetween returns the steps to turn from flap current to flap target on a drum of flapCount
// flaps.  The drum only turns one way, so target must not be before current.
func StepsBetween(current, target, flapCount int) int {
	return int(math.Round(FullRevolutionSteps * float64(target-current) / float64(flapCount)))
}

// Digit tracks where one drum is and what it is doing.
type Digit struct {
	Alphabet Alphabet
	Target   int
	Phase    Phase

	current int
	known   bool // false until homed, or after a fault
}

// Current returns the flap the digit is believed to show.  ok is false if the position is unknown.
func (d *Digit) Current() (flap int, ok bool) { return d.current, d.known }

// forget marks the position unknown, forcing the next plan to home.
func (d *Digit) forget() { d.current, d.known = 0, false }

// plan picks the directive that gets the digit from where it is to Target.  magnet is the current
// hall sensor reading.  Going backwards means going all the way around through home, which also
// recalibrates.  When advancing, the position is updated right away: it is correct once the steps
// are taken.
func (d *Digit) plan(magnet bool) Phase {
	if !d.known || d.Target < d.current {
		d.current, d.known = 0, true
		if magnet {
			return Phase{Kind: SeekOffMagnet}
		}
		return Phase{Kind: SeekOnMagnet}
	}
	if d.current == d.Target {
		return Phase{Kind: AtTarget}
	}
	steps := StepsBetween(d.current, d.Target, len(d.Alphabet))
	d.current = d.Target
	if steps <= 0 {
		return Phase{Kind: AtTarget}
	}
	return Phase{Kind: Advancing, Remaining: steps}
}

// seeking reports whether the next advance needs a sensor reading.
func (d *Digit) seeking() bool {
	return d.Phase.Kind == SeekOffMagnet || d.Phase.Kind == SeekOnMagnet
}

// advance moves the directive on by one tick, after the step has been emitted.
func (d *Digit) advance(magnet bool) {
	switch d.Phase.Kind {
	case Advancing:
		d.Phase.Remaining--
		if d.Phase.Remaining <= 0 {
			d.Phase = Phase{Kind: AtTarget}
		}
	case SeekOffMagnet:
		if !magnet {
			d.Phase = Phase{Kind: SeekOnMagnet}
		}
	case SeekOnMagnet:
		if magnet {
			d.Phase = Phase{Kind: Advancing, Remaining: HomeReads}
		}
	}
}
