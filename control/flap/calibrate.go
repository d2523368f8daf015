package flap

import "fmt"

// stepOne turns only digit i by one step.
func (e *Engine) stepOne(i int) error {
	moving := make([]bool, len(e.digits))
	moving[i] = true
	if err := e.bus.Write(Frame(e.phase, moving, e.registers)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	e.phase = (e.phase + 1) % 4
	return nil
}

func (e *Engine) park() error {
	if err := e.bus.Write(make([]byte, e.registers)); err != nil {
		return fmt.Errorf("park: %w", err)
	}
	return nil
}

// seekHome turns digit i off the magnet if it is on it, then onto it, each for at most one
// revolution.
func (e *Engine) seekHome(i int) error {
	for n := 0; e.magnet(i) && n < FullRevolutionSteps; n++ {
		if err := e.stepOne(i); err != nil {
			return fmt.Errorf("seek off magnet: %w", err)
		}
	}
	for n := 0; !e.magnet(i) && n < FullRevolutionSteps; n++ {
		if err := e.stepOne(i); err != nil {
			return fmt.Errorf("seek magnet: %w", err)
		}
	}
	return nil
}

// Home turns digit i, on its own, to the home flap.  If the magnet is never seen the seek gives up
// after a revolution and the post-roll happens anyway, so the digit ends up wherever that leaves it
// while being recorded as home.
func (e *Engine) Home(i int) error {
	if i < 0 || i >= len(e.digits) {
		return fmt.Errorf("no digit %d", i)
	}
	defer e.updateGlyphs()
	if err := e.seekHome(i); err != nil {
		e.digits[i].forget()
		return fmt.Errorf("home digit %d: %w", i, err)
	}
	for n := 0; n < HomeReads; n++ {
		if err := e.stepOne(i); err != nil {
			e.digits[i].forget()
			return fmt.Errorf("home digit %d: post-roll: %w", i, err)
		}
	}
	e.digits[i].current, e.digits[i].known = 0, true
	e.digits[i].Phase = Phase{Kind: AtTarget}
	return e.park()
}

// Survey is the number of sensor readings with and without the magnet over one revolution.
type Survey struct {
	Magnet, NoMagnet int
}

// Survey turns digit i for the given number of revolutions, reading the hall sensor after every
// step.  A healthy digit sees the magnet for the same number of steps each time around.
func (e *Engine) Survey(i, revolutions int) ([]Survey, error) {
	if i < 0 || i >= len(e.digits) {
		return nil, fmt.Errorf("no digit %d", i)
	}
	e.digits[i].forget()
	defer e.updateGlyphs()
	var result []Survey
	for rev := 0; rev < revolutions; rev++ {
		var s Survey
		for n := 0; n < FullRevolutionSteps; n++ {
			if err := e.stepOne(i); err != nil {
				return result, fmt.Errorf("survey digit %d: %w", i, err)
			}
			if e.magnet(i) {
				s.Magnet++
			} else {
				s.NoMagnet++
			}
		}
		result = append(result, s)
	}
	return result, e.park()
}

// FindHomeOffset finds the start of the magnet on digit i, then steps while the magnet is still
// sensed, calling observe after each step.  Watching for the step where the home flap drops gives the
// value for HomeReads.
func (e *Engine) FindHomeOffset(i int, observe func(step int)) error {
	if i < 0 || i >= len(e.digits) {
		return fmt.Errorf("no digit %d", i)
	}
	e.digits[i].forget()
	defer e.updateGlyphs()
	if err := e.seekHome(i); err != nil {
		return fmt.Errorf("find home offset: %w", err)
	}
	for n := 1; e.magnet(i) && n <= FullRevolutionSteps; n++ {
		if err := e.stepOne(i); err != nil {
			return fmt.Errorf("find home offset: %w", err)
		}
		observe(n)
	}
	return e.park()
}
