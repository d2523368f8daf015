// Package hw is the narrow view of GPIO hardware that the rest of the clock uses.  Lines are opened
// through periph.io on a real board, or simulated in memory for tests and for running the controller
// on a machine with nothing attached.
package hw

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Pin is a single digital line.  Every periph.io gpio.PinIO satisfies it.
type Pin interface {
	Read() gpio.Level
	Out(l gpio.Level) error
}

// OpenOutput opens the named GPIO (for example "GPIO15") as an output, driven low.  host.Init must
// have been called first.
func OpenOutput(name string) (Pin, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no gpio named %q", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("set %s as output: %w", name, err)
	}
	return p, nil
}

// OpenInput opens the named GPIO as an input with the internal pull-up enabled.  The hall sensors
// and buttons all pull their line to ground when active.
func OpenInput(name string) (Pin, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no gpio named %q", name)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("set %s as input: %w", name, err)
	}
	return p, nil
}

// OpenInputs opens each named GPIO with OpenInput.
func OpenInputs(names []string) ([]Pin, error) {
	var result []Pin
	for _, name := range names {
		p, err := OpenInput(name)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// Active reports whether an active-low line is asserted.
func Active(p Pin) bool { return p.Read() == gpio.Low }
