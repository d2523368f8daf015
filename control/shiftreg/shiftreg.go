// Package shiftreg clocks bytes out to a chain of 74HC595 serial-in/parallel-out shift registers.
//
// All registers share the clock and latch lines; the first register's serial input is driven by the
// controller and each register's QH' output feeds the next one's serial input.  A frame therefore
// has to be sent farthest register first, and each byte least-significant bit first, for every
// output to land where the wiring expects it.
package shiftreg

import (
	"fmt"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/hw"
	"periph.io/x/conn/v3/gpio"
)

// SettleDelay is how long every line is held after it changes.
const SettleDelay = 200 * time.Microsecond

// Bus is a daisy chain of Registers shift registers.
type Bus struct {
	Clock, Latch, Serial hw.Pin
	Registers            int

	// Sleep waits out each settle delay; nil means time.Sleep.
	Sleep func(time.Duration)
}

func (b *Bus) set(p hw.Pin, l gpio.Level) error {
	if err := p.Out(l); err != nil {
		return err
	}
	if b.Sleep != nil {
		b.Sleep(SettleDelay)
	} else {
		time.Sleep(SettleDelay)
	}
	return nil
}

// Write sends one byte to each register and latches them all at once.  frame[0] is the register
// nearest the controller.
func (b *Bus) Write(frame []byte) error {
	if got, want := len(frame), b.Registers; got != want {
		return fmt.Errorf("frame has %d bytes for %d registers", got, want)
	}
	if err := b.set(b.Latch, gpio.Low); err != nil {
		return fmt.Errorf("latch low: %w", err)
	}
	for i := len(frame) - 1; i >= 0; i-- {
		for bit := 0; bit < 8; bit++ {
			if err := b.set(b.Clock, gpio.Low); err != nil {
				return fmt.Errorf("register %d bit %d: clock low: %w", i, bit, err)
			}
			if err := b.set(b.Serial, gpio.Level(frame[i]>>bit&1 == 1)); err != nil {
				return fmt.Errorf("register %d bit %d: serial: %w", i, bit, err)
			}
			if err := b.set(b.Clock, gpio.High); err != nil {
				return fmt.Errorf("register %d bit %d: clock high: %w", i, bit, err)
			}
		}
	}
	if err := b.set(b.Latch, gpio.High); err != nil {
		return fmt.Errorf("latch high: %w", err)
	}
	return nil
}

// Park writes all zeros, which de-energizes every motor coil.
func (b *Bus) Park() error {
	if err := b.Write(make([]byte, b.Registers)); err != nil {
		return fmt.Errorf("park: %w", err)
	}
	return nil
}
