package hw

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// FrameWriter accepts one byte per shift register.
type FrameWriter interface {
	Write(frame []byte) error
}

// Rig simulates the mechanics behind the shift registers: one rotor per digit, two digits per
// register (the even digit on the high nibble), and a home magnet that the hall sensor sees for the
// first MagnetWidth steps of every revolution.  It lets the controller run with no hardware attached.
type Rig struct {
	Next        FrameWriter // optional; every frame is forwarded here after it is applied.
	StepsPerRev int
	MagnetWidth int

	mu        sync.Mutex
	positions []int // must hold mu to read or write.
	steps     []int
	frames    int
}

// NewRig returns a rig with the rotors of n digits at the given starting positions (in steps).
func NewRig(n int, start ...int) *Rig {
	r := &Rig{StepsPerRev: 2048, MagnetWidth: 40, positions: make([]int, n), steps: make([]int, n)}
	copy(r.positions, start)
	return r
}

func (r *Rig) Write(frame []byte) error {
	r.mu.Lock()
	r.frames++
	for reg, b := range frame {
		for half, mask := range []byte{0xf0, 0x0f} {
			d := 2*reg + half
			if d >= len(r.positions) || b&mask == 0 {
				continue
			}
			r.positions[d] = (r.positions[d] + 1) % r.StepsPerRev
			r.steps[d]++
		}
	}
	r.mu.Unlock()
	if r.Next != nil {
		return r.Next.Write(frame)
	}
	return nil
}

// Sensor returns the simulated hall sensor of digit i; it reads low while the magnet is in range.
func (r *Rig) Sensor(i int) Pin {
	return &Sim{Name: "hall", ReadFunc: func() gpio.Level {
		r.mu.Lock()
		defer r.mu.Unlock()
		return gpio.Level(r.positions[i] >= r.MagnetWidth)
	}}
}

// Sensors returns every digit's Sensor.
func (r *Rig) Sensors() []Pin {
	var result []Pin
	for i := range r.positions {
		result = append(result, r.Sensor(i))
	}
	return result
}

// Position returns the rotor position of digit i, in steps past the start of the magnet.
func (r *Rig) Position(i int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positions[i]
}

// Steps returns how many steps digit i has taken since the rig was created.
func (r *Rig) Steps(i int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps[i]
}

// Frames returns how many frames have been written.
func (r *Rig) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}
