package hw

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Transition is one write to a simulated pin.
type Transition struct {
	Pin   string
	Level gpio.Level
}

func (t Transition) String() string { return fmt.Sprintf("%s=%v", t.Pin, t.Level) }

// Trace records writes to simulated pins in the order they happened, across every pin sharing it.
type Trace struct {
	mu          sync.Mutex
	transitions []Transition // must hold mu to read or write.
}

func (t *Trace) add(tr Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitions = append(t.transitions, tr)
}

// Transitions returns a copy of everything recorded so far.
func (t *Trace) Transitions() []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Transition(nil), t.transitions...)
}

// Reset forgets everything recorded so far.
func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitions = nil
}

// Sim is an in-memory Pin.  Outputs record into Trace (if set); inputs return whatever was last
// passed to Set or Out, or the result of ReadFunc when it is set.
type Sim struct {
	Name     string
	Trace    *Trace
	ReadFunc func() gpio.Level

	mu    sync.Mutex
	level gpio.Level
}

// NewSim returns a simulated pin at level l.
func NewSim(name string, l gpio.Level) *Sim {
	return &Sim{Name: name, level: l}
}

func (s *Sim) Read() gpio.Level {
	if s.ReadFunc != nil {
		return s.ReadFunc()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *Sim) Out(l gpio.Level) error {
	s.Set(l)
	if s.Trace != nil {
		s.Trace.add(Transition{Pin: s.Name, Level: l})
	}
	return nil
}

// Set changes the level without recording a transition; tests use it to press buttons.
func (s *Sim) Set(l gpio.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = l
}

func (s *Sim) String() string { return s.Name }
