// Package event provides a latched signal that one part of the clock sets and another waits on.
package event

import (
	"context"
	"fmt"
)

// Event is set once and stays set until something consumes it.  Setting an event that is already
// set does nothing, so a burst of button presses while nobody is listening collapses into one.
type Event struct {
	name string
	c    chan struct{}
}

// New returns an unset event.
func New(name string) *Event {
	return &Event{name: name, c: make(chan struct{}, 1)}
}

// Set sets the event if it is not already set.
func (e *Event) Set() {
	select {
	case e.c <- struct{}{}:
	default:
	}
}

// IsSet reports whether the event is pending.
func (e *Event) IsSet() bool { return len(e.c) > 0 }

// Clear unsets the event.
func (e *Event) Clear() {
	select {
	case <-e.c:
	default:
	}
}

// C returns a channel that receives once per Set; receiving clears the event.
func (e *Event) C() <-chan struct{} { return e.c }

// Wait blocks until the event is set, then clears it.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.c:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w", e.name, ctx.Err())
	}
}

func (e *Event) String() string { return e.name }
