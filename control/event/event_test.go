package event

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEvent(t *testing.T) {
	e := New("test")
	if e.IsSet() {
		t.Fatal("new event is set")
	}
	e.Set()
	e.Set()
	if !e.IsSet() {
		t.Fatal("event not set after Set")
	}
	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if e.IsSet() {
		t.Error("event still set after Wait; a second Set should have been dropped")
	}

	e.Set()
	e.Clear()
	if e.IsSet() {
		t.Error("event still set after Clear")
	}

	ctx, c := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer c()
	if err := e.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wait on unset event:\n  got: %v\n want: %v", err, context.DeadlineExceeded)
	}
}
