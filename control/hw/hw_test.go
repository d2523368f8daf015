package hw

import (
	"reflect"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

var (
	_ Pin         = &gpiotest.Pin{}
	_ Pin         = &Sim{}
	_ FrameWriter = &Rig{}
)

func TestSimTrace(t *testing.T) {
	trace := new(Trace)
	a := &Sim{Name: "a", Trace: trace}
	b := &Sim{Name: "b", Trace: trace}
	a.Out(gpio.High)
	b.Out(gpio.Low)
	a.Out(gpio.Low)
	b.Set(gpio.High) // not recorded

	want := []Transition{{"a", gpio.High}, {"b", gpio.Low}, {"a", gpio.Low}}
	if got := trace.Transitions(); !reflect.DeepEqual(got, want) {
		t.Errorf("transitions:\n  got: %v\n want: %v", got, want)
	}
	if got, want := b.Read(), gpio.High; got != want {
		t.Errorf("read after set:\n  got: %v\n want: %v", got, want)
	}
	trace.Reset()
	if got := trace.Transitions(); len(got) != 0 {
		t.Errorf("transitions after reset: %v", got)
	}
}

func TestRig(t *testing.T) {
	r := NewRig(3, 2047, 100, 0)
	sensors := r.Sensors()
	if got, want := Active(sensors[0]), false; got != want {
		t.Errorf("digit 0 magnet before step:\n  got: %v\n want: %v", got, want)
	}
	if got, want := Active(sensors[2]), true; got != want {
		t.Errorf("digit 2 magnet before step:\n  got: %v\n want: %v", got, want)
	}

	// Register 0 moves digit 0 (high nibble) only; register 1 moves digit 2.
	if err := r.Write([]byte{0x30, 0x30}); err != nil {
		t.Fatal(err)
	}
	for i, want := range []int{0, 100, 1} {
		if got := r.Position(i); got != want {
			t.Errorf("digit %d position:\n  got: %v\n want: %v", i, got, want)
		}
	}
	if got, want := Active(sensors[0]), true; got != want {
		t.Errorf("digit 0 magnet after wrap:\n  got: %v\n want: %v", got, want)
	}
	if got, want := r.Frames(), 1; got != want {
		t.Errorf("frames:\n  got: %v\n want: %v", got, want)
	}
}
