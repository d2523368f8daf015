package flap

import (
	"reflect"
	"testing"
)

func TestStepsBetween(t *testing.T) {
	testData := []struct {
		current, target, flaps int
		want                   int
	}{
		{0, 7, 14, 1024},
		{0, 9, 14, 1317},
		{3, 4, 14, 146},
		{0, 13, 14, 1902},
		{5, 5, 14, 0},
		{0, 1, 10, 205},
	}
	for _, test := range testData {
		if got := StepsBetween(test.current, test.target, test.flaps); got != test.want {
			t.Errorf("StepsBetween(%d, %d, %d):\n  got: %v\n want: %v", test.current, test.target, test.flaps, got, test.want)
		}
	}
}

func TestPlan(t *testing.T) {
	testData := []struct {
		name        string
		known       bool
		current     int
		target      int
		magnet      bool
		want        Phase
		wantCurrent int
	}{
		{"unknown on magnet", false, 0, 9, true, Phase{Kind: SeekOffMagnet}, 0},
		{"unknown off magnet", false, 0, 9, false, Phase{Kind: SeekOnMagnet}, 0},
		{"wraps through home", true, 13, 2, false, Phase{Kind: SeekOnMagnet}, 0},
		{"already there", true, 4, 4, false, Phase{Kind: AtTarget}, 4},
		{"forward", true, 0, 7, false, Phase{Kind: Advancing, Remaining: 1024}, 7},
		{"forward ignores magnet", true, 2, 3, true, Phase{Kind: Advancing, Remaining: 146}, 3},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			d := &Digit{Alphabet: Digits, Target: test.target, current: test.current, known: test.known}
			if got, want := d.plan(test.magnet), test.want; got != want {
				t.Errorf("phase:\n  got: %v\n want: %v", got, want)
			}
			cur, ok := d.Current()
			if !ok {
				t.Error("position unknown after plan")
			}
			if got, want := cur, test.wantCurrent; got != want {
				t.Errorf("current after plan:\n  got: %v\n want: %v", got, want)
			}
		})
	}
}

func TestAdvance(t *testing.T) {
	d := &Digit{Phase: Phase{Kind: SeekOffMagnet}}
	var got []Phase
	for _, magnet := range []bool{true, true, false, false, false, true, false} {
		d.advance(magnet)
		got = append(got, d.Phase)
	}
	want := []Phase{
		{Kind: SeekOffMagnet},
		{Kind: SeekOffMagnet},
		{Kind: SeekOnMagnet},
		{Kind: SeekOnMagnet},
		{Kind: SeekOnMagnet},
		{Kind: Advancing, Remaining: HomeReads},
		{Kind: Advancing, Remaining: HomeReads - 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("phases:\n  got: %v\n want: %v", got, want)
	}

	d.Phase = Phase{Kind: Advancing, Remaining: 1}
	d.advance(false)
	if got, want := d.Phase, (Phase{Kind: AtTarget}); got != want {
		t.Errorf("after last step:\n  got: %v\n want: %v", got, want)
	}
	d.advance(true)
	if got, want := d.Phase, (Phase{Kind: AtTarget}); got != want {
		t.Errorf("at target stays put:\n  got: %v\n want: %v", got, want)
	}
}

func TestFrame(t *testing.T) {
	testData := []struct {
		phase     int
		moving    []bool
		registers int
		want      []byte
	}{
		{0, []bool{true, false, true}, 2, []byte{48, 48}},
		{1, []bool{false, true}, 1, []byte{6}},
		{2, []bool{true, true, false, true}, 2, []byte{204, 12}},
		{3, []bool{false, false}, 1, []byte{0}},
		{7, []bool{true, true}, 1, []byte{153}},
	}
	for _, test := range testData {
		if got := Frame(test.phase, test.moving, test.registers); !reflect.DeepEqual(got, test.want) {
			t.Errorf("Frame(%d, %v, %d):\n  got: %v\n want: %v", test.phase, test.moving, test.registers, got, test.want)
		}
	}
}

func TestAlphabet(t *testing.T) {
	if got, want := len(Digits), 14; got != want {
		t.Errorf("digit flaps:\n  got: %v\n want: %v", got, want)
	}
	if got, want := len(WeekdayMeridiem), 14; got != want {
		t.Errorf("weekday flaps:\n  got: %v\n want: %v", got, want)
	}
	if i, err := WeekdayMeridiem.Index("3-PM"); err != nil || i != 7 {
		t.Errorf("index of 3-PM:\n  got: %v, %v\n want: 7, <nil>", i, err)
	}
}
