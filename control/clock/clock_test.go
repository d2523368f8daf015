package clock

import (
	"reflect"
	"testing"
	"time"
)

func TestFromTime(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	ist := time.FixedZone("IST", 5*60*60+30*60)
	testData := []struct {
		name string
		t    time.Time
		want LocalTime
	}{
		{
			name: "midnight",
			t:    time.Date(2024, 3, 3, 0, 5, 9, 0, time.UTC),
			want: LocalTime{2024, time.March, 3, time.Sunday, 12, 5, 9, "AM"},
		},
		{
			name: "noon",
			t:    time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC),
			want: LocalTime{2024, time.March, 3, time.Sunday, 12, 0, 0, "PM"},
		},
		{
			name: "evening",
			t:    time.Date(2024, 3, 3, 23, 59, 59, 0, time.UTC),
			want: LocalTime{2024, time.March, 3, time.Sunday, 11, 59, 59, "PM"},
		},
		{
			name: "sunday wraps back to saturday",
			t:    time.Date(2024, 3, 3, 2, 30, 0, 0, time.UTC).In(est),
			want: LocalTime{2024, time.March, 2, time.Saturday, 9, 30, 0, "PM"},
		},
		{
			name: "saturday wraps forward to sunday",
			t:    time.Date(2024, 3, 2, 20, 0, 0, 0, time.UTC).In(ist),
			want: LocalTime{2024, time.March, 3, time.Sunday, 1, 30, 0, "AM"},
		},
		{
			name: "year wraps back",
			t:    time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC).In(est),
			want: LocalTime{2023, time.December, 31, time.Sunday, 8, 0, 0, "PM"},
		},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			if got, want := FromTime(test.t), test.want; got != want {
				t.Errorf("local time:\n  got: %v\n want: %v", got, want)
			}
		})
	}
}

func TestTargets(t *testing.T) {
	testData := []struct {
		lt     LocalTime
		digits int
		want   []string
	}{
		{LocalTime{Weekday: time.Monday, Hour: 9, Minute: 5, Meridiem: "AM"}, 4, []string{" ", "9", "0", "5"}},
		{LocalTime{Weekday: time.Saturday, Hour: 12, Minute: 30, Meridiem: "PM"}, 4, []string{"1", "2", "3", "0"}},
		{LocalTime{Weekday: time.Sunday, Hour: 12, Minute: 0, Meridiem: "AM"}, 5, []string{"1", "2", "0", "0", "0-AM"}},
		{LocalTime{Weekday: time.Saturday, Hour: 7, Minute: 59, Meridiem: "PM"}, 5, []string{" ", "7", "5", "9", "6-PM"}},
	}
	for _, test := range testData {
		got, err := Targets(test.lt, test.digits)
		if err != nil {
			t.Errorf("targets for %v: %v", test.lt, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("targets for %v:\n  got: %q\n want: %q", test.lt, got, test.want)
		}
	}
	if _, err := Targets(LocalTime{}, 6); err == nil {
		t.Error("expected an error for six digits")
	}
}

func TestClock(t *testing.T) {
	system := time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC)
	c := New()
	c.System = func() time.Time { return system }

	if got, want := c.Now(), system; !got.Equal(want) {
		t.Errorf("now:\n  got: %v\n want: %v", got, want)
	}

	c.SetOffset(90 * time.Second)
	c.SetOffset(time.Minute)
	if got, want := c.Offset(), time.Minute; got != want {
		t.Errorf("offset:\n  got: %v\n want: %v", got, want)
	}

	c.Set(time.Date(2024, 6, 1, 17, 15, 0, 0, time.UTC))
	if got, want := c.Offset(), 75*time.Minute; got != want {
		t.Errorf("offset after set:\n  got: %v\n want: %v", got, want)
	}

	if err := c.LoadLocation("America/New_York"); err != nil {
		t.Fatalf("load location: %v", err)
	}
	want := LocalTime{2024, time.June, 1, time.Saturday, 1, 15, 0, "PM"}
	if got := c.LocalTime(); got != want {
		t.Errorf("local time:\n  got: %v\n want: %v", got, want)
	}

	if err := c.LoadLocation("Not/A_Zone"); err == nil {
		t.Error("expected an error loading a bogus zone")
	}
	if err := c.LoadLocation(""); err != nil {
		t.Fatalf("load empty location: %v", err)
	}
	if got, want := c.Location(), time.UTC; got != want {
		t.Errorf("location:\n  got: %v\n want: %v", got, want)
	}
}
