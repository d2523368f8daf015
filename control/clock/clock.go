// Package clock keeps the time that the display shows and turns it into glyphs.
package clock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata" // The board may not have a zoneinfo database.

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var offsetGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "clock_offset_seconds",
	Help: "correction applied to the system clock to get the displayed time",
})

// LocalTime is a broken-down local time on a 12-hour clock.
type LocalTime struct {
	Year     int
	Month    time.Month
	Day      int
	Weekday  time.Weekday // Sunday is 0.
	Hour     int          // 1 through 12.
	Minute   int
	Second   int
	Meridiem string // "AM" or "PM".
}

// FromTime breaks t down in its own location.
func FromTime(t time.Time) LocalTime {
	lt := LocalTime{
		Year:     t.Year(),
		Month:    t.Month(),
		Day:      t.Day(),
		Weekday:  t.Weekday(),
		Minute:   t.Minute(),
		Second:   t.Second(),
		Meridiem: "AM",
	}
	h := t.Hour()
	if h >= 12 {
		lt.Meridiem = "PM"
	}
	switch {
	case h == 0:
		lt.Hour = 12
	case h > 12:
		lt.Hour = h - 12
	default:
		lt.Hour = h
	}
	return lt
}

func (lt LocalTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d (%s) %2d:%02d:%02d %s", lt.Year, lt.Month, lt.Day, lt.Weekday, lt.Hour, lt.Minute, lt.Second, lt.Meridiem)
}

// Targets returns the glyph for each digit of a display with the given number of digits: the hour
// (space padded) and minute on four, plus weekday and meridiem on the fifth.
func Targets(lt LocalTime, digits int) ([]string, error) {
	h := fmt.Sprintf("%2d", lt.Hour)
	m := fmt.Sprintf("%02d", lt.Minute)
	result := []string{h[:1], h[1:], m[:1], m[1:]}
	switch digits {
	case 4:
	case 5:
		result = append(result, fmt.Sprintf("%d-%s", int(lt.Weekday), lt.Meridiem))
	default:
		return nil, fmt.Errorf("no layout for %d digits", digits)
	}
	return result, nil
}

// Clock is the system clock plus a correction from the last time sync, shown in a configurable
// time zone.
type Clock struct {
	// System replaces time.Now in tests.
	System func() time.Time

	offset atomic.Int64

	mu  sync.Mutex
	loc *time.Location // must hold mu to read or write.
}

// New returns a clock that reads the system clock in UTC.
func New() *Clock {
	return &Clock{System: time.Now, loc: time.UTC}
}

// Now returns the corrected time.
func (c *Clock) Now() time.Time {
	return c.System().Add(c.Offset())
}

// Offset returns the correction currently applied to the system clock.
func (c *Clock) Offset() time.Duration { return time.Duration(c.offset.Load()) }

// SetOffset replaces the correction with d, the system clock's error as a time source measured it.
func (c *Clock) SetOffset(d time.Duration) {
	c.offset.Store(int64(d))
	offsetGauge.Set(d.Seconds())
}

// Set makes Now return t at this instant.
func (c *Clock) Set(t time.Time) {
	d := t.Sub(c.System())
	c.offset.Store(int64(d))
	offsetGauge.Set(d.Seconds())
}

// LoadLocation switches to the named IANA time zone.  An empty name means UTC.
func (c *Clock) LoadLocation(name string) error {
	loc := time.UTC
	if name != "" {
		var err error
		loc, err = time.LoadLocation(name)
		if err != nil {
			return fmt.Errorf("load time zone %q: %w", name, err)
		}
	}
	c.SetLocation(loc)
	return nil
}

// SetLocation switches to loc.
func (c *Clock) SetLocation(loc *time.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loc = loc
}

// Location returns the time zone the clock is shown in.
func (c *Clock) Location() *time.Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loc
}

// LocalTime returns the corrected time in the clock's time zone.
func (c *Clock) LocalTime() LocalTime {
	return FromTime(c.Now().In(c.Location()))
}
