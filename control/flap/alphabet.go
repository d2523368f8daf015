package flap

import (
	"errors"
	"fmt"
)

// Alphabet is the ordered list of glyphs printed on a digit's flaps.  Index 0 is the home flap, the
// one showing just after the home magnet passes the sensor.  Alphabets are shared; never modify one.
type Alphabet []string

var (
	// Digits is the alphabet of the hour and minute digits.
	Digits = Alphabet{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", ",", ":", "!", " "}

	// WeekdayMeridiem is the alphabet of the optional fifth digit: weekday (0 is Sunday) and AM/PM.
	WeekdayMeridiem = Alphabet{"0-AM", "0-PM", "1-AM", "1-PM", "2-AM", "2-PM", "3-AM", "3-PM", "4-AM", "4-PM", "5-AM", "5-PM", "6-AM", "6-PM"}
)

// ErrInvalidGlyph is returned when asked to show a glyph that is not on a digit's flaps.
var ErrInvalidGlyph = errors.New("glyph not on flap alphabet")

// Index returns the flap index of glyph.
func (a Alphabet) Index(glyph string) (int, error) {
	for i, g := range a {
		if g == glyph {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", glyph, ErrInvalidGlyph)
}
