// Command flap-test exercises one digit at a time, for calibrating a new display.
//
//	flap-test [flags] survey          turn the digit and count magnet readings per revolution
//	flap-test [flags] find-home       print the steps where the magnet is still seen after homing
//	flap-test [flags] home            home the digit
//	flap-test [flags] show G1 G2 ...  show one glyph on every digit
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/JMBoggess/Split-Flap-Clock/control/flap"
	"github.com/JMBoggess/Split-Flap-Clock/control/hw"
	"github.com/JMBoggess/Split-Flap-Clock/control/shiftreg"
	"periph.io/x/host/v3"
)

var (
	digit       = flag.Int("digit", 0, "digit to calibrate, 0 is leftmost")
	revolutions = flag.Int("revolutions", 3, "revolutions to survey")
	fake        = flag.Bool("fake", false, "simulate the hardware instead of opening gpio lines")
	clockPin    = flag.String("sr-clock", "GPIO15", "shift register clock gpio")
	latchPin    = flag.String("sr-latch", "GPIO14", "shift register latch gpio")
	serialPin   = flag.String("sr-serial", "GPIO13", "shift register serial gpio")
	hall        = flag.String("hall", "GPIO1,GPIO2,GPIO3,GPIO4,GPIO5", "comma separated hall sensor gpios, leftmost digit first")
)

func openEngine() (*flap.Engine, error) {
	names := strings.Split(*hall, ",")
	alphabets := make([]flap.Alphabet, len(names))
	for i := range alphabets {
		alphabets[i] = flap.Digits
	}
	if len(names) == 5 {
		alphabets[4] = flap.WeekdayMeridiem
	}
	if *fake {
		rig := hw.NewRig(len(names), 700, 1500, 90, 2000, 10)
		return flap.NewEngine(rig, rig.Sensors(), alphabets)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph.io: %w", err)
	}
	bus := &shiftreg.Bus{Registers: (len(names) + 1) / 2}
	for _, p := range []struct {
		pin  *hw.Pin
		name string
	}{{&bus.Clock, *clockPin}, {&bus.Latch, *latchPin}, {&bus.Serial, *serialPin}} {
		var err error
		if *p.pin, err = hw.OpenOutput(p.name); err != nil {
			return nil, err
		}
	}
	sensors, err := hw.OpenInputs(names)
	if err != nil {
		return nil, err
	}
	return flap.NewEngine(bus, sensors, alphabets)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] survey|find-home|home|show [glyphs...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	e, err := openEngine()
	if err != nil {
		log.Fatalf("open display: %v", err)
	}

	switch cmd := flag.Arg(0); cmd {
	case "survey":
		surveys, err := e.Survey(*digit, *revolutions)
		for i, s := range surveys {
			fmt.Printf("revolution %d: magnet %d, no magnet %d\n", i+1, s.Magnet, s.NoMagnet)
		}
		if err != nil {
			log.Fatal(err)
		}
	case "find-home":
		err := e.FindHomeOffset(*digit, func(step int) {
			fmt.Printf("step %d: magnet still present\n", step)
		})
		if err != nil {
			log.Fatal(err)
		}
	case "home":
		if err := e.Home(*digit); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("digit %d homed\n", *digit)
	case "show":
		if err := e.Show(flag.Args()[1:]); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("showing %q\n", e.Glyphs())
		if e.Degraded() {
			fmt.Println("gave up with digits still moving; check the sensors")
			os.Exit(1)
		}
	default:
		log.Fatalf("unknown command %q", cmd)
	}
}
