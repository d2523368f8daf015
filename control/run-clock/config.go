package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/JMBoggess/Split-Flap-Clock/control/clock"
	"github.com/JMBoggess/Split-Flap-Clock/control/modes"
	"github.com/JMBoggess/Split-Flap-Clock/control/settings"
	"github.com/JMBoggess/Split-Flap-Clock/control/timesync"
	"github.com/caarlos0/env/v11"
)

// config is read from the environment first; flags override it.
type config struct {
	Bind      string `env:"CLOCK_BIND" envDefault:":8080"`
	SetupAddr string `env:"CLOCK_SETUP_ADDR" envDefault:":80"`
	Settings  string `env:"CLOCK_SETTINGS" envDefault:"/var/lib/split-flap-clock/settings.json"`
	Journal   string `env:"CLOCK_JOURNAL" envDefault:"/var/lib/split-flap-clock/journal.db"`
	Interface string `env:"CLOCK_WIFI_INTERFACE" envDefault:"wlan0"`
	Fake      bool   `env:"CLOCK_FAKE"`

	TimeSource string `env:"CLOCK_TIME_SOURCE" envDefault:"ntp"`
	Chrony     string `env:"CLOCK_CHRONY_ADDR" envDefault:"127.0.0.1:323"`
	GPSD       string `env:"CLOCK_GPSD_ADDR" envDefault:"localhost:2947"`

	ClockPin      string   `env:"CLOCK_PIN_SR_CLOCK" envDefault:"GPIO15"`
	LatchPin      string   `env:"CLOCK_PIN_SR_LATCH" envDefault:"GPIO14"`
	SerialPin     string   `env:"CLOCK_PIN_SR_SERIAL" envDefault:"GPIO13"`
	LEDPin        string   `env:"CLOCK_PIN_LED" envDefault:"GPIO16"`
	ConfigButton  string   `env:"CLOCK_PIN_CONFIG_BUTTON" envDefault:"GPIO18"`
	SetTimeButton string   `env:"CLOCK_PIN_SET_TIME_BUTTON" envDefault:"GPIO19"`
	Hall          []string `env:"CLOCK_PIN_HALL" envDefault:"GPIO1,GPIO2,GPIO3,GPIO4,GPIO5" envSeparator:","`
}

func loadConfig(args []string) (*config, error) {
	cfg := new(config)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	fs := flag.NewFlagSet("run-clock", flag.ContinueOnError)
	fs.StringVar(&cfg.Bind, "bind", cfg.Bind, "address to bind for debug/metrics server")
	fs.StringVar(&cfg.SetupAddr, "setup", cfg.SetupAddr, "address to bind for the setup pages while configuring")
	fs.StringVar(&cfg.Settings, "settings", cfg.Settings, "settings file")
	fs.StringVar(&cfg.Journal, "journal", cfg.Journal, "journal database")
	fs.StringVar(&cfg.Interface, "wifi", cfg.Interface, "wifi interface")
	fs.BoolVar(&cfg.Fake, "fake", cfg.Fake, "simulate the hardware instead of opening gpio lines")
	fs.StringVar(&cfg.TimeSource, "time-source", cfg.TimeSource, "where to get the time: ntp, chrony or gpsd")
	hall := fs.String("hall", strings.Join(cfg.Hall, ","), "comma separated hall sensor gpios, leftmost digit first")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Hall = strings.Split(*hall, ",")
	switch cfg.TimeSource {
	case "ntp", "chrony", "gpsd":
	default:
		return nil, fmt.Errorf("unknown time source %q", cfg.TimeSource)
	}
	if n := len(cfg.Hall); n != 4 && n != 5 {
		return nil, fmt.Errorf("%d hall sensors; the display has 4 or 5 digits", n)
	}
	return cfg, nil
}

// syncerFor picks the time source.  The gpsd session is shared between syncs.
func syncerFor(cfg *config, c *clock.Clock) func(settings.Settings) modes.Syncer {
	gpsd := &timesync.GPSD{Addr: cfg.GPSD}
	return func(cur settings.Settings) modes.Syncer {
		var src timesync.Source
		switch cfg.TimeSource {
		case "chrony":
			src = &timesync.Chrony{Addr: cfg.Chrony}
		case "gpsd":
			src = gpsd
		default:
			server := cur.NTPServer
			if server == "" {
				server = settings.DefaultNTPServer
			}
			src = &timesync.NTP{Server: server}
		}
		return timesync.NewSyncer(src, c)
	}
}
