// Package modes implements the clock's activities: configuring, setting the time, and refreshing
// the display.  The scheduler decides when each one runs.
package modes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/clock"
	"github.com/JMBoggess/Split-Flap-Clock/control/scheduler"
	"github.com/JMBoggess/Split-Flap-Clock/control/settings"
	"golang.org/x/net/trace"
)

// CleanupTimeout bounds the cleanup after configuring, which runs after the activity's own context
// may already be done.
const CleanupTimeout = 10 * time.Second

// LED is the status light.
type LED interface {
	On() error
	Off() error
	BlinkConstant() error
	BlinkError() error
}

// Network manages the wifi station and access point.
type Network interface {
	Connected(ctx context.Context) (bool, error)
	Connect(ctx context.Context, ssid, password string, progress func(string)) error
	Disconnect(ctx context.Context) error
	StartAP(ctx context.Context) error
	StopAP(ctx context.Context) error
}

// SetupServer serves the setup pages while configuring.
type SetupServer interface {
	Start(addr string) error
	Stop(ctx context.Context) error
}

// Settings are the saved user settings.
type Settings interface {
	Read() error
	Current() settings.Settings
}

// Clock is the clock the display shows.
type Clock interface {
	LoadLocation(name string) error
	LocalTime() clock.LocalTime
}

// Journal records what happened during the last time setting.
type Journal interface {
	Start(msg string) error
	Record(msg string) error
}

// Syncer corrects the clock from the network.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Display is the row of split-flap digits.
type Display interface {
	Digits() int
	Show(targets []string) error
}

// Modes holds everything the activities touch.
type Modes struct {
	LED       LED
	Network   Network
	Setup     SetupServer
	SetupAddr string
	Settings  Settings
	Clock     Clock
	Journal   Journal
	Display   Display

	// SyncerFor returns the syncer to use with the current settings.
	SyncerFor func(settings.Settings) Syncer
}

var _ scheduler.Activities = (*Modes)(nil)

// Configure blinks the light, brings up the access point and setup pages, and waits for the user to
// click exit.  However it ends, the pages and access point are taken down and the saved settings
// are reloaded.
func (m *Modes) Configure(ctx context.Context, s *scheduler.Scheduler) (retErr error) {
	l := trace.NewEventLog("activity", "configure")
	defer l.Finish()

	if err := m.LED.BlinkConstant(); err != nil {
		l.Errorf("blink: %v", err)
	}
	defer func() { m.cleanupConfigure(l, retErr) }()

	if err := m.Network.Disconnect(ctx); err != nil {
		l.Errorf("disconnect: %v", err)
		log.Printf("configure: disconnect wifi: %v", err)
	}
	if err := m.Network.StartAP(ctx); err != nil {
		return fmt.Errorf("start access point: %w", err)
	}
	if err := m.Setup.Start(m.SetupAddr); err != nil {
		return fmt.Errorf("start setup server: %w", err)
	}
	l.Printf("setup pages up on %s", m.SetupAddr)
	if err := s.Events.ConfigExit.Wait(ctx); err != nil {
		return err
	}
	l.Printf("user exited")
	return nil
}

// cleanupConfigure takes everything down.  If configuring failed, the light is left flashing the error
// pattern instead of off.
func (m *Modes) cleanupConfigure(l trace.EventLog, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), CleanupTimeout)
	defer cancel()
	fail := func(what string, err error) {
		l.Errorf("%s: %v", what, err)
		log.Printf("configure cleanup: %s: %v", what, err)
	}
	if err := m.Setup.Stop(ctx); err != nil {
		fail("stop setup server", err)
	}
	if err := m.Network.StopAP(ctx); err != nil {
		fail("stop access point", err)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if err := m.LED.BlinkError(); err != nil {
			fail("blink error", err)
		}
	} else if err := m.LED.Off(); err != nil {
		fail("led off", err)
	}
	if err := m.Settings.Read(); err != nil {
		fail("reload settings", err)
	}
	if err := m.Clock.LoadLocation(m.Settings.Current().Timezone); err != nil {
		fail("load time zone", err)
	}
}

// SetTime turns the light on, syncs the clock from the network if that is enabled, refreshes the
// display, and turns the light off.  Failures are written to the journal and flash the error
// pattern.  However it ends, the light is never left steadily on.
func (m *Modes) SetTime(ctx context.Context, s *scheduler.Scheduler) (retErr error) {
	l := trace.NewEventLog("activity", "set-time")
	defer l.Finish()

	if err := m.LED.On(); err != nil {
		l.Errorf("led on: %v", err)
	}
	var failed bool
	defer func() {
		if failed || retErr != nil {
			m.blinkError(l)
			return
		}
		if err := m.LED.Off(); err != nil {
			l.Errorf("led off: %v", err)
		}
	}()

	if cur := m.Settings.Current(); cur.NTPEnabled {
		ok, err := m.syncTime(ctx, l, cur)
		if errors.Is(err, context.Canceled) {
			m.record(l, "User canceled Set Date Time process")
			return err
		}
		if !ok {
			failed = true
			return err
		}
	}
	if err := s.RequestRefresh(ctx); err != nil {
		return fmt.Errorf("refresh after setting time: %w", err)
	}
	return nil
}

// syncTime connects to wifi if needed and syncs the clock.  It reports whether the clock was set.
func (m *Modes) syncTime(ctx context.Context, l trace.EventLog, cur settings.Settings) (bool, error) {
	if err := m.Journal.Start("Start the Set Date Time process"); err != nil {
		l.Errorf("journal: %v", err)
	}
	connected, err := m.Network.Connected(ctx)
	if err != nil {
		l.Errorf("wifi state: %v", err)
	}
	if !connected {
		if err := m.Network.Connect(ctx, cur.SSID, cur.Password, func(msg string) { m.record(l, msg) }); err != nil {
			if ctx.Err() != nil {
				return false, fmt.Errorf("connect to wifi: %w", ctx.Err())
			}
			m.record(l, fmt.Sprintf("Error connecting to wifi network: %v", err))
			return false, nil
		}
	}
	if err := m.SyncerFor(cur).Sync(ctx); err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		m.record(l, fmt.Sprintf("Error setting the time: %v", err))
		return false, fmt.Errorf("sync time: %w", err)
	}
	m.record(l, "Date and time set from the network")
	return true, nil
}

func (m *Modes) record(l trace.EventLog, msg string) {
	l.Printf("%s", msg)
	if err := m.Journal.Record(msg); err != nil {
		l.Errorf("journal: %v", err)
		log.Printf("set time: journal %q: %v", msg, err)
	}
}

func (m *Modes) blinkError(l trace.EventLog) {
	if err := m.LED.BlinkError(); err != nil {
		l.Errorf("blink error: %v", err)
	}
}

// Refresh shows the current local time.
func (m *Modes) Refresh(ctx context.Context) error {
	lt := m.Clock.LocalTime()
	targets, err := clock.Targets(lt, m.Display.Digits())
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if err := m.Display.Show(targets); err != nil {
		return fmt.Errorf("show %v: %w", lt, err)
	}
	return nil
}
