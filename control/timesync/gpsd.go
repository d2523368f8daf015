package timesync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrockway/go-gpsd"
	"golang.org/x/net/trace"
)

// GPSD takes the time from the TPV reports of a gpsd daemon.  The session is opened on first use and
// kept for the life of the process.
type GPSD struct {
	Addr string // usually localhost:2947

	// MaxAge is how old the last report may be before it is no longer trusted.
	MaxAge time.Duration

	mu       sync.Mutex
	watching bool
	fix      time.Time // time in the last report; must hold mu to read or write.
	at       time.Time // local time that report arrived.
}

func (g *GPSD) String() string { return "gpsd:" + g.Addr }

func (g *GPSD) watch() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.watching {
		return nil
	}
	l := trace.NewEventLog("service", "gpsd")
	l.Printf("dial %s", g.Addr)
	gps, err := gpsd.Dial(g.Addr)
	if err != nil {
		l.Errorf("dial gpsd: %v", err)
		l.Finish()
		return fmt.Errorf("dial gpsd: %w", err)
	}
	gps.AddFilter("TPV", func(r interface{}) {
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok || tpv.Time.IsZero() {
			return
		}
		g.report(tpv.Time, time.Now())
	})
	gps.Watch()
	g.watching = true
	return nil
}

func (g *GPSD) report(fix, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fix, g.at = fix, at
}

// latest returns the offset implied by the last report, as of now.
func (g *GPSD) latest(now time.Time) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	maxAge := g.MaxAge
	if maxAge == 0 {
		maxAge = 5 * time.Second
	}
	if g.at.IsZero() {
		return 0, fmt.Errorf("no time report from gpsd yet")
	}
	if age := now.Sub(g.at); age > maxAge {
		return 0, fmt.Errorf("last time report is %v old", age)
	}
	return g.fix.Sub(g.at), nil
}

func (g *GPSD) Offset(ctx context.Context) (time.Duration, error) {
	if err := g.watch(); err != nil {
		return 0, err
	}
	return g.latest(time.Now())
}
