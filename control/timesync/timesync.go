// Package timesync measures how far the local clock is from a time source and corrects it.
package timesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"
)

var (
	attemptsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timesync_attempts_total",
		Help: "time sync queries, by source and result",
	}, []string{"source", "result"})
	offsetGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "timesync_last_offset_seconds",
		Help: "offset measured by the last successful query of each source",
	}, []string{"source"})
)

// ErrNetworkTimeout is returned when every attempt to reach the time source failed.
var ErrNetworkTimeout = errors.New("time source unreachable")

// Source measures the offset to add to the local clock to get the true time.
type Source interface {
	Offset(ctx context.Context) (time.Duration, error)
	String() string
}

// Adjuster is a clock that can be corrected.  Sources measure against the system clock, so the
// offset replaces any earlier correction.
type Adjuster interface {
	SetOffset(d time.Duration)
	Now() time.Time
}

// Syncer corrects a clock from a source, retrying a few times before giving up.
type Syncer struct {
	Source   Source
	Clock    Adjuster
	Attempts int
	Interval time.Duration
}

// NewSyncer returns a syncer that tries 10 times, a second apart.
func NewSyncer(src Source, c Adjuster) *Syncer {
	return &Syncer{Source: src, Clock: c, Attempts: 10, Interval: time.Second}
}

// Sync queries the source until it answers or the attempts run out, and applies the measured offset
// to the clock.  Running out of attempts returns ErrNetworkTimeout.
func (s *Syncer) Sync(ctx context.Context) error {
	l := trace.NewEventLog("timesync", s.Source.String())
	defer l.Finish()
	var lastErr error
	for attempt := 1; attempt <= s.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.Interval):
			case <-ctx.Done():
				return fmt.Errorf("sync with %v: %w", s.Source, ctx.Err())
			}
		}
		offset, err := s.Source.Offset(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("sync with %v: %w", s.Source, ctx.Err())
			}
			attemptsCounter.WithLabelValues(s.Source.String(), "error").Inc()
			l.Errorf("attempt %d: %v", attempt, err)
			lastErr = err
			continue
		}
		attemptsCounter.WithLabelValues(s.Source.String(), "ok").Inc()
		offsetGauge.WithLabelValues(s.Source.String()).Set(offset.Seconds())
		s.Clock.SetOffset(offset)
		l.Printf("attempt %d: system clock off by %v; now %v", attempt, offset, s.Clock.Now().Format(time.RFC3339))
		return nil
	}
	return fmt.Errorf("sync with %v: %d attempts: %w (last error: %v)", s.Source, s.Attempts, ErrNetworkTimeout, lastErr)
}
