package timesync

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/facebookincubator/ntp/protocol/chrony"
)

// leapUnsynchronised is the leap status chronyd reports when it has no reference.
const leapUnsynchronised = 3

// Chrony asks a local chronyd how far the system clock is from the time it is tracking.
type Chrony struct {
	Addr string // usually localhost:323
}

func (c *Chrony) String() string { return "chrony:" + c.Addr }

func (c *Chrony) Offset(ctx context.Context) (time.Duration, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", c.Addr)
	if err != nil {
		return 0, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(time.Second)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("set read deadline: %w", err)
	}

	client := chrony.Client{Sequence: 1, Connection: conn}
	res, err := client.Communicate(chrony.NewTrackingPacket())
	if err != nil {
		return 0, fmt.Errorf("get tracking info: communicate: %w", err)
	}
	tracking, ok := res.(*chrony.ReplyTracking)
	if !ok {
		return 0, fmt.Errorf("tracking reply was of unexpected type: %#v", res)
	}
	return trackingOffset(tracking)
}

// trackingOffset returns chronyd's current correction.  A positive correction means the system clock
// is slow.
func trackingOffset(t *chrony.ReplyTracking) (time.Duration, error) {
	if t.LeapStatus == leapUnsynchronised {
		return 0, fmt.Errorf("chronyd is not synchronised")
	}
	return time.Duration(t.CurrentCorrection * float64(time.Second)), nil
}
