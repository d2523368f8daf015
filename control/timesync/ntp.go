package timesync

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/facebookincubator/ntp/protocol/ntp"
)

const (
	packetSize = 48

	// Leap indicator 0, version 4, mode 3 (client).
	clientSettings = 0x23
	serverMode     = 4
)

// NTP queries an NTP server with a single SNTP exchange.
type NTP struct {
	Server  string // host or host:port; the port defaults to 123.
	Timeout time.Duration
}

func (n *NTP) String() string { return "ntp:" + n.Server }

func (n *NTP) addr() string {
	if _, _, err := net.SplitHostPort(n.Server); err == nil {
		return n.Server
	}
	return net.JoinHostPort(n.Server, "123")
}

// Offset sends one request and computes the clock offset from the four timestamps of the exchange.
func (n *NTP) Offset(ctx context.Context) (time.Duration, error) {
	timeout := n.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", n.addr())
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", n.addr(), err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return 0, fmt.Errorf("set deadline: %w", err)
		}
	}

	sent := time.Now()
	req := &ntp.Packet{Settings: clientSettings}
	req.TxTimeSec, req.TxTimeFrac = ntp.Time(sent)
	b, err := req.Bytes()
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := conn.Write(b); err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}

	buf := make([]byte, packetSize)
	got, err := conn.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	received := time.Now()
	if got < packetSize {
		return 0, fmt.Errorf("short response: %d bytes", got)
	}
	resp, err := ntp.BytesToPacket(buf)
	if err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}
	return offset(sent, received, resp)
}

// offset is ((t2 - t1) + (t3 - t4)) / 2, with t1 and t4 the local send and receive times and t2 and
// t3 the server's receive and transmit times.
func offset(sent, received time.Time, resp *ntp.Packet) (time.Duration, error) {
	if mode := resp.Settings & 0x7; mode != serverMode {
		return 0, fmt.Errorf("response has mode %d, not %d", mode, serverMode)
	}
	if resp.Stratum == 0 {
		return 0, fmt.Errorf("kiss of death from server (refid %x)", resp.ReferenceID)
	}
	if resp.TxTimeSec == 0 && resp.TxTimeFrac == 0 {
		return 0, fmt.Errorf("response has no transmit time")
	}
	rx := ntp.Unix(resp.RxTimeSec, resp.RxTimeFrac)
	tx := ntp.Unix(resp.TxTimeSec, resp.TxTimeFrac)
	return (rx.Sub(sent) + tx.Sub(received)) / 2, nil
}
