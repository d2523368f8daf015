// Package wifi joins the configured network and runs the setup access point, through NetworkManager.
package wifi

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner runs a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// ErrNoSettings is returned when asked to connect without an SSID.
var ErrNoSettings = errors.New("no wifi settings")

// Device states reported by NetworkManager.
const (
	StateUnavailable  = 20
	StateDisconnected = 30
	StateConnected    = 100
	StateFailed       = 120
)

// StateMessage describes a device state for the log.
func StateMessage(state int) string {
	switch {
	case state == StateConnected:
		return "connected"
	case state == StateFailed:
		return "connection failed (bad password, or the network went away)"
	case state == StateUnavailable:
		return "wifi device unavailable (radio off or no device)"
	case state == StateDisconnected:
		return "disconnected (no matching network found, or it is down)"
	case state > StateDisconnected && state < StateConnected:
		return "still connecting"
	case state == 10:
		return "wifi device unmanaged"
	}
	return fmt.Sprintf("unknown state %d", state)
}

// Manager controls one wireless interface with nmcli.
type Manager struct {
	Runner    Runner
	Interface string

	APName     string
	APPassword string

	Polls        int
	PollInterval time.Duration
}

// NewManager returns a manager for iface with the setup access point credentials and a 10 second
// connection timeout.
func NewManager(r Runner, iface string) *Manager {
	return &Manager{
		Runner:       r,
		Interface:    iface,
		APName:       "WifiSetup",
		APPassword:   "picoW123",
		Polls:        10,
		PollInterval: time.Second,
	}
}

func (m *Manager) nmcli(ctx context.Context, args ...string) ([]byte, error) {
	return m.Runner.Run(ctx, "nmcli", args...)
}

// State returns the NetworkManager device state of the interface.
func (m *Manager) State(ctx context.Context) (int, error) {
	out, err := m.nmcli(ctx, "-t", "-g", "GENERAL.STATE", "device", "show", m.Interface)
	if err != nil {
		return 0, fmt.Errorf("get device state: %w", err)
	}
	// "100 (connected)"
	field := strings.Fields(strings.TrimSpace(string(out)))
	if len(field) == 0 {
		return 0, fmt.Errorf("get device state: empty output")
	}
	state, err := strconv.Atoi(field[0])
	if err != nil {
		return 0, fmt.Errorf("parse device state %q: %w", out, err)
	}
	return state, nil
}

// Connected reports whether the interface is connected to a network.
func (m *Manager) Connected(ctx context.Context) (bool, error) {
	state, err := m.State(ctx)
	if err != nil {
		return false, err
	}
	return state == StateConnected, nil
}

// Connect joins ssid and waits until the connection either comes up or fails, checking once per
// PollInterval for at most Polls checks.  progress is called with a message for the log at each step.
func (m *Manager) Connect(ctx context.Context, ssid, password string, progress func(string)) error {
	if ssid == "" {
		return ErrNoSettings
	}
	progress(fmt.Sprintf("Connecting to wifi network: %s", ssid))
	args := []string{"--wait", "0", "device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	args = append(args, "ifname", m.Interface)
	if _, err := m.nmcli(ctx, args...); err != nil {
		return fmt.Errorf("connect to %q: %w", ssid, err)
	}

	state := 0
	for i := 0; i < m.Polls; i++ {
		var err error
		state, err = m.State(ctx)
		if err != nil {
			return fmt.Errorf("connect to %q: %w", ssid, err)
		}
		if state == StateConnected || state == StateFailed || state <= StateDisconnected {
			break
		}
		select {
		case <-time.After(m.PollInterval):
		case <-ctx.Done():
			return fmt.Errorf("connect to %q: %w", ssid, ctx.Err())
		}
	}
	if state != StateConnected {
		return fmt.Errorf("connect to %q: (%d) %s", ssid, state, StateMessage(state))
	}
	progress("Successfully connected to wifi")
	return nil
}

// Disconnect drops the current connection, if there is one.
func (m *Manager) Disconnect(ctx context.Context) error {
	connected, err := m.Connected(ctx)
	if err != nil {
		return err
	}
	if !connected {
		return nil
	}
	if _, err := m.nmcli(ctx, "device", "disconnect", m.Interface); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// StartAP turns the interface into an access point for the setup page.
func (m *Manager) StartAP(ctx context.Context) error {
	if _, err := m.nmcli(ctx, "device", "wifi", "hotspot", "ifname", m.Interface, "con-name", m.APName, "ssid", m.APName, "password", m.APPassword); err != nil {
		return fmt.Errorf("start access point: %w", err)
	}
	return nil
}

// StopAP takes the access point down.
func (m *Manager) StopAP(ctx context.Context) error {
	if _, err := m.nmcli(ctx, "connection", "down", m.APName); err != nil {
		return fmt.Errorf("stop access point: %w", err)
	}
	return nil
}

// Scan returns the names of the networks in range, strongest first as nmcli lists them, without
// duplicates or hidden networks.
func (m *Manager) Scan(ctx context.Context) ([]string, error) {
	out, err := m.nmcli(ctx, "-t", "-f", "SSID", "device", "wifi", "list", "ifname", m.Interface, "--rescan", "yes")
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	seen := map[string]bool{}
	var result []string
	for _, line := range strings.Split(string(out), "\n") {
		ssid := unescape(strings.TrimRight(line, "\r"))
		if ssid == "" || seen[ssid] {
			continue
		}
		seen[ssid] = true
		result = append(result, ssid)
	}
	return result, nil
}

// unescape undoes nmcli's terse-mode escaping of ':' and '\'.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
