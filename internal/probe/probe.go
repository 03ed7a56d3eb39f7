// Package probe tests whether a stack host answers under its DNS name.
//
// Both probes resolve the name on every call, so they observe DNS changes
// as soon as the resolver does.
package probe

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"time"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning"
)

const defaultTimeout = time.Second

// Ping sends a single ICMP echo through ping(8).
type Ping struct {
	Binary  string
	Timeout time.Duration
}

// NewPing creates a ping probe.
func NewPing() *Ping {
	return &Ping{Binary: "ping", Timeout: defaultTimeout}
}

// Args returns the ping arguments for host.
func (p *Ping) Args(host string) []string {
	wait := int(p.Timeout / time.Second)
	if wait < 1 {
		wait = 1
	}
	return []string{"-c", "1", "-W", strconv.Itoa(wait), host}
}

// Reachable implements provisioning.Prober.
func (p *Ping) Reachable(ctx context.Context, host string) bool {
	cmd := exec.CommandContext(ctx, p.Binary, p.Args(host)...) // #nosec G204 -- host comes from backend outputs
	return cmd.Run() == nil
}

// TCP connects to a fixed port.
type TCP struct {
	Port    int
	Timeout time.Duration
}

// NewTCP creates a TCP probe against port.
func NewTCP(port int) *TCP {
	return &TCP{Port: port, Timeout: defaultTimeout}
}

// Reachable implements provisioning.Prober.
func (p *TCP) Reachable(ctx context.Context, host string) bool {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(p.Port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// FromConfig returns the prober selected by probe.method.
func FromConfig(cfg config.ProbeConfig) (provisioning.Prober, error) {
	switch cfg.Method {
	case "", config.ProbeMethodPing:
		return NewPing(), nil
	case config.ProbeMethodTCP:
		return NewTCP(cfg.Port), nil
	}
	return nil, fmt.Errorf("unknown probe method %q", cfg.Method)
}
