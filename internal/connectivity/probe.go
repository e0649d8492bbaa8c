package connectivity

import (
	"context"
	"net"
	"time"
)

const (
	// DefaultProbeAddr is a well-known public resolver; reaching it on its
	// standard port is a cheap stand-in for "the internet is up".
	DefaultProbeAddr    = "8.8.8.8:53"
	DefaultProbeTimeout = 3 * time.Second
)

// Prober answers whether the network is reachable right now. Implementations
// must be bounded in time and must not retry internally; callers own the
// retry cadence.
type Prober interface {
	Online(ctx context.Context) bool
}

// DialProber checks connectivity with a single bounded TCP dial.
type DialProber struct {
	addr    string
	timeout time.Duration
}

func NewDialProber(addr string, timeout time.Duration) *DialProber {
	if addr == "" {
		addr = DefaultProbeAddr
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &DialProber{addr: addr, timeout: timeout}
}

func (p *DialProber) Online(ctx context.Context) bool {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
