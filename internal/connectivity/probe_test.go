package connectivity

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestDialProberOnline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	defer ln.Close()

	p := NewDialProber(ln.Addr().String(), time.Second)
	if !p.Online(context.Background()) {
		t.Fatalf("Online() = false against live listener, want true")
	}
}

func TestDialProberOffline(t *testing.T) {
	// Grab a port, then close it so the dial is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p := NewDialProber(addr, 500*time.Millisecond)
	if p.Online(context.Background()) {
		t.Fatalf("Online() = true against closed port, want false")
	}
}

func TestDialProberDefaults(t *testing.T) {
	p := NewDialProber("", 0)
	if p.addr != DefaultProbeAddr {
		t.Fatalf("addr = %q, want %q", p.addr, DefaultProbeAddr)
	}
	if p.timeout != DefaultProbeTimeout {
		t.Fatalf("timeout = %s, want %s", p.timeout, DefaultProbeTimeout)
	}
}
