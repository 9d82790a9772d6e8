package transport

import (
	"errors"
	"net"
	"path/filepath"
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		want   Endpoint
		target string
	}{
		{"", Endpoint{SchemeTCP, "127.0.0.1:5151"}, "passthrough:///127.0.0.1:5151"},
		{"tcp://0.0.0.0:6000", Endpoint{SchemeTCP, "0.0.0.0:6000"}, "passthrough:///0.0.0.0:6000"},
		{"localhost:7000", Endpoint{SchemeTCP, "localhost:7000"}, "passthrough:///localhost:7000"},
		{"tcp://[::1]:5151", Endpoint{SchemeTCP, "[::1]:5151"}, "passthrough:///[::1]:5151"},
		{"unix:///tmp/toyo.sock", Endpoint{SchemeUnix, "/tmp/toyo.sock"}, "unix:///tmp/toyo.sock"},
	}
	for _, tt := range tests {
		got, err := ParseEndpoint(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("%q = %+v, want %+v", tt.in, got, tt.want)
		}
		if got.Target() != tt.target {
			t.Errorf("%q target = %q, want %q", tt.in, got.Target(), tt.target)
		}
	}
}

func TestParseEndpointErrors(t *testing.T) {
	for _, in := range []string{"tcp://nohost", "tcp://host:", "unix://", "zmq://127.0.0.1:5151", "udp://1.2.3.4:5"} {
		if _, err := ParseEndpoint(in); !errors.Is(err, ErrBadEndpoint) {
			t.Errorf("%q: expected ErrBadEndpoint, got %v", in, err)
		}
	}
}

func TestEndpointListenUnixReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.sock")
	ep := Endpoint{Scheme: SchemeUnix, Address: path}

	// Leave a socket file behind without unlinking it on close.
	stale, err := net.Listen("unix", path)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	_ = stale.Close()

	l, err := ep.Listen()
	if err != nil {
		t.Fatalf("listen over stale socket: %v", err)
	}
	_ = l.Close()
}
