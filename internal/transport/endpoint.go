package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// DefaultEndpoint is where the broker listens unless told otherwise.
const DefaultEndpoint = "tcp://127.0.0.1:5151"

// Supported endpoint schemes.
const (
	SchemeTCP  = "tcp"
	SchemeUnix = "unix"
)

// ErrBadEndpoint is returned for endpoints that cannot be parsed.
var ErrBadEndpoint = errors.New("transport: bad endpoint")

// Endpoint is a parsed scheme://address pair.
type Endpoint struct {
	Scheme  string
	Address string
}

// ParseEndpoint parses s. An empty string yields DefaultEndpoint and a bare
// host:port is taken as tcp.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultEndpoint
	}
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		scheme, rest = SchemeTCP, s
	}
	switch scheme {
	case SchemeTCP:
		host, port, err := net.SplitHostPort(rest)
		if err != nil {
			return Endpoint{}, fmt.Errorf("%w: %q: %v", ErrBadEndpoint, s, err)
		}
		if port == "" {
			return Endpoint{}, fmt.Errorf("%w: %q: missing port", ErrBadEndpoint, s)
		}
		return Endpoint{Scheme: SchemeTCP, Address: net.JoinHostPort(host, port)}, nil
	case SchemeUnix:
		if rest == "" {
			return Endpoint{}, fmt.Errorf("%w: %q: missing socket path", ErrBadEndpoint, s)
		}
		return Endpoint{Scheme: SchemeUnix, Address: rest}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w: %q: unsupported scheme %q", ErrBadEndpoint, s, scheme)
	}
}

// String renders the endpoint in scheme://address form.
func (e Endpoint) String() string { return e.Scheme + "://" + e.Address }

// Listen binds the endpoint. A stale unix socket file left by a previous
// broker is removed first.
func (e Endpoint) Listen() (net.Listener, error) {
	if e.Scheme == SchemeUnix {
		if fi, err := os.Stat(e.Address); err == nil && fi.Mode()&os.ModeSocket != 0 {
			_ = os.Remove(e.Address)
		}
	}
	return net.Listen(e.Scheme, e.Address)
}

// Target returns the gRPC dial target for the endpoint.
func (e Endpoint) Target() string {
	if e.Scheme == SchemeUnix {
		return "unix://" + e.Address
	}
	return "passthrough:///" + e.Address
}
