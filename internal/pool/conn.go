package pool

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Conn is a pooled connection. The pool only needs to close it; checkers
// type-assert to the concrete type their Dialer returns.
type Conn interface {
	Close() error
}

// Dialer opens a new connection to a host key (scheme://host[:port]).
type Dialer interface {
	Dial(ctx context.Context, host string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, host string) (Conn, error)

// Dial calls f(ctx, host).
func (f DialerFunc) Dial(ctx context.Context, host string) (Conn, error) {
	return f(ctx, host)
}

// TCPDialer opens plain TCP connections. It is the default Dialer.
type TCPDialer struct {
	// Timeout bounds connection establishment.
	Timeout time.Duration
}

// Dial connects to the host and port of the host key. The port defaults
// to 80 for http and 443 for https.
func (d TCPDialer) Dial(ctx context.Context, host string) (Conn, error) {
	addr, err := dialAddress(host)
	if err != nil {
		return nil, err
	}
	nd := net.Dialer{Timeout: d.Timeout}
	return nd.DialContext(ctx, "tcp", addr)
}

// dialAddress converts a host key to host:port.
func dialAddress(host string) (string, error) {
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid host key %q", host)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// Handle is an acquired connection. Return it with Pool.Release or
// Pool.Discard exactly once; later calls are no-ops.
type Handle struct {
	pool *Pool
	host string
	conn Conn

	// released is guarded by pool.mu.
	released bool
}

// Conn returns the underlying connection.
func (h *Handle) Conn() Conn {
	return h.conn
}

// Host returns the host key the handle was acquired for.
func (h *Handle) Host() string {
	return h.host
}
