package checker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/linkcheck/internal/pool"
)

// dialContextFunc matches http.Transport.DialContext.
type dialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// httpConn is the pooled connection for one host: an HTTP transport that
// keeps at most one TCP connection alive.
type httpConn struct {
	host      string
	transport *http.Transport

	// rt is transport wrapped with the site's headers.
	rt http.RoundTripper
}

// Close drops the kept-alive connection.
func (c *httpConn) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// Dial implements pool.Dialer. The returned connection is lazy: the TCP
// connection is established by the first request. ftp hosts get an FTP
// control connection, all others an HTTP transport.
func (c *Checker) Dial(_ context.Context, host string) (pool.Conn, error) {
	u, err := url.Parse(host)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}
	if u.Scheme == "ftp" {
		return newFTPConn(u, c.dialContext, c.timeout), nil
	}

	transport := &http.Transport{
		DialContext:           c.dialContext,
		MaxConnsPerHost:       1,
		MaxIdleConns:          1,
		MaxIdleConnsPerHost:   1,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: c.timeout,
		ForceAttemptHTTP2:     true,
	}

	site := c.sites(u.Hostname())
	var rt http.RoundTripper = transport
	if site.Cookie != "" || len(site.Headers) > 0 {
		rt = &headerInjectingTransport{
			base:    transport,
			cookie:  site.Cookie,
			headers: site.Headers,
		}
	}

	return &httpConn{host: host, transport: transport, rt: rt}, nil
}

// newDialContext returns a direct dialer or a SOCKS5 dialer for proxyAddr.
func newDialContext(proxyAddr string, timeout time.Duration) (dialContextFunc, error) {
	direct := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	if proxyAddr == "" {
		return direct.DialContext, nil
	}

	if !isValidProxyAddress(proxyAddr) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, proxyAddr)
	}
	d, err := proxy.SOCKS5("tcp", proxyAddr, nil, direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil
}

// isValidProxyAddress checks for "host:port" with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}

	portNum := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		portNum = portNum*10 + int(c-'0')
		if portNum > 65535 {
			return false
		}
	}
	return portNum >= 1
}

// headerInjectingTransport adds a site's cookie and headers to every
// request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		if strings.EqualFold(key, "Host") {
			clone.Host = value
			continue
		}
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
