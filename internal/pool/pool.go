package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxPerHost is the per-host connection limit when none is given.
const DefaultMaxPerHost = 2

// DefaultWaitTimeout bounds how long Acquire waits for a free slot.
const DefaultWaitTimeout = 30 * time.Second

// Pool bounds and reuses outbound connections per remote host.
//
// For every host key (scheme://host[:port]) the pool tracks the number of
// acquired handles and a set of idle connections. The number of open
// connections for a host (idle plus acquired) never exceeds its maximum.
// A Pool is safe for concurrent use and belongs to one crawl run.
type Pool struct {
	dialer Dialer
	logger *slog.Logger

	// maxPerHost is the default limit for hosts without an override.
	maxPerHost int

	// hostMax holds per-host limit overrides.
	hostMax map[string]int

	// wait makes Acquire block when a host is at capacity.
	// Without it Acquire fails immediately with ErrPoolExhausted.
	wait bool

	// waitTimeout bounds a blocking Acquire. Zero or less waits until
	// the context is done.
	waitTimeout time.Duration

	// requestsPerSecond enables a per-host limiter when positive.
	requestsPerSecond float64

	mu     sync.Mutex
	hosts  map[string]*hostEntry
	closed bool
}

// hostEntry is the state of one host. Guarded by Pool.mu.
type hostEntry struct {
	host   string
	max    int
	active int
	idle   []Conn

	// freed is closed and replaced whenever a slot or idle connection
	// becomes available. Waiters select on it.
	freed chan struct{}

	limiter *rate.Limiter
}

// open returns the number of open connections for the host.
func (e *hostEntry) open() int {
	return e.active + len(e.idle)
}

// notify wakes every waiter for the host.
func (e *hostEntry) notify() {
	close(e.freed)
	e.freed = make(chan struct{})
}

// Option configures a Pool.
type Option func(*Pool)

// WithDialer sets the Dialer used to open connections.
func WithDialer(d Dialer) Option {
	return func(p *Pool) {
		if d != nil {
			p.dialer = d
		}
	}
}

// WithMaxPerHost sets the default per-host connection limit.
// Values below 1 are ignored.
func WithMaxPerHost(n int) Option {
	return func(p *Pool) {
		if n >= 1 {
			p.maxPerHost = n
		}
	}
}

// WithHostMax overrides the connection limit for one host key.
func WithHostMax(host string, n int) Option {
	return func(p *Pool) {
		if n >= 1 {
			p.hostMax[host] = n
		}
	}
}

// WithWait sets whether Acquire blocks when a host is at capacity.
func WithWait(wait bool) Option {
	return func(p *Pool) {
		p.wait = wait
	}
}

// WithWaitTimeout sets how long a blocking Acquire waits.
func WithWaitTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.waitTimeout = d
	}
}

// WithRequestsPerSecond limits how often connections for one host are
// handed out. Zero disables the limit.
func WithRequestsPerSecond(rps float64) Option {
	return func(p *Pool) {
		p.requestsPerSecond = rps
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pool. By default it dials plain TCP, allows
// DefaultMaxPerHost connections per host and waits DefaultWaitTimeout
// for a free slot.
func New(opts ...Option) *Pool {
	p := &Pool{
		dialer:      TCPDialer{Timeout: 10 * time.Second},
		logger:      slog.Default(),
		maxPerHost:  DefaultMaxPerHost,
		hostMax:     make(map[string]int),
		wait:        true,
		waitTimeout: DefaultWaitTimeout,
		hosts:       make(map[string]*hostEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// entry returns the state for host, creating it. Caller holds p.mu.
func (p *Pool) entry(host string) *hostEntry {
	e, ok := p.hosts[host]
	if ok {
		return e
	}

	limit := p.maxPerHost
	if n, ok := p.hostMax[host]; ok {
		limit = n
	}
	e = &hostEntry{
		host:  host,
		max:   limit,
		freed: make(chan struct{}),
	}
	if p.requestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(p.requestsPerSecond), 1)
	}
	p.hosts[host] = e
	return e
}

// Acquire returns a connection for host.
//
// An idle connection is reused when one exists. Otherwise a new one is
// dialed while the host is below its limit. At the limit Acquire either
// fails with ErrPoolExhausted (wait disabled) or blocks until a slot
// frees, the wait timeout elapses (ErrPoolExhausted) or ctx is done.
func (p *Pool) Acquire(ctx context.Context, host string) (*Handle, error) {
	var deadline <-chan time.Time
	if p.wait && p.waitTimeout > 0 {
		timer := time.NewTimer(p.waitTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		e := p.entry(host)

		if n := len(e.idle); n > 0 {
			conn := e.idle[n-1]
			e.idle[n-1] = nil
			e.idle = e.idle[:n-1]
			e.active++
			limiter := e.limiter
			p.mu.Unlock()
			return p.handOut(ctx, host, conn, limiter)
		}

		if e.active < e.max {
			// Reserve the slot before dialing so concurrent callers
			// cannot overshoot the limit.
			e.active++
			limiter := e.limiter
			p.mu.Unlock()

			conn, err := p.dialer.Dial(ctx, host)
			if err != nil {
				p.releaseSlot(host)
				return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
			}
			p.logger.Debug("opened connection", "host", host)
			return p.handOut(ctx, host, conn, limiter)
		}

		if !p.wait {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: %s has %d active connections", ErrPoolExhausted, host, e.max)
		}
		freed := e.freed
		p.mu.Unlock()

		select {
		case <-freed:
		case <-deadline:
			return nil, fmt.Errorf("%w: timed out waiting for %s", ErrPoolExhausted, host)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// handOut applies the host rate limit and wraps conn in a Handle.
// The slot is already counted as active.
func (p *Pool) handOut(ctx context.Context, host string, conn Conn, limiter *rate.Limiter) (*Handle, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			p.mu.Lock()
			p.finishActive(host, conn, true)
			p.mu.Unlock()
			return nil, err
		}
	}
	return &Handle{pool: p, host: host, conn: conn}, nil
}

// releaseSlot gives back a reserved slot whose dial failed.
func (p *Pool) releaseSlot(host string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.hosts[host]; ok {
		e.active--
		e.notify()
	}
}

// Release returns the handle's connection to the idle set. If the pool is
// closed the connection is closed instead. Releasing a handle twice is a
// no-op.
func (p *Pool) Release(h *Handle) {
	p.finish(h, true)
}

// Discard closes the handle's connection and frees its slot. Use it when
// the connection is broken. Discarding a released handle is a no-op.
func (p *Pool) Discard(h *Handle) {
	p.finish(h, false)
}

func (p *Pool) finish(h *Handle, reuse bool) {
	if h == nil || h.pool != p {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if h.released {
		return
	}
	h.released = true
	p.finishActive(h.host, h.conn, reuse)
}

// finishActive moves one active connection to idle or closes it.
// Caller holds p.mu.
func (p *Pool) finishActive(host string, conn Conn, reuse bool) {
	e, ok := p.hosts[host]
	if !ok {
		closeConn(p.logger, host, conn)
		return
	}

	e.active--
	if reuse && !p.closed {
		e.idle = append(e.idle, conn)
	} else {
		closeConn(p.logger, host, conn)
	}
	e.notify()
}

// CloseAll closes every idle connection and marks the pool closed.
// Acquired handles are closed when released. Acquire returns
// ErrPoolClosed afterwards.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for host, e := range p.hosts {
		for _, conn := range e.idle {
			closeConn(p.logger, host, conn)
		}
		e.idle = nil
		e.notify()
	}
}

// Active returns the number of acquired handles for host.
func (p *Pool) Active(host string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.hosts[host]; ok {
		return e.active
	}
	return 0
}

// Idle returns the number of idle connections for host.
func (p *Pool) Idle(host string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.hosts[host]; ok {
		return len(e.idle)
	}
	return 0
}

// Open returns the number of open connections across all hosts.
func (p *Pool) Open() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, e := range p.hosts {
		total += e.open()
	}
	return total
}

// Max returns the connection limit that applies to host.
func (p *Pool) Max(host string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.hosts[host]; ok {
		return e.max
	}
	if n, ok := p.hostMax[host]; ok {
		return n
	}
	return p.maxPerHost
}

func closeConn(logger *slog.Logger, host string, conn Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		logger.Debug("failed to close connection", "host", host, "error", err)
	}
}
