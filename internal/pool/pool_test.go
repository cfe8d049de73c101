package pool

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeConn records whether it was closed.
type fakeConn struct {
	closed atomic.Bool
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

// countingDialer hands out fakeConns and counts dials.
type countingDialer struct {
	dials atomic.Int32
	err   error

	mu    sync.Mutex
	conns []*fakeConn
}

func (d *countingDialer) Dial(_ context.Context, _ string) (Conn, error) {
	d.dials.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *countingDialer) allClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.conns {
		if !c.closed.Load() {
			return false
		}
	}
	return true
}

const testHost = "http://example.com"

func TestPoolAcquire(t *testing.T) {
	t.Parallel()

	t.Run("released connection is reused", func(t *testing.T) {
		t.Parallel()

		d := &countingDialer{}
		p := New(WithDialer(d))

		h1, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}
		first := h1.Conn()
		p.Release(h1)

		h2, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}
		if h2.Conn() != first {
			t.Error("expected idle connection to be reused")
		}
		if d.dials.Load() != 1 {
			t.Errorf("expected 1 dial, got %d", d.dials.Load())
		}
		p.Release(h2)
	})

	t.Run("no wait fails at capacity", func(t *testing.T) {
		t.Parallel()

		p := New(WithDialer(&countingDialer{}), WithMaxPerHost(1), WithWait(false))

		h, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}
		defer p.Release(h)

		_, err = p.Acquire(context.Background(), testHost)
		if !errors.Is(err, ErrPoolExhausted) {
			t.Errorf("expected ErrPoolExhausted, got %v", err)
		}
	})

	t.Run("hosts are limited independently", func(t *testing.T) {
		t.Parallel()

		p := New(WithDialer(&countingDialer{}), WithMaxPerHost(1), WithWait(false))

		h1, err := p.Acquire(context.Background(), "http://a.test")
		if err != nil {
			t.Fatal(err)
		}
		h2, err := p.Acquire(context.Background(), "http://b.test")
		if err != nil {
			t.Fatalf("other host must not be limited: %v", err)
		}
		p.Release(h1)
		p.Release(h2)
	})

	t.Run("wait timeout returns ErrPoolExhausted", func(t *testing.T) {
		t.Parallel()

		p := New(WithDialer(&countingDialer{}), WithMaxPerHost(1), WithWaitTimeout(30*time.Millisecond))

		h, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}
		defer p.Release(h)

		_, err = p.Acquire(context.Background(), testHost)
		if !errors.Is(err, ErrPoolExhausted) {
			t.Errorf("expected ErrPoolExhausted, got %v", err)
		}
	})

	t.Run("waiting acquire stops on context cancel", func(t *testing.T) {
		t.Parallel()

		p := New(WithDialer(&countingDialer{}), WithMaxPerHost(1), WithWaitTimeout(0))

		h, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}
		defer p.Release(h)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = p.Acquire(ctx, testHost)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("failed dial frees the slot", func(t *testing.T) {
		t.Parallel()

		d := &countingDialer{err: errors.New("connection refused")}
		p := New(WithDialer(d), WithMaxPerHost(1), WithWait(false))

		if _, err := p.Acquire(context.Background(), testHost); err == nil {
			t.Fatal("expected dial error")
		}
		if p.Active(testHost) != 0 {
			t.Errorf("expected no active handles, got %d", p.Active(testHost))
		}
		if _, err := p.Acquire(context.Background(), testHost); errors.Is(err, ErrPoolExhausted) {
			t.Error("slot was not released after failed dial")
		}
	})

	t.Run("host override changes the limit", func(t *testing.T) {
		t.Parallel()

		p := New(WithDialer(&countingDialer{}), WithMaxPerHost(1), WithHostMax(testHost, 3), WithWait(false))

		var handles []*Handle
		for range 3 {
			h, err := p.Acquire(context.Background(), testHost)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			handles = append(handles, h)
		}
		if p.Max(testHost) != 3 {
			t.Errorf("expected max 3, got %d", p.Max(testHost))
		}
		for _, h := range handles {
			p.Release(h)
		}
	})
}

func TestPoolConcurrentLimit(t *testing.T) {
	t.Parallel()

	d := &countingDialer{}
	p := New(WithDialer(d), WithMaxPerHost(2), WithWaitTimeout(5*time.Second))

	var (
		current atomic.Int32
		peak    atomic.Int32
		wg      sync.WaitGroup
		failed  atomic.Int32
	)

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			h, err := p.Acquire(context.Background(), testHost)
			if err != nil {
				failed.Add(1)
				return
			}
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			p.Release(h)
		}()
	}
	wg.Wait()

	if failed.Load() != 0 {
		t.Errorf("expected all acquirers to succeed, %d failed", failed.Load())
	}
	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent handles, saw %d", peak.Load())
	}
	if d.dials.Load() > 2 {
		t.Errorf("expected at most 2 dials, got %d", d.dials.Load())
	}
	if p.Open() > 2 {
		t.Errorf("expected at most 2 open connections, got %d", p.Open())
	}
}

func TestPoolReleaseAndClose(t *testing.T) {
	t.Parallel()

	t.Run("double release is a no-op", func(t *testing.T) {
		t.Parallel()

		p := New(WithDialer(&countingDialer{}))
		h, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}
		p.Release(h)
		p.Release(h)
		p.Discard(h)

		if p.Active(testHost) != 0 || p.Idle(testHost) != 1 {
			t.Errorf("unexpected state: active=%d idle=%d", p.Active(testHost), p.Idle(testHost))
		}
	})

	t.Run("discard closes the connection", func(t *testing.T) {
		t.Parallel()

		p := New(WithDialer(&countingDialer{}))
		h, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}
		conn, ok := h.Conn().(*fakeConn)
		if !ok {
			t.Fatalf("unexpected conn type %T", h.Conn())
		}
		p.Discard(h)

		if !conn.closed.Load() {
			t.Error("expected discarded connection to be closed")
		}
		if p.Open() != 0 {
			t.Errorf("expected no open connections, got %d", p.Open())
		}
	})

	t.Run("close all closes idle and later released connections", func(t *testing.T) {
		t.Parallel()

		d := &countingDialer{}
		p := New(WithDialer(d))

		idle, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}
		active, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}
		p.Release(idle)

		p.CloseAll()
		if _, err := p.Acquire(context.Background(), testHost); !errors.Is(err, ErrPoolClosed) {
			t.Errorf("expected ErrPoolClosed, got %v", err)
		}

		p.Release(active)
		if p.Open() != 0 {
			t.Errorf("expected 0 open connections, got %d", p.Open())
		}
		if !d.allClosed() {
			t.Error("expected every connection to be closed")
		}
	})

	t.Run("close all wakes waiters", func(t *testing.T) {
		t.Parallel()

		p := New(WithDialer(&countingDialer{}), WithMaxPerHost(1), WithWaitTimeout(0))
		h, err := p.Acquire(context.Background(), testHost)
		if err != nil {
			t.Fatal(err)
		}

		errCh := make(chan error, 1)
		go func() {
			_, err := p.Acquire(context.Background(), testHost)
			errCh <- err
		}()

		time.Sleep(20 * time.Millisecond)
		p.CloseAll()
		p.Release(h)

		select {
		case err := <-errCh:
			if !errors.Is(err, ErrPoolClosed) {
				t.Errorf("expected ErrPoolClosed, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("waiter was not released")
		}
	})
}

func TestTCPDialer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	conn, err := TCPDialer{Timeout: time.Second}.Dial(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := conn.(net.Conn); !ok {
		t.Errorf("expected net.Conn, got %T", conn)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
}

func TestDialAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want string
	}{
		{host: "http://example.com", want: "example.com:80"},
		{host: "https://example.com", want: "example.com:443"},
		{host: "http://127.0.0.1:8080", want: "127.0.0.1:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()

			got, err := dialAddress(tt.host)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("dialAddress(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}
