package robots

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func staticFetch(status int, body string, err error) FetchFunc {
	return func(context.Context, string) (int, []byte, error) {
		return status, []byte(body), err
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCacheIsAllowed(t *testing.T) {
	t.Parallel()

	rules := "User-agent: *\nDisallow: /private/\n"

	t.Run("rules are evaluated", func(t *testing.T) {
		t.Parallel()

		c := New(staticFetch(http.StatusOK, rules, nil))
		if !c.IsAllowed(context.Background(), "http://example.com/public/page") {
			t.Error("expected public page to be allowed")
		}
		if c.IsAllowed(context.Background(), "http://example.com/private/page") {
			t.Error("expected private page to be disallowed")
		}
	})

	t.Run("agent specific group applies", func(t *testing.T) {
		t.Parallel()

		body := "User-agent: linkcheck\nDisallow: /\n\nUser-agent: *\nAllow: /\n"
		c := New(staticFetch(http.StatusOK, body, nil), WithUserAgent("linkcheck"))
		if c.IsAllowed(context.Background(), "http://example.com/page") {
			t.Error("expected linkcheck to be disallowed")
		}

		other := New(staticFetch(http.StatusOK, body, nil), WithUserAgent("otherbot"))
		if !other.IsAllowed(context.Background(), "http://example.com/page") {
			t.Error("expected other agents to be allowed")
		}
	})

	t.Run("missing robots.txt allows all", func(t *testing.T) {
		t.Parallel()

		c := New(staticFetch(http.StatusNotFound, "", nil))
		if !c.IsAllowed(context.Background(), "http://example.com/private/") {
			t.Error("expected allow-all for 404")
		}
		e, ok := c.Entry("http://example.com")
		if !ok || e.Policy != PolicyAllowAll {
			t.Errorf("expected allow-all entry, got %+v", e)
		}
	})

	t.Run("forbidden robots.txt disallows all", func(t *testing.T) {
		t.Parallel()

		c := New(staticFetch(http.StatusForbidden, "", nil))
		if c.IsAllowed(context.Background(), "http://example.com/") {
			t.Error("expected disallow-all for 403")
		}
	})

	t.Run("server error allows all", func(t *testing.T) {
		t.Parallel()

		c := New(staticFetch(http.StatusInternalServerError, "", nil))
		if !c.IsAllowed(context.Background(), "http://example.com/") {
			t.Error("expected allow-all for 500")
		}
	})

	t.Run("fetch failure allows all", func(t *testing.T) {
		t.Parallel()

		c := New(staticFetch(0, "", errors.New("connection refused")), WithLogger(quietLogger()))
		if !c.IsAllowed(context.Background(), "http://example.com/private/") {
			t.Error("expected allow-all on fetch failure")
		}
		e, ok := c.Entry("http://example.com")
		if !ok {
			t.Fatal("expected failure to be cached")
		}
		if e.StatusCode != 0 || e.Policy != PolicyAllowAll {
			t.Errorf("unexpected entry %+v", e)
		}
	})

	t.Run("URLs without host are allowed without fetching", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := New(func(context.Context, string) (int, []byte, error) {
			calls.Add(1)
			return http.StatusForbidden, nil, nil
		})
		if !c.IsAllowed(context.Background(), "mailto:someone@example.com") {
			t.Error("expected mailto to be allowed")
		}
		if calls.Load() != 0 {
			t.Errorf("expected no fetch, got %d", calls.Load())
		}
	})
}

func TestCacheFetchesOncePerHost(t *testing.T) {
	t.Parallel()

	t.Run("sequential queries share the entry", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := New(func(_ context.Context, robotsURL string) (int, []byte, error) {
			calls.Add(1)
			if robotsURL != "http://example.com/robots.txt" {
				t.Errorf("unexpected robots URL %s", robotsURL)
			}
			return http.StatusOK, []byte("User-agent: *\nAllow: /\n"), nil
		})

		for range 5 {
			c.IsAllowed(context.Background(), "http://example.com/page")
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 fetch, got %d", calls.Load())
		}
	})

	t.Run("concurrent first queries share one fetch", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		release := make(chan struct{})
		c := New(func(context.Context, string) (int, []byte, error) {
			calls.Add(1)
			<-release
			return http.StatusOK, []byte("User-agent: *\nDisallow: /no\n"), nil
		})

		var wg sync.WaitGroup
		var allowed atomic.Int32
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if c.IsAllowed(context.Background(), "http://example.com/yes") {
					allowed.Add(1)
				}
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		if calls.Load() != 1 {
			t.Errorf("expected 1 fetch, got %d", calls.Load())
		}
		if allowed.Load() != 50 {
			t.Errorf("expected 50 allowed answers, got %d", allowed.Load())
		}
		if c.Len() != 1 {
			t.Errorf("expected 1 cached host, got %d", c.Len())
		}
	})

	t.Run("ports are separate hosts", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := New(func(context.Context, string) (int, []byte, error) {
			calls.Add(1)
			return http.StatusNotFound, nil, nil
		})
		c.IsAllowed(context.Background(), "http://example.com/")
		c.IsAllowed(context.Background(), "http://example.com:8080/")
		c.IsAllowed(context.Background(), "https://example.com/")

		if calls.Load() != 3 {
			t.Errorf("expected 3 fetches, got %d", calls.Load())
		}
	})
}

func TestCacheWithHTTPServer(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_, _ = io.WriteString(w, "User-agent: *\nDisallow: /admin\n")
	}))
	defer srv.Close()

	fetch := func(ctx context.Context, robotsURL string) (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return 0, nil, err
		}
		resp, err := srv.Client().Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		return resp.StatusCode, body, err
	}

	c := New(fetch)
	if c.IsAllowed(context.Background(), srv.URL+"/admin/users") {
		t.Error("expected /admin to be disallowed")
	}
	if !c.IsAllowed(context.Background(), srv.URL+"/index.html") {
		t.Error("expected /index.html to be allowed")
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 robots.txt request, got %d", hits.Load())
	}
}
