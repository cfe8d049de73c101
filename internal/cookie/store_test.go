package cookie

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a controllable time source.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func names(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestStoreRecord(t *testing.T) {
	t.Parallel()

	t.Run("recorded cookie is returned for the same domain and path", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		if err := s.Record("example.com", "/", Cookie{Name: "session", Value: "abc"}); err != nil {
			t.Fatal(err)
		}

		got := s.CookiesFor("example.com", "/page")
		if len(got) != 1 || got[0].Value != "abc" {
			t.Fatalf("unexpected cookies %+v", got)
		}
	})

	t.Run("same key overwrites the value", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		_ = s.Record("example.com", "/", Cookie{Name: "id", Value: "1"})
		_ = s.Record("example.com", "/", Cookie{Name: "id", Value: "2"})

		got := s.CookiesFor("example.com", "/")
		if len(got) != 1 || got[0].Value != "2" {
			t.Errorf("expected overwritten value, got %+v", got)
		}
		if s.Len() != 1 {
			t.Errorf("expected 1 record, got %d", s.Len())
		}
	})

	t.Run("expired cookie deletes the record", func(t *testing.T) {
		t.Parallel()

		clock := newClock()
		s := NewStore(WithClock(clock.Now))
		_ = s.Record("example.com", "/", Cookie{Name: "id", Value: "1"})
		_ = s.Record("example.com", "/", Cookie{Name: "id", Expires: clock.Now().Add(-time.Hour)})

		if got := s.CookiesFor("example.com", "/"); len(got) != 0 {
			t.Errorf("expected no cookies, got %+v", got)
		}
		if s.Len() != 0 {
			t.Errorf("expected empty store, got %d", s.Len())
		}
	})

	t.Run("public suffix domain is rejected", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		err := s.Record("com", "/", Cookie{Name: "id", Value: "1"})
		if !errors.Is(err, ErrPublicSuffix) {
			t.Errorf("expected ErrPublicSuffix, got %v", err)
		}
		err = s.Record("co.uk", "/", Cookie{Name: "id", Value: "1"})
		if !errors.Is(err, ErrPublicSuffix) {
			t.Errorf("expected ErrPublicSuffix for co.uk, got %v", err)
		}
	})

	t.Run("empty name and domain are rejected", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		if err := s.Record("", "/", Cookie{Name: "id"}); !errors.Is(err, ErrEmptyDomain) {
			t.Errorf("expected ErrEmptyDomain, got %v", err)
		}
		if err := s.Record("example.com", "/", Cookie{}); !errors.Is(err, ErrEmptyName) {
			t.Errorf("expected ErrEmptyName, got %v", err)
		}
	})

	t.Run("IP address hosts are accepted", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		if err := s.Record("127.0.0.1", "/", Cookie{Name: "id", Value: "1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := s.CookiesFor("127.0.0.1", "/"); len(got) != 1 {
			t.Errorf("expected 1 cookie, got %d", len(got))
		}
	})
}

func TestStoreCookiesFor(t *testing.T) {
	t.Parallel()

	t.Run("parent domain cookies apply to subdomains", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		_ = s.Record("example.com", "/", Cookie{Name: "domain"})
		_ = s.Record("example.com", "/", Cookie{Name: "hostonly", HostOnly: true})
		_ = s.Record("www.example.com", "/", Cookie{Name: "sub"})

		got := names(s.CookiesFor("www.example.com", "/"))
		want := map[string]bool{"domain": true, "sub": true}
		if len(got) != 2 {
			t.Fatalf("expected 2 cookies, got %v", got)
		}
		for _, n := range got {
			if !want[n] {
				t.Errorf("unexpected cookie %s", n)
			}
		}

		if got := s.CookiesFor("other.com", "/"); len(got) != 0 {
			t.Errorf("expected no cookies for other domain, got %v", names(got))
		}
	})

	t.Run("path must match on a slash boundary", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		_ = s.Record("example.com", "/docs", Cookie{Name: "docs"})

		tests := []struct {
			path string
			want int
		}{
			{path: "/docs", want: 1},
			{path: "/docs/", want: 1},
			{path: "/docs/page", want: 1},
			{path: "/docsearch", want: 0},
			{path: "/", want: 0},
		}
		for _, tt := range tests {
			if got := s.CookiesFor("example.com", tt.path); len(got) != tt.want {
				t.Errorf("path %s: expected %d cookies, got %d", tt.path, tt.want, len(got))
			}
		}
	})

	t.Run("longer paths come first then older cookies", func(t *testing.T) {
		t.Parallel()

		clock := newClock()
		s := NewStore(WithClock(clock.Now))
		_ = s.Record("example.com", "/", Cookie{Name: "root-old"})
		clock.Advance(time.Second)
		_ = s.Record("example.com", "/", Cookie{Name: "root-new"})
		_ = s.Record("example.com", "/a/b", Cookie{Name: "deep"})
		_ = s.Record("example.com", "/a", Cookie{Name: "mid"})

		got := names(s.CookiesFor("example.com", "/a/b/c"))
		want := []string{"deep", "mid", "root-old", "root-new"}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
			}
		}
	})

	t.Run("expired cookies are dropped on access", func(t *testing.T) {
		t.Parallel()

		clock := newClock()
		s := NewStore(WithClock(clock.Now))
		_ = s.Record("example.com", "/", Cookie{Name: "short", Expires: clock.Now().Add(time.Minute)})
		_ = s.Record("example.com", "/", Cookie{Name: "session"})

		clock.Advance(2 * time.Minute)
		if s.Len() != 2 {
			t.Errorf("expected lazy expiry, got %d records", s.Len())
		}

		got := names(s.CookiesFor("example.com", "/"))
		if len(got) != 1 || got[0] != "session" {
			t.Errorf("expected only session cookie, got %v", got)
		}
		if s.Len() != 1 {
			t.Errorf("expected expired record to be dropped, got %d", s.Len())
		}
	})

	t.Run("returned records are copies", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		_ = s.Record("example.com", "/", Cookie{Name: "id", Value: "1"})

		got := s.CookiesFor("example.com", "/")
		got[0].Value = "changed"

		if again := s.CookiesFor("example.com", "/"); again[0].Value != "1" {
			t.Errorf("store was modified through a returned record: %q", again[0].Value)
		}
	})

	t.Run("clear removes everything", func(t *testing.T) {
		t.Parallel()

		s := NewStore()
		_ = s.Record("example.com", "/", Cookie{Name: "id"})
		s.Clear()
		if s.Len() != 0 {
			t.Errorf("expected empty store, got %d", s.Len())
		}
	})
}

func TestJar(t *testing.T) {
	t.Parallel()

	mustParse := func(t *testing.T, raw string) *url.URL {
		t.Helper()
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		return u
	}

	t.Run("cookie round trip through the jar", func(t *testing.T) {
		t.Parallel()

		jar := NewJar(NewStore())
		jar.SetCookies(mustParse(t, "http://example.com/login"), []*http.Cookie{
			{Name: "session", Value: "abc"},
		})

		got := jar.Cookies(mustParse(t, "http://example.com/account"))
		if len(got) != 1 || got[0].Name != "session" || got[0].Value != "abc" {
			t.Errorf("unexpected cookies %+v", got)
		}
	})

	t.Run("default path is the request directory", func(t *testing.T) {
		t.Parallel()

		jar := NewJar(NewStore())
		jar.SetCookies(mustParse(t, "http://example.com/app/login"), []*http.Cookie{
			{Name: "app", Value: "1"},
		})

		if got := jar.Cookies(mustParse(t, "http://example.com/app/home")); len(got) != 1 {
			t.Errorf("expected cookie under /app, got %d", len(got))
		}
		if got := jar.Cookies(mustParse(t, "http://example.com/other")); len(got) != 0 {
			t.Errorf("expected no cookie outside /app, got %d", len(got))
		}
	})

	t.Run("secure cookies are only sent over https", func(t *testing.T) {
		t.Parallel()

		jar := NewJar(NewStore())
		jar.SetCookies(mustParse(t, "https://example.com/"), []*http.Cookie{
			{Name: "secure", Value: "1", Secure: true},
		})

		if got := jar.Cookies(mustParse(t, "http://example.com/")); len(got) != 0 {
			t.Errorf("secure cookie sent over http")
		}
		if got := jar.Cookies(mustParse(t, "https://example.com/")); len(got) != 1 {
			t.Errorf("expected secure cookie over https")
		}
	})

	t.Run("negative max age deletes the cookie", func(t *testing.T) {
		t.Parallel()

		store := NewStore()
		jar := NewJar(store)
		u := mustParse(t, "http://example.com/")
		jar.SetCookies(u, []*http.Cookie{{Name: "id", Value: "1"}})
		jar.SetCookies(u, []*http.Cookie{{Name: "id", MaxAge: -1}})

		if store.Len() != 0 {
			t.Errorf("expected cookie to be deleted, got %d", store.Len())
		}
	})

	t.Run("foreign domain attribute is ignored", func(t *testing.T) {
		t.Parallel()

		store := NewStore()
		jar := NewJar(store)
		jar.SetCookies(mustParse(t, "http://example.com/"), []*http.Cookie{
			{Name: "evil", Value: "1", Domain: "other.com"},
			{Name: "tld", Value: "1", Domain: "com"},
		})

		if store.Len() != 0 {
			t.Errorf("expected no cookies, got %d", store.Len())
		}
	})

	t.Run("domain attribute covers subdomains", func(t *testing.T) {
		t.Parallel()

		jar := NewJar(NewStore())
		jar.SetCookies(mustParse(t, "http://www.example.com/"), []*http.Cookie{
			{Name: "shared", Value: "1", Domain: ".example.com"},
		})

		if got := jar.Cookies(mustParse(t, "http://api.example.com/")); len(got) != 1 {
			t.Errorf("expected shared cookie on sibling subdomain, got %d", len(got))
		}
	})

	t.Run("localhost can set cookies for itself", func(t *testing.T) {
		t.Parallel()

		jar := NewJar(NewStore())
		jar.SetCookies(mustParse(t, "http://localhost:8080/"), []*http.Cookie{
			{Name: "dev", Value: "1", Domain: "localhost"},
		})

		if got := jar.Cookies(mustParse(t, "http://localhost:8080/x")); len(got) != 1 {
			t.Errorf("expected localhost cookie, got %d", len(got))
		}
	})
}
