package robots

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jimsmart/grobotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/linkcheck/internal/model"
)

// DefaultUserAgent is the agent name rules are evaluated for.
const DefaultUserAgent = "linkcheck"

// FetchFunc retrieves robots.txt. It returns the HTTP status code and the
// body. A non-nil error means the exchange failed before a status was
// received.
type FetchFunc func(ctx context.Context, robotsURL string) (status int, body []byte, err error)

// Policy describes how an entry answers queries.
type Policy int

const (
	// PolicyRules evaluates the fetched rules.
	PolicyRules Policy = iota

	// PolicyAllowAll allows every URL. Used when robots.txt is missing or
	// could not be fetched.
	PolicyAllowAll

	// PolicyDisallowAll denies every URL. Used when robots.txt access is
	// forbidden.
	PolicyDisallowAll
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyRules:
		return "rules"
	case PolicyAllowAll:
		return "allow-all"
	case PolicyDisallowAll:
		return "disallow-all"
	default:
		return "unknown"
	}
}

// Entry is the cached result of fetching robots.txt for one host.
// Entries are never modified after creation.
type Entry struct {
	// Host is the host key (scheme://host[:port]).
	Host string

	// Policy selects how queries are answered.
	Policy Policy

	// Body is the robots.txt content for PolicyRules.
	Body string

	// StatusCode is the HTTP status of the fetch, 0 if it failed.
	StatusCode int

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time
}

// Allowed reports whether rawURL may be crawled by userAgent.
func (e *Entry) Allowed(userAgent, rawURL string) bool {
	switch e.Policy {
	case PolicyAllowAll:
		return true
	case PolicyDisallowAll:
		return false
	default:
		return grobotstxt.AgentAllowed(e.Body, userAgent, rawURL)
	}
}

// Cache holds robots.txt rules per host for one crawl run.
//
// The first query for a host fetches its robots.txt; concurrent first
// queries share that fetch. Entries are kept for the rest of the run.
type Cache struct {
	fetch     FetchFunc
	userAgent string
	logger    *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithUserAgent sets the agent name rules are evaluated for.
func WithUserAgent(ua string) Option {
	return func(c *Cache) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache that retrieves robots.txt with fetch.
func New(fetch FetchFunc, opts ...Option) *Cache {
	c := &Cache{
		fetch:     fetch,
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
		entries:   make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsAllowed reports whether rawURL may be crawled. URLs without a host
// (mailto, file) are always allowed. Fetch problems never surface as
// errors: they produce a permissive entry and a warning.
func (c *Cache) IsAllowed(ctx context.Context, rawURL string) bool {
	host, err := model.HostKey(rawURL)
	if err != nil {
		return true
	}
	return c.entry(ctx, host).Allowed(c.userAgent, rawURL)
}

// Entry returns the cached entry for host, if any.
func (c *Cache) Entry(host string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[host]
	return e, ok
}

// Len returns the number of cached hosts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// entry returns the entry for host, fetching it once.
func (c *Cache) entry(ctx context.Context, host string) *Entry {
	if e, ok := c.Entry(host); ok {
		return e
	}

	v, _, _ := c.group.Do(host, func() (any, error) {
		// Another flight may have finished between the read and Do.
		if e, ok := c.Entry(host); ok {
			return e, nil
		}

		e := c.load(ctx, host)

		c.mu.Lock()
		c.entries[host] = e
		c.mu.Unlock()

		return e, nil
	})

	e, ok := v.(*Entry)
	if !ok {
		return &Entry{Host: host, Policy: PolicyAllowAll}
	}
	return e
}

// load fetches robots.txt for host and converts the outcome to an entry.
func (c *Cache) load(ctx context.Context, host string) *Entry {
	robotsURL := host + "/robots.txt"
	status, body, err := c.fetch(ctx, robotsURL)

	e := &Entry{
		Host:       host,
		StatusCode: status,
		FetchedAt:  time.Now(),
	}

	switch {
	case err != nil:
		c.logger.Warn("failed to fetch robots.txt, allowing all", "url", robotsURL, "error", err)
		e.Policy = PolicyAllowAll
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.logger.Debug("robots.txt access denied, disallowing all", "url", robotsURL, "status", status)
		e.Policy = PolicyDisallowAll
	case status >= http.StatusBadRequest:
		c.logger.Debug("robots.txt not available, allowing all", "url", robotsURL, "status", status)
		e.Policy = PolicyAllowAll
	default:
		e.Policy = PolicyRules
		e.Body = string(body)
	}

	return e
}
