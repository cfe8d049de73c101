package checker

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/linkcheck/internal/crawler"
	"github.com/nao1215/linkcheck/internal/model"
)

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "linkcheck/1.0 (+https://github.com/nao1215/linkcheck)"

// DefaultMaxBodySize limits how much of a page is read for link extraction.
const DefaultMaxBodySize int64 = 10 * 1024 * 1024

// Site holds per-host request settings.
type Site struct {
	// Cookie is a raw Cookie header value ("a=1; b=2").
	Cookie string

	// Headers are added to every request.
	Headers map[string]string
}

// SiteFunc returns the settings for a host name.
type SiteFunc func(host string) Site

// handlerFunc checks one task for a URL scheme.
type handlerFunc func(ctx context.Context, task model.CheckTask, u *url.URL, r *model.Result, s *crawler.Session) error

// Checker validates http, https, mailto and file links and extracts the
// links of HTML pages. It implements crawler.Checker, pool.Dialer and
// crawler.RobotsFetcher.
type Checker struct {
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	proxyAddr   string
	sites       SiteFunc
	logger      *slog.Logger

	// dialContext opens TCP connections, directly or through the proxy.
	dialContext dialContextFunc

	handlers map[string]handlerFunc
}

// Option configures a Checker.
type Option func(*Checker)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Checker) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read from a page.
func WithMaxBodySize(n int64) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithProxy routes connections through a SOCKS5 proxy at host:port.
func WithProxy(addr string) Option {
	return func(c *Checker) {
		c.proxyAddr = addr
	}
}

// WithSites sets the per-host settings lookup.
func WithSites(f SiteFunc) Option {
	return func(c *Checker) {
		if f != nil {
			c.sites = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Checker. It fails if the proxy address is invalid.
func New(opts ...Option) (*Checker, error) {
	c := &Checker{
		userAgent:   DefaultUserAgent,
		timeout:     30 * time.Second,
		maxBodySize: DefaultMaxBodySize,
		sites:       func(string) Site { return Site{} },
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	dial, err := newDialContext(c.proxyAddr, c.timeout)
	if err != nil {
		return nil, err
	}
	c.dialContext = dial

	c.handlers = map[string]handlerFunc{
		"http":   c.checkHTTP,
		"https":  c.checkHTTP,
		"mailto": c.checkMail,
		"file":   c.checkFile,
		"ftp":    c.checkFTP,
	}
	return c, nil
}

// Check validates one link.
func (c *Checker) Check(ctx context.Context, task model.CheckTask, s *crawler.Session) (*model.Result, error) {
	start := time.Now()
	r := model.NewResult(task)

	u, err := url.Parse(task.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	handler, ok := c.handlers[scheme]
	if !ok {
		r.Ignore(fmt.Sprintf("%s URL ignored", schemeName(scheme)))
		r.AddWarning("unsupported scheme %q", scheme)
		return r, nil
	}

	if err := handler(ctx, task, u, r, s); err != nil {
		return nil, err
	}
	r.Duration = time.Since(start)
	return r, nil
}

func schemeName(scheme string) string {
	if scheme == "" {
		return "schemeless"
	}
	return scheme
}
