package checker

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/linkcheck/internal/cookie"
	"github.com/nao1215/linkcheck/internal/crawler"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/pool"
)

// maxDrainSize is how much of an unparsed body is read so the connection
// can be reused.
const maxDrainSize = 64 * 1024

// maxRobotsSize limits robots.txt bodies.
const maxRobotsSize = 512 * 1024

// checkHTTP fetches an http or https URL through the pool.
func (c *Checker) checkHTTP(ctx context.Context, task model.CheckTask, u *url.URL, r *model.Result, s *crawler.Session) error {
	if !s.Allowed(ctx, task.URL) {
		r.Ignore("denied by robots.txt")
		return nil
	}

	resp, release, err := c.get(ctx, s, task.URL, "text/html,application/xhtml+xml,*/*;q=0.8")
	if err != nil {
		return err
	}
	defer release()

	r.StatusCode = resp.StatusCode
	r.Message = resp.Status
	r.ContentType = mediaType(resp.Header.Get("Content-Type"))

	switch {
	case resp.StatusCode >= http.StatusBadRequest:
		r.Fail(fmt.Errorf("%w: %s", ErrBadStatus, resp.Status))
		c.drain(resp.Body, r)
		return nil

	case isRedirect(resp.StatusCode):
		location, err := resp.Location()
		if err != nil {
			r.AddWarning("redirect without valid Location header")
		} else {
			r.AddInfo("redirected to %s", location)
			r.Children = append(r.Children, location.String())
			if task.Extern {
				r.AddWarning("redirect target %s of an external link is not checked", location)
			}
		}
		c.drain(resp.Body, r)
		return nil
	}

	if task.Extern || !isHTML(r.ContentType) {
		c.drain(resp.Body, r)
		return nil
	}

	body := &countingReader{r: io.LimitReader(resp.Body, c.maxBodySize)}
	links, err := parseLinks(body, u, resp.Header.Get("Content-Type"))
	r.Size = body.n
	if err != nil {
		r.AddWarning("failed to parse HTML: %v", err)
		return nil
	}
	if body.n >= c.maxBodySize {
		r.AddWarning("body truncated at %d bytes", c.maxBodySize)
	}
	r.Children = append(r.Children, links...)

	return nil
}

// FetchRobots implements crawler.RobotsFetcher. robots.txt is fetched
// through the pool like any other request.
func (c *Checker) FetchRobots(ctx context.Context, s *crawler.Session, robotsURL string) (int, []byte, error) {
	resp, release, err := c.get(ctx, s, robotsURL, "text/plain,*/*;q=0.8")
	if err != nil {
		return 0, nil, err
	}
	defer release()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read robots.txt: %w", err)
	}
	return resp.StatusCode, body, nil
}

// get issues a GET for rawURL on a pooled connection. The returned release
// function closes the body and returns the connection to the pool.
func (c *Checker) get(ctx context.Context, s *crawler.Session, rawURL, accept string) (*http.Response, func(), error) {
	host, err := model.HostKey(rawURL)
	if err != nil {
		return nil, nil, err
	}

	h, err := s.Pool.Acquire(ctx, host)
	if err != nil {
		return nil, nil, err
	}
	conn, ok := h.Conn().(*httpConn)
	if !ok {
		s.Pool.Discard(h)
		return nil, nil, fmt.Errorf("%w: %T", ErrUnexpectedConn, h.Conn())
	}

	client := c.client(conn, s.Cookies)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		s.Pool.Release(h)
		return nil, nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		s.Pool.Discard(h)
		return nil, nil, err
	}

	release := func() {
		if err := resp.Body.Close(); err != nil {
			s.Pool.Discard(h)
			return
		}
		s.Pool.Release(h)
	}
	return resp, release, nil
}

// client builds a client on the pooled transport. Redirects are not
// followed; they are reported.
func (c *Checker) client(conn *httpConn, cookies *cookie.Store) *http.Client {
	client := &http.Client{
		Transport: conn.rt,
		Timeout:   c.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if cookies != nil {
		client.Jar = cookie.NewJar(cookies)
	}
	return client
}

// drain reads a bounded part of body so the connection stays reusable.
func (c *Checker) drain(body io.Reader, r *model.Result) {
	n, err := io.Copy(io.Discard, io.LimitReader(body, maxDrainSize))
	r.Size = n
	if err != nil {
		c.logger.Debug("failed to drain body", "url", r.URL, "error", err)
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mt
}

func isHTML(mt string) bool {
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ pool.Dialer = (*Checker)(nil)
