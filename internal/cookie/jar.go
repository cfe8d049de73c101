package cookie

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Jar adapts a Store to http.CookieJar so an http.Client records and
// replays cookies through the run's store.
type Jar struct {
	store *Store
}

// NewJar returns an http.CookieJar backed by store.
func NewJar(store *Store) *Jar {
	return &Jar{store: store}
}

// SetCookies records the cookies of a response from u. Cookies whose
// Domain attribute does not cover u's host or names a public suffix are
// dropped.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	host := canonicalDomain(u.Hostname())
	if host == "" {
		return
	}
	now := j.store.now()

	for _, hc := range cookies {
		c := Cookie{
			Name:     hc.Name,
			Value:    hc.Value,
			Secure:   hc.Secure,
			HTTPOnly: hc.HttpOnly,
		}

		switch {
		case hc.MaxAge < 0:
			c.Expires = time.Unix(1, 0)
		case hc.MaxAge > 0:
			c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		default:
			c.Expires = hc.Expires
		}

		domain := canonicalDomain(hc.Domain)
		if domain == "" {
			domain = host
			c.HostOnly = true
		} else if !domainMatch(host, domain) {
			continue
		} else if domain == host && isPublicSuffix(domain) {
			// A server on a public suffix host (localhost) may still
			// set cookies for itself.
			c.HostOnly = true
		}

		path := hc.Path
		if !strings.HasPrefix(path, "/") {
			path = defaultPath(u.EscapedPath())
		}

		// Rejected cookies are dropped like a browser would.
		_ = j.store.Record(domain, path, c)
	}
}

// Cookies returns the cookies to send in a request to u. Secure cookies
// are only sent over https.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	secure := u.Scheme == "https"
	records := j.store.CookiesFor(u.Hostname(), u.EscapedPath())

	cookies := make([]*http.Cookie, 0, len(records))
	for _, r := range records {
		if r.Secure && !secure {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: r.Name, Value: r.Value})
	}
	return cookies
}

// defaultPath computes the default cookie path of RFC 6265 section 5.1.4.
func defaultPath(requestPath string) string {
	if !strings.HasPrefix(requestPath, "/") {
		return "/"
	}
	i := strings.LastIndexByte(requestPath, '/')
	if i == 0 {
		return "/"
	}
	return requestPath[:i]
}
