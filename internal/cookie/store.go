package cookie

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Cookie is a cookie as received from a server, before it is bound to a
// domain and path.
type Cookie struct {
	Name  string
	Value string

	// Expires is the expiry time. The zero value means a session cookie
	// that lives until the store is cleared.
	Expires time.Time

	// HostOnly restricts the cookie to the exact host it was recorded for.
	// Cookies set without a Domain attribute are host-only.
	HostOnly bool

	Secure   bool
	HTTPOnly bool
}

// Record is a stored cookie.
type Record struct {
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Expires  time.Time `json:"expires,omitzero"`
	HostOnly bool      `json:"host_only"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"http_only"`
	Created  time.Time `json:"created"`

	// seq breaks creation time ties.
	seq uint64
}

// expired reports whether the record has expired at now.
func (r *Record) expired(now time.Time) bool {
	return !r.Expires.IsZero() && !r.Expires.After(now)
}

// Store holds the cookies of one crawl run, keyed by (domain, path, name).
// All methods are safe for concurrent use and return copies.
type Store struct {
	mu sync.Mutex

	// records maps a domain to its cookies keyed by path and name.
	records map[string]map[string]*Record

	now func() time.Time
	seq uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		records: make(map[string]map[string]*Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func recordKey(path, name string) string {
	return path + "\x00" + name
}

// Record stores c for domain and path, replacing a cookie with the same
// domain, path and name. A cookie that has already expired deletes the
// stored cookie instead. Domain cookies for a public suffix are rejected
// with ErrPublicSuffix.
func (s *Store) Record(domain, path string, c Cookie) error {
	domain = canonicalDomain(domain)
	if domain == "" {
		return ErrEmptyDomain
	}
	if c.Name == "" {
		return ErrEmptyName
	}
	if !strings.HasPrefix(path, "/") {
		path = "/"
	}
	if !c.HostOnly && isPublicSuffix(domain) {
		return fmt.Errorf("%w: %s", ErrPublicSuffix, domain)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := recordKey(path, c.Name)
	byKey := s.records[domain]

	if !c.Expires.IsZero() && !c.Expires.After(now) {
		if byKey != nil {
			delete(byKey, key)
			if len(byKey) == 0 {
				delete(s.records, domain)
			}
		}
		return nil
	}

	if byKey == nil {
		byKey = make(map[string]*Record)
		s.records[domain] = byKey
	}

	created := now
	seq := s.seq
	if old, ok := byKey[key]; ok {
		// Replacing keeps the original creation time.
		created, seq = old.Created, old.seq
	} else {
		s.seq++
	}

	byKey[key] = &Record{
		Domain:   domain,
		Path:     path,
		Name:     c.Name,
		Value:    c.Value,
		Expires:  c.Expires,
		HostOnly: c.HostOnly,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		Created:  created,
		seq:      seq,
	}
	return nil
}

// CookiesFor returns the cookies to send to host for a request path.
//
// A record matches when its domain equals host, or is a parent domain of
// host and the record is not host-only, and its path path-matches
// requestPath. Results are ordered by longer path first, then by earlier
// creation.
func (s *Store) CookiesFor(host, requestPath string) []Record {
	host = canonicalDomain(host)
	if host == "" {
		return nil
	}
	if requestPath == "" {
		requestPath = "/"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var matched []Record
	for _, domain := range candidateDomains(host) {
		byKey, ok := s.records[domain]
		if !ok {
			continue
		}
		for key, r := range byKey {
			if r.expired(now) {
				delete(byKey, key)
				continue
			}
			if r.HostOnly && domain != host {
				continue
			}
			if !pathMatch(requestPath, r.Path) {
				continue
			}
			matched = append(matched, *r)
		}
		if len(byKey) == 0 {
			delete(s.records, domain)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if len(matched[i].Path) != len(matched[j].Path) {
			return len(matched[i].Path) > len(matched[j].Path)
		}
		return matched[i].seq < matched[j].seq
	})
	return matched
}

// Len returns the number of stored cookies, including expired ones not
// yet dropped.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, byKey := range s.records {
		n += len(byKey)
	}
	return n
}

// Clear removes every cookie. The engine calls it when a run finishes.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]map[string]*Record)
}

// canonicalDomain lowercases and strips a leading dot and trailing dot.
func canonicalDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, ".")
	return strings.TrimSuffix(domain, ".")
}

// candidateDomains returns host and its parent domains, most specific
// first. IP addresses have no parents.
func candidateDomains(host string) []string {
	if net.ParseIP(host) != nil {
		return []string{host}
	}
	domains := []string{host}
	for {
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
		domains = append(domains, host)
	}
	return domains
}

// isPublicSuffix reports whether domain is a public suffix such as "com"
// or "co.uk". IP addresses are never public suffixes.
func isPublicSuffix(domain string) bool {
	if net.ParseIP(domain) != nil {
		return false
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	return suffix == domain
}

// pathMatch implements the path-match rule of RFC 6265 section 5.1.4.
func pathMatch(requestPath, cookiePath string) bool {
	if requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || requestPath[len(cookiePath)] == '/'
}

// domainMatch reports whether host is domain or a subdomain of it.
func domainMatch(host, domain string) bool {
	if host == domain {
		return true
	}
	return net.ParseIP(host) == nil && strings.HasSuffix(host, "."+domain)
}
