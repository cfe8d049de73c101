package crawler

import (
	"net/url"
	"strings"
	"sync"

	"github.com/nao1215/linkcheck/internal/model"
)

// Unlimited disables the recursion depth limit.
const Unlimited = -1

// Filter decides which discovered links are enqueued and whether they are
// followed.
type Filter struct {
	intern   []model.LinkPattern
	extern   []model.LinkPattern
	maxDepth int

	mu        sync.RWMutex
	seedHosts map[string]struct{}
}

// NewFilter creates a filter.
//
// A link is internal when it matches any intern pattern, or, without
// intern patterns, when it is on the host of a seed. Links matching an
// extern pattern are checked without following them, unless the pattern
// is strict, in which case they are not checked at all. maxDepth limits
// the recursion depth; Unlimited disables the limit.
func NewFilter(intern, extern []model.LinkPattern, maxDepth int) *Filter {
	return &Filter{
		intern:    intern,
		extern:    extern,
		maxDepth:  maxDepth,
		seedHosts: make(map[string]struct{}),
	}
}

// AddSeed registers the host of a seed URL as internal.
func (f *Filter) AddSeed(task model.CheckTask) {
	key := siteKey(task.URL)
	if key == "" {
		return
	}
	f.mu.Lock()
	f.seedHosts[key] = struct{}{}
	f.mu.Unlock()
}

// Classify returns child with Extern set, or false if it must not be
// enqueued.
func (f *Filter) Classify(child model.CheckTask) (model.CheckTask, bool) {
	if f.maxDepth != Unlimited && child.Depth > f.maxDepth {
		return child, false
	}

	for _, p := range f.extern {
		if p.Match(child.URL) {
			if p.Strict {
				return child, false
			}
			child.Extern = true
			return child, true
		}
	}

	child.Extern = child.Extern || !f.IsIntern(child.URL)
	return child, true
}

// IsIntern reports whether rawURL belongs to the crawled site.
func (f *Filter) IsIntern(rawURL string) bool {
	if len(f.intern) > 0 {
		for _, p := range f.intern {
			if p.Match(rawURL) {
				return true
			}
		}
		return false
	}

	key := siteKey(rawURL)
	if key == "" {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.seedHosts[key]
	return ok
}

// siteKey returns the key under which seed hosts are compared: the
// scheme-less host with a "www." prefix removed, or "file" for local files.
func siteKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "file" {
		return "file"
	}
	host := strings.ToLower(u.Host)
	return strings.TrimPrefix(host, "www.")
}
