package config

import "strings"

// SiteConfig holds request settings for a single host.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with requests to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers included in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// GetSiteConfig returns the configuration for a host name.
// It merges the host specific configuration over the defaults. Hosts are
// matched case-insensitively, and "www.example.com" falls back to the
// entry for "example.com".
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := SiteConfig{Cookie: cf.Defaults.Cookie}
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	site, ok := cf.lookupSite(host)
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	return result
}

func (cf *File) lookupSite(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	if site, ok := cf.Sites[host]; ok {
		return site, true
	}
	if trimmed, found := strings.CutPrefix(host, "www."); found {
		site, ok := cf.Sites[trimmed]
		return site, ok
	}
	return SiteConfig{}, false
}
