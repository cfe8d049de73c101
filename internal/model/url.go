package model

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrEmptyURL is returned when an empty string is given as a URL.
var ErrEmptyURL = errors.New("empty URL")

// ErrNoHost is returned for hierarchical URLs (http, https) without a host.
var ErrNoHost = errors.New("URL has no host")

// defaultPorts maps schemes to the port that is dropped during normalization.
var defaultPorts = map[string]string{
	"ftp":   "21",
	"http":  "80",
	"https": "443",
}

// NormalizeURL returns the canonical form used for deduplication.
//
// Normalization:
//   - scheme and host are lowercased, the host is converted to its ASCII
//     (punycode) form
//   - default ports are removed (ftp:21, http:80, https:443)
//   - the fragment is removed
//   - an empty path becomes "/" for http and https
//
// Query strings are kept unchanged because they usually select different
// resources.
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrEmptyURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""

	if u.Scheme == "http" || u.Scheme == "https" {
		if u.Host == "" {
			return "", ErrNoHost
		}
		if u.Path == "" {
			u.Path = "/"
		}
	}

	if u.Host != "" {
		host, err := normalizeHost(u.Scheme, u.Host)
		if err != nil {
			return "", err
		}
		u.Host = host
	}

	return u.String(), nil
}

// normalizeHost lowercases the host, converts IDNs and drops default ports.
func normalizeHost(scheme, hostport string) (string, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		// No port present.
		host, port = hostport, ""
	}

	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if !strings.HasPrefix(host, "[") && net.ParseIP(host) == nil {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", err
		}
		host = ascii
	}

	if port == defaultPorts[scheme] {
		port = ""
	}
	if port == "" {
		if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
			return "[" + host + "]", nil
		}
		return host, nil
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), port), nil
}

// HostKey returns the partition key used by the connection pool and the
// robots cache: scheme://host[:port] of a normalized URL.
func HostKey(rawURL string) (string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", ErrNoHost
	}
	return u.Scheme + "://" + u.Host, nil
}
