// Package checker implements link validation for the crawler.
//
// Supported schemes:
//   - http, https: GET through the run's connection pool with the run's
//     cookies. 4xx and 5xx responses are broken links. Redirects are not
//     followed; the target is reported as a child link. HTML pages are
//     parsed with goquery for further links.
//   - mailto: address syntax is validated.
//   - file: the path must exist. Directories list their entries and HTML
//     files are parsed for links.
//
// Any other scheme is reported as ignored.
//
// Each pooled connection is an http.Transport limited to one TCP
// connection, so the pool's per-host limit is also the limit on open
// sockets. Connections can be routed through a SOCKS5 proxy.
package checker
