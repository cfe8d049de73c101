// Package robots caches robots.txt exclusion rules per host for one crawl
// run.
//
// Rules are evaluated with github.com/jimsmart/grobotstxt, a port of
// Google's robots.txt matcher. Fetching is delegated to a FetchFunc so the
// request goes through the run's connection pool and cookie store.
//
// Status handling:
//   - 2xx/3xx: the body is parsed and evaluated
//   - 401, 403: every URL on the host is disallowed
//   - other 4xx and 5xx: every URL is allowed
//   - transport error: every URL is allowed and a warning is logged
package robots
