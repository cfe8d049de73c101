// Package cookie stores cookies received during a crawl run and replays
// them on later requests to matching domains and paths.
//
// Store is the run-scoped container. Jar adapts it to http.CookieJar for
// use with net/http clients. Public suffixes are detected with
// golang.org/x/net/publicsuffix.
package cookie
