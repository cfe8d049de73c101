// Package pool bounds and reuses outbound connections per remote host.
//
// Connections are partitioned by host key (scheme://host[:port], see
// model.HostKey). Each host has a maximum number of open connections;
// callers past the limit either wait for a free slot or fail with
// ErrPoolExhausted, depending on the wait policy.
//
// The pool does not know what a connection is. A Dialer creates them and
// the Conn interface only requires Close, so a checker can pool raw TCP
// connections or per-host HTTP transports alike.
package pool
