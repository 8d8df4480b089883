// Package transport performs the network I/O of a download workflow: posting
// protocol documents and streaming the resolved content URL in fixed-size
// chunks over one session-scoped connection pool.
package transport
