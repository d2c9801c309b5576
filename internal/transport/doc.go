// Package transport owns the compositor socket.
//
// Ownership boundary:
// - socket path resolution from the environment
// - connect, non-blocking mode, read/write with errno classification
// - poll and wake primitives for the single-threaded event loop
//
// A Conn is the sole owner of its descriptor and closes it exactly once.
package transport
