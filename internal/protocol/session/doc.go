// Package session owns the client-side registry session state.
//
// Ownership boundary:
// - object id allocation
// - interest set and live global tracking
// - registry event interpretation and request encoding
// - pending-write outbox and connect backoff primitives
//
// Nothing here performs I/O; callers feed framed messages in and write the
// returned bytes out.
package session
