// Package discovery drives the registry bootstrap against a compositor.
//
// Ownership boundary:
// - connect with bounded retry
// - the single-threaded poll loop: read, reassemble, interpret, bind
// - the pending-write queue for binds that hit a full socket
// - the optional post-discovery monitor and its published snapshots
//
// State machine: Connecting -> AwaitingRegistry -> Discovering -> AllBound | Failed.
package discovery
