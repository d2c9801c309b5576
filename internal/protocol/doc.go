// Package protocol owns Wayland wire primitives.
//
// Ownership boundary:
// - message header encode/decode
// - string and integer argument primitives
// - request building and argument reading
//
// Every integer on the wire is little-endian. Nothing here touches a socket.
package protocol
