package transport

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRuntimeDir = errors.New("transport: XDG_RUNTIME_DIR is not set")
	ErrMissingDisplay    = errors.New("transport: WAYLAND_DISPLAY is not set")
	ErrWouldBlock        = errors.New("transport: operation would block")
	ErrPeerClosed        = errors.New("transport: peer closed the connection")
	ErrEOF               = errors.New("transport: end of stream")
	ErrClosed            = errors.New("transport: connection already closed")
)

type ConnectReason int

const (
	// Unreachable means nothing is listening at the socket path.
	Unreachable ConnectReason = iota + 1
	// SocketFailed covers every other socket/connect failure.
	SocketFailed
)

func (r ConnectReason) String() string {
	switch r {
	case Unreachable:
		return "unreachable"
	case SocketFailed:
		return "socket failed"
	default:
		return "unknown"
	}
}

// ConnectError aborts a session before any protocol traffic.
type ConnectError struct {
	Path   string
	Reason ConnectReason
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: connect %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IOError carries an OS error not classified into one of the sentinels.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err ends the session. Only ErrWouldBlock is
// recoverable.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrWouldBlock)
}
