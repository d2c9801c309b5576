package transport

import (
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Conn is a raw AF_UNIX stream socket to the compositor.
type Conn struct {
	fd     int
	path   string
	closed atomic.Bool
}

// Dial connects to the compositor socket at path. The returned Conn is
// still blocking; call SetNonblocking before entering the event loop.
func Dial(path string) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, &ConnectError{Path: path, Reason: SocketFailed, Err: err}
	}
	for {
		err = unix.Connect(fd, &unix.SockaddrUnix{Name: path})
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		_ = unix.Close(fd)
		reason := SocketFailed
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ECONNREFUSED) {
			reason = Unreachable
		}
		return nil, &ConnectError{Path: path, Reason: reason, Err: err}
	}
	log.Debug().Str("path", path).Int("fd", fd).Msg("transport: connected")
	return &Conn{fd: fd, path: path}, nil
}

// NewConn adopts an already-connected stream descriptor.
func NewConn(fd int) *Conn {
	return &Conn{fd: fd}
}

// Pair returns two connected Conns backed by socketpair(2).
func Pair() (*Conn, *Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, &IOError{Op: "socketpair", Err: err}
	}
	return NewConn(fds[0]), NewConn(fds[1]), nil
}

func (c *Conn) Path() string {
	return c.path
}

// Fd is the descriptor the event loop polls.
func (c *Conn) Fd() int {
	return c.fd
}

// SetNonblocking sets O_NONBLOCK; repeated calls are harmless.
func (c *Conn) SetNonblocking() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := unix.SetNonblock(c.fd, true); err != nil {
		return &IOError{Op: "fcntl", Err: err}
	}
	return nil
}

// Read performs one read attempt. Zero bytes from the peer is ErrEOF.
func (c *Conn) Read(b []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if len(b) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Read(c.fd, b)
		switch {
		case err == nil && n == 0:
			return 0, ErrEOF
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		default:
			return 0, classify("read", err)
		}
	}
}

// WriteAll writes b until done or the socket refuses more. The returned
// count is valid alongside ErrWouldBlock so callers can queue the rest.
func (c *Conn) WriteAll(b []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	written := 0
	for written < len(b) {
		n, err := unix.SendmsgN(c.fd, b[written:], nil, nil, unix.MSG_NOSIGNAL)
		if n > 0 {
			written += n
		}
		if err == nil {
			continue
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return written, classify("write", err)
	}
	return written, nil
}

// Close closes the descriptor once; later calls return nil.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	log.Debug().Str("path", c.path).Int("fd", c.fd).Msg("transport: closing")
	if err := unix.Close(c.fd); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	return nil
}

func (c *Conn) Closed() bool {
	return c.closed.Load()
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
		return ErrWouldBlock
	case errors.Is(err, unix.EPIPE), errors.Is(err, unix.ECONNRESET):
		return ErrPeerClosed
	default:
		return &IOError{Op: op, Err: err}
	}
}
