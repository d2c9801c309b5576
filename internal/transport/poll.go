package transport

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Readiness is the decoded revents of one polled descriptor.
type Readiness struct {
	Readable bool
	Writable bool
	Hangup   bool
	Error    bool
	Invalid  bool
}

func ReadinessOf(revents int16) Readiness {
	return Readiness{
		Readable: revents&unix.POLLIN != 0,
		Writable: revents&unix.POLLOUT != 0,
		Hangup:   revents&unix.POLLHUP != 0,
		Error:    revents&unix.POLLERR != 0,
		Invalid:  revents&unix.POLLNVAL != 0,
	}
}

// PollFunc matches unix.Poll so loops can be driven by a stand-in.
type PollFunc func(fds []unix.PollFd, timeout int) (int, error)

// Poll blocks in poll(2), retrying on EINTR. timeout < 0 waits forever.
func Poll(fds []unix.PollFd, timeout int) (int, error) {
	for {
		n, err := unix.Poll(fds, timeout)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return n, &IOError{Op: "poll", Err: err}
		}
		return n, nil
	}
}

// Waker is a self-pipe that interrupts a blocked poll from another
// goroutine.
type Waker struct {
	r, w int
}

func NewWaker() (*Waker, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, &IOError{Op: "pipe2", Err: err}
	}
	return &Waker{r: fds[0], w: fds[1]}, nil
}

// Fd is the read end to include in the poll set.
func (w *Waker) Fd() int {
	return w.r
}

// Wake makes the read end readable. A full pipe already means "woken".
func (w *Waker) Wake() error {
	_, err := unix.Write(w.w, []byte{1})
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return &IOError{Op: "wake", Err: err}
	}
	return nil
}

// Drain empties the pipe after a wake was observed.
func (w *Waker) Drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (w *Waker) Close() error {
	errR := unix.Close(w.r)
	errW := unix.Close(w.w)
	return errors.Join(errR, errW)
}
