package session

import "time"

// PendingWrite is one encoded request not yet fully written.
type PendingWrite struct {
	Label    string
	Data     []byte
	Written  int
	QueuedAt time.Time
	Attempts int
}

func (p PendingWrite) Remaining() []byte {
	return p.Data[p.Written:]
}

// WriteOutbox holds requests that hit a full socket, in issue order.
type WriteOutbox struct {
	items []PendingWrite
}

func NewWriteOutbox() *WriteOutbox {
	return &WriteOutbox{}
}

// Push queues data; written is how much of it already reached the socket.
func (o *WriteOutbox) Push(label string, data []byte, written int, at time.Time) {
	o.items = append(o.items, PendingWrite{Label: label, Data: data, Written: written, QueuedAt: at})
}

func (o *WriteOutbox) Front() (PendingWrite, bool) {
	if len(o.items) == 0 {
		return PendingWrite{}, false
	}
	return o.items[0], true
}

// Advance records n more bytes of the front item written and one attempt.
// It returns true when the front item completed and was popped.
func (o *WriteOutbox) Advance(n int) bool {
	if len(o.items) == 0 {
		return false
	}
	front := &o.items[0]
	front.Attempts++
	front.Written += n
	if front.Written < len(front.Data) {
		return false
	}
	o.items[0] = PendingWrite{}
	o.items = o.items[1:]
	return true
}

func (o *WriteOutbox) Len() int {
	return len(o.items)
}

func (o *WriteOutbox) Empty() bool {
	return len(o.items) == 0
}

// List returns a copy of the queue in order.
func (o *WriteOutbox) List() []PendingWrite {
	out := make([]PendingWrite, len(o.items))
	copy(out, o.items)
	return out
}
