package session

import (
	"errors"
	"math"

	"github.com/danmuck/wlboot/internal/protocol/schema"
)

var ErrIDsExhausted = errors.New("session: object id space exhausted")

// IDAllocator hands out client object ids. Id 1 is the display; the first
// Next call yields 2, which the handshake uses for the registry.
type IDAllocator struct {
	next      uint32
	exhausted bool
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: schema.DisplayID + 1}
}

func (a *IDAllocator) Next() (uint32, error) {
	if a.exhausted {
		return 0, ErrIDsExhausted
	}
	id := a.next
	if id == math.MaxUint32 {
		a.exhausted = true
	} else {
		a.next++
	}
	return id, nil
}

// Peek reports the id the next call to Next would return.
func (a *IDAllocator) Peek() uint32 {
	return a.next
}
