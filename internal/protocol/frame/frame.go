package frame

import (
	"errors"
	"fmt"

	"github.com/danmuck/wlboot/internal/protocol"
	"github.com/rs/zerolog/log"
)

var ErrBufferOverflow = errors.New("frame: reassembly buffer limit exceeded")

// Limits constrains reassembly memory use.
type Limits struct {
	MaxBuffered int
}

func DefaultLimits() Limits {
	return Limits{
		MaxBuffered: 1 << 20,
	}
}

// Stats counts bytes through the reassembler.
// Fed == Drained + SkippedBytes + pending bytes at all times.
type Stats struct {
	Fed          uint64
	Drained      uint64
	Framed       uint64
	SkippedBytes uint64
	Resyncs      uint64
}

// Reassembler turns a byte stream cut at arbitrary points into complete
// messages. The buffer is private; only framed messages leave it.
type Reassembler struct {
	limits Limits
	buf    []byte
	head   int
	stats  Stats
}

func NewReassembler(limits Limits) *Reassembler {
	if limits.MaxBuffered < protocol.MaxMessageSize {
		limits.MaxBuffered = protocol.MaxMessageSize
	}
	return &Reassembler{limits: limits}
}

// Feed appends freshly read bytes.
func (r *Reassembler) Feed(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if r.Pending()+len(b) > r.limits.MaxBuffered {
		return fmt.Errorf("%w: pending=%d incoming=%d max=%d", ErrBufferOverflow, r.Pending(), len(b), r.limits.MaxBuffered)
	}
	r.compact()
	r.buf = append(r.buf, b...)
	r.stats.Fed += uint64(len(b))
	return nil
}

// Next slices the next complete message off the buffer. It returns false
// when fewer bytes than the head message's size are buffered; those bytes
// stay for the next Feed. A header whose size is below the header length
// is corrupt: its 8 bytes are discarded and scanning continues.
func (r *Reassembler) Next() (protocol.Message, bool) {
	for r.Pending() >= protocol.HeaderLen {
		window := r.buf[r.head:]
		h, err := protocol.DecodeHeader(window)
		if err != nil {
			return protocol.Message{}, false
		}
		if h.Size < protocol.HeaderLen {
			r.head += protocol.HeaderLen
			r.stats.SkippedBytes += protocol.HeaderLen
			r.stats.Resyncs++
			log.Warn().
				Uint32("object", h.ObjectID).
				Uint16("opcode", h.Opcode).
				Uint16("size", h.Size).
				Uint64("skipped_total", r.stats.SkippedBytes).
				Msg("frame: corrupt header discarded")
			continue
		}
		if len(window) < int(h.Size) {
			return protocol.Message{}, false
		}
		body := make([]byte, int(h.Size)-protocol.HeaderLen)
		copy(body, window[protocol.HeaderLen:h.Size])
		r.head += int(h.Size)
		r.stats.Drained += uint64(h.Size)
		r.stats.Framed++
		return protocol.Message{ObjectID: h.ObjectID, Opcode: h.Opcode, Size: h.Size, Body: body}, true
	}
	return protocol.Message{}, false
}

// Drain returns every complete message currently buffered.
func (r *Reassembler) Drain() []protocol.Message {
	var out []protocol.Message
	for {
		msg, ok := r.Next()
		if !ok {
			return out
		}
		out = append(out, msg)
	}
}

// Pending is the number of buffered bytes not yet framed.
func (r *Reassembler) Pending() int {
	return len(r.buf) - r.head
}

func (r *Reassembler) Stats() Stats {
	return r.stats
}

func (r *Reassembler) compact() {
	if r.head == 0 {
		return
	}
	n := copy(r.buf, r.buf[r.head:])
	r.buf = r.buf[:n]
	r.head = 0
}
