package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	return Header{
		ObjectID: binary.LittleEndian.Uint32(b[0:4]),
		Opcode:   binary.LittleEndian.Uint16(b[4:6]),
		Size:     binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// DecodeMessage decodes one message occupying exactly b.
func DecodeMessage(b []byte) (Message, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Message{}, err
	}
	if h.Size < HeaderLen {
		return Message{}, fmt.Errorf("%w: size=%d", ErrInvalidSize, h.Size)
	}
	if int(h.Size) != len(b) {
		return Message{}, fmt.Errorf("%w: size=%d have=%d", ErrTruncated, h.Size, len(b))
	}
	body := make([]byte, len(b)-HeaderLen)
	copy(body, b[HeaderLen:])
	return Message{ObjectID: h.ObjectID, Opcode: h.Opcode, Size: h.Size, Body: body}, nil
}

func Uint32At(b []byte, off int) (uint32, error) {
	if off < 0 || off > len(b)-4 {
		return 0, fmt.Errorf("%w: u32 at offset %d of %d", ErrTruncated, off, len(b))
	}
	return binary.LittleEndian.Uint32(b[off : off+4]), nil
}

func Uint16At(b []byte, off int) (uint16, error) {
	if off < 0 || off > len(b)-2 {
		return 0, fmt.Errorf("%w: u16 at offset %d of %d", ErrTruncated, off, len(b))
	}
	return binary.LittleEndian.Uint16(b[off : off+2]), nil
}

// DecodeString reads a string argument at off and returns it along with the
// offset of the next argument. A zero length prefix is the null string.
func DecodeString(b []byte, off int) (string, int, error) {
	n, err := Uint32At(b, off)
	if err != nil {
		return "", off, err
	}
	off += 4
	if n == 0 {
		return "", off, nil
	}
	if uint64(n) > uint64(len(b)-off) {
		return "", off, fmt.Errorf("%w: string length %d at offset %d of %d", ErrTruncated, n, off, len(b))
	}
	raw := b[off : off+int(n)]
	if raw[len(raw)-1] != 0 {
		return "", off, ErrInvalidString
	}
	next := off + PaddedLen(int(n))
	if next > len(b) {
		return "", off, fmt.Errorf("%w: string padding at offset %d of %d", ErrTruncated, off, len(b))
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), next, nil
}

// ArgReader walks a message body argument by argument. The first error
// sticks; later reads return zero values.
type ArgReader struct {
	body []byte
	off  int
	err  error
}

func NewArgReader(body []byte) *ArgReader {
	return &ArgReader{body: body}
}

func (r *ArgReader) Uint32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := Uint32At(r.body, r.off)
	if err != nil {
		r.err = err
		return 0
	}
	r.off += 4
	return v
}

func (r *ArgReader) String() string {
	if r.err != nil {
		return ""
	}
	s, next, err := DecodeString(r.body, r.off)
	if err != nil {
		r.err = err
		return ""
	}
	r.off = next
	return s
}

func (r *ArgReader) Remaining() int {
	return len(r.body) - r.off
}

func (r *ArgReader) Err() error {
	return r.err
}
