package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.LittleEndian.PutUint32(buf[0:4], h.ObjectID)
	binary.LittleEndian.PutUint16(buf[4:6], h.Opcode)
	binary.LittleEndian.PutUint16(buf[6:8], h.Size)
	return buf
}

// PaddedLen rounds n up to the next multiple of 4.
func PaddedLen(n int) int {
	return (n + 3) &^ 3
}

// EncodeString encodes s as a length-prefixed, nul-terminated, 4-byte
// padded string argument. The length prefix counts the terminator.
func EncodeString(s string) []byte {
	s = strings.TrimSuffix(s, "\x00")
	n := len(s) + 1
	buf := make([]byte, 4+PaddedLen(n))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	copy(buf[4:], s)
	return buf
}

// EncodedStringLen is len(EncodeString(s)) without allocating.
func EncodedStringLen(s string) int {
	return 4 + PaddedLen(len(strings.TrimSuffix(s, "\x00"))+1)
}

func AppendUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

// Request builds one outgoing message. Argument errors are deferred to
// Encode so call sites can chain.
type Request struct {
	objectID uint32
	opcode   uint16
	body     []byte
}

func NewRequest(objectID uint32, opcode uint16) *Request {
	return &Request{objectID: objectID, opcode: opcode}
}

func (r *Request) Uint32(v uint32) *Request {
	r.body = AppendUint32(r.body, v)
	return r
}

func (r *Request) String(s string) *Request {
	r.body = append(r.body, EncodeString(s)...)
	return r
}

// Encode returns header plus body with the size field filled in.
func (r *Request) Encode() ([]byte, error) {
	size := HeaderLen + len(r.body)
	if size > MaxMessageSize {
		return nil, fmt.Errorf("%w: object=%d opcode=%d size=%d", ErrMessageTooLarge, r.objectID, r.opcode, size)
	}
	out := make([]byte, 0, size)
	out = append(out, EncodeHeader(Header{ObjectID: r.objectID, Opcode: r.opcode, Size: uint16(size)})...)
	return append(out, r.body...), nil
}
