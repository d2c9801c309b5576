package protocol

const (
	// HeaderLen is the fixed header size preceding every message body.
	HeaderLen = 8
	// MaxMessageSize is the largest size the 16-bit size field can carry.
	MaxMessageSize = 1<<16 - 1
)

// Header is the fixed message header: object id, opcode and total size.
type Header struct {
	ObjectID uint32
	Opcode   uint16
	Size     uint16
}

// Message is one complete framed message. Body excludes the header.
type Message struct {
	ObjectID uint32
	Opcode   uint16
	Size     uint16
	Body     []byte
}

func (m Message) Header() Header {
	return Header{ObjectID: m.ObjectID, Opcode: m.Opcode, Size: m.Size}
}

// Bytes re-encodes the message into its wire form.
func (m Message) Bytes() []byte {
	out := make([]byte, 0, HeaderLen+len(m.Body))
	out = append(out, EncodeHeader(m.Header())...)
	return append(out, m.Body...)
}
