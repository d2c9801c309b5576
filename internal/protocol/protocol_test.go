package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/wlboot/internal/testutil/testlog"
)

func TestHeaderRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := Header{ObjectID: 0xdeadbeef, Opcode: 3, Size: 0x1234}
	buf := EncodeHeader(in)
	want := []byte{0xef, 0xbe, 0xad, 0xde, 0x03, 0x00, 0x34, 0x12}
	if !bytes.Equal(buf, want) {
		t.Fatalf("header bytes got=%x want=%x", buf, want)
	}
	out, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if out != in {
		t.Fatalf("header mismatch: got=%+v want=%+v", out, in)
	}
}

func TestDecodeHeaderShort(t *testing.T) {
	testlog.Start(t)
	if _, err := DecodeHeader([]byte{1, 2, 3}); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestEncodeStringPadding(t *testing.T) {
	testlog.Start(t)
	for n := 0; n < 40; n++ {
		s := strings.Repeat("x", n)
		buf := EncodeString(s)
		if len(buf)%4 != 0 {
			t.Fatalf("len=%d: encoded length %d not aligned", n, len(buf))
		}
		if got := EncodedStringLen(s); got != len(buf) {
			t.Fatalf("len=%d: EncodedStringLen=%d want=%d", n, got, len(buf))
		}
		prefix, err := Uint32At(buf, 0)
		if err != nil {
			t.Fatalf("len=%d: prefix: %v", n, err)
		}
		if prefix != uint32(n+1) {
			t.Fatalf("len=%d: prefix=%d want=%d", n, prefix, n+1)
		}
		if buf[4+n] != 0 {
			t.Fatalf("len=%d: missing nul terminator", n)
		}
		for _, b := range buf[4+n:] {
			if b != 0 {
				t.Fatalf("len=%d: non-zero padding %x", n, buf)
			}
		}
	}
}

func TestEncodeStringKeepsSingleTerminator(t *testing.T) {
	testlog.Start(t)
	if !bytes.Equal(EncodeString("wl_seat\x00"), EncodeString("wl_seat")) {
		t.Fatalf("existing nul terminator duplicated")
	}
	want := []byte{8, 0, 0, 0, 'w', 'l', '_', 's', 'e', 'a', 't', 0}
	if got := EncodeString("wl_seat"); !bytes.Equal(got, want) {
		t.Fatalf("wl_seat got=%x want=%x", got, want)
	}
}

func TestDecodeStringRoundTrip(t *testing.T) {
	testlog.Start(t)
	for _, s := range []string{"", "a", "abc", "wl_shm", "wl_compositor", "zwp_linux_dmabuf_v1"} {
		buf := append(EncodeString(s), 0xaa, 0xbb, 0xcc, 0xdd)
		got, next, err := DecodeString(buf, 0)
		if err != nil {
			t.Fatalf("%q: decode: %v", s, err)
		}
		if got != s {
			t.Fatalf("decoded got=%q want=%q", got, s)
		}
		if next != len(buf)-4 {
			t.Fatalf("%q: next=%d want=%d", s, next, len(buf)-4)
		}
	}
}

func TestDecodeStringErrors(t *testing.T) {
	testlog.Start(t)
	full := EncodeString("wl_compositor")
	for cut := 0; cut < len(full); cut++ {
		if _, _, err := DecodeString(full[:cut], 0); !errors.Is(err, ErrTruncated) {
			t.Fatalf("cut=%d: expected ErrTruncated, got %v", cut, err)
		}
	}

	bad := []byte{4, 0, 0, 0, 'a', 'b', 'c', 'd'}
	if _, _, err := DecodeString(bad, 0); !errors.Is(err, ErrInvalidString) {
		t.Fatalf("expected ErrInvalidString, got %v", err)
	}

	huge := []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0}
	if _, _, err := DecodeString(huge, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for oversized prefix, got %v", err)
	}
}

func TestIntegerBoundsChecked(t *testing.T) {
	testlog.Start(t)
	b := []byte{1, 2, 3, 4, 5}
	if v, err := Uint32At(b, 1); err != nil || v != 0x05040302 {
		t.Fatalf("u32 at 1 got=%x err=%v", v, err)
	}
	if v, err := Uint16At(b, 3); err != nil || v != 0x0504 {
		t.Fatalf("u16 at 3 got=%x err=%v", v, err)
	}
	for _, off := range []int{-1, 2, 5, 100} {
		if _, err := Uint32At(b, off); !errors.Is(err, ErrTruncated) {
			t.Fatalf("u32 off=%d: expected ErrTruncated, got %v", off, err)
		}
	}
	for _, off := range []int{-1, 4, 5} {
		if _, err := Uint16At(b, off); !errors.Is(err, ErrTruncated) {
			t.Fatalf("u16 off=%d: expected ErrTruncated, got %v", off, err)
		}
	}
	if _, err := Uint32At(nil, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("u32 on empty: expected ErrTruncated, got %v", err)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	testlog.Start(t)
	raw, err := NewRequest(2, 0).Uint32(5).String("wl_compositor").Uint32(4).Uint32(3).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(raw) != 8+4+4+16+4+4 {
		t.Fatalf("unexpected encoded length %d", len(raw))
	}
	msg, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.ObjectID != 2 || msg.Opcode != 0 || int(msg.Size) != len(raw) {
		t.Fatalf("unexpected header: %+v", msg.Header())
	}
	args := NewArgReader(msg.Body)
	name, iface, version, id := args.Uint32(), args.String(), args.Uint32(), args.Uint32()
	if err := args.Err(); err != nil {
		t.Fatalf("read args: %v", err)
	}
	if name != 5 || iface != "wl_compositor" || version != 4 || id != 3 {
		t.Fatalf("args mismatch: name=%d iface=%q version=%d id=%d", name, iface, version, id)
	}
	if args.Remaining() != 0 {
		t.Fatalf("unexpected trailing bytes: %d", args.Remaining())
	}
	if !bytes.Equal(msg.Bytes(), raw) {
		t.Fatalf("re-encode mismatch")
	}
}

func TestRequestTooLarge(t *testing.T) {
	testlog.Start(t)
	_, err := NewRequest(2, 0).String(strings.Repeat("x", MaxMessageSize)).Encode()
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestDecodeMessageRejectsBadSize(t *testing.T) {
	testlog.Start(t)
	if _, err := DecodeMessage(EncodeHeader(Header{ObjectID: 1, Size: 4})); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := DecodeMessage(EncodeHeader(Header{ObjectID: 1, Size: 12})); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestArgReaderStickyError(t *testing.T) {
	testlog.Start(t)
	r := NewArgReader([]byte{1, 0, 0, 0, 2})
	if v := r.Uint32(); v != 1 {
		t.Fatalf("first u32 got=%d", v)
	}
	if v := r.Uint32(); v != 0 {
		t.Fatalf("short u32 got=%d", v)
	}
	if s := r.String(); s != "" {
		t.Fatalf("string after error got=%q", s)
	}
	if !errors.Is(r.Err(), ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", r.Err())
	}
}
