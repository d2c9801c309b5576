package session

import (
	"errors"
	"testing"

	"github.com/danmuck/wlboot/internal/protocol"
	"github.com/danmuck/wlboot/internal/protocol/schema"
	"github.com/danmuck/wlboot/internal/testutil/testlog"
)

func mustMessage(t *testing.T, req *protocol.Request) protocol.Message {
	t.Helper()
	raw, err := req.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := protocol.DecodeMessage(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestInterpretGlobal(t *testing.T) {
	testlog.Start(t)
	l := NewRegistryListener(schema.Default(), 2)
	msg := mustMessage(t, protocol.NewRequest(2, 0).Uint32(5).String("wl_compositor").Uint32(4))
	ev, handled, err := l.Interpret(msg)
	if err != nil || !handled {
		t.Fatalf("interpret: handled=%v err=%v", handled, err)
	}
	want := Global{Name: 5, Interface: "wl_compositor", Version: 4}
	if ev.Kind != EventGlobal || ev.Global != want || ev.Name != 5 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestInterpretGlobalRemove(t *testing.T) {
	testlog.Start(t)
	l := NewRegistryListener(schema.Default(), 2)
	msg := mustMessage(t, protocol.NewRequest(2, 1).Uint32(7))
	ev, handled, err := l.Interpret(msg)
	if err != nil || !handled {
		t.Fatalf("interpret: handled=%v err=%v", handled, err)
	}
	if ev.Kind != EventGlobalRemove || ev.Name != 7 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestInterpretTruncatedGlobalIsRecoverable(t *testing.T) {
	testlog.Start(t)
	l := NewRegistryListener(schema.Default(), 2)
	full := mustMessage(t, protocol.NewRequest(2, 0).Uint32(5).String("wl_compositor").Uint32(4))
	short := full
	short.Body = full.Body[:10]
	short.Size = uint16(protocol.HeaderLen + len(short.Body))
	_, handled, err := l.Interpret(short)
	if !handled {
		t.Fatalf("registry message not handled")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected truncated ParseError, got %v", err)
	}
}

func TestInterpretPassesThroughOtherObjects(t *testing.T) {
	testlog.Start(t)
	l := NewRegistryListener(schema.Default(), 2)
	msg := mustMessage(t, protocol.NewRequest(3, 0).Uint32(1))
	_, handled, err := l.Interpret(msg)
	if handled || err != nil {
		t.Fatalf("foreign object: handled=%v err=%v", handled, err)
	}
}

func TestInterpretUnknownRegistryOpcode(t *testing.T) {
	testlog.Start(t)
	l := NewRegistryListener(schema.Default(), 2)
	msg := mustMessage(t, protocol.NewRequest(2, 9))
	_, handled, err := l.Interpret(msg)
	if !handled || !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("unknown opcode: handled=%v err=%v", handled, err)
	}
}

func TestInterpretGlobalWithTrailingBytesIsDropped(t *testing.T) {
	testlog.Start(t)
	l := NewRegistryListener(schema.Default(), 2)
	msg := mustMessage(t, protocol.NewRequest(2, 0).Uint32(5).String("wl_compositor").Uint32(4).Uint32(99))
	ev, handled, err := l.Interpret(msg)
	if !handled {
		t.Fatalf("registry message not handled")
	}
	var ve schema.ValidationError
	if !errors.As(err, &ve) || ve.Reason != "4 trailing bytes" {
		t.Fatalf("expected trailing bytes error, got %v", err)
	}
	if ev.Kind != 0 {
		t.Fatalf("dropped global still produced event: %+v", ev)
	}
}
