package schema

import (
	"fmt"

	"github.com/danmuck/wlboot/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Well-known object ids fixed by the handshake.
const (
	DisplayID  uint32 = 1
	RegistryID uint32 = 2
)

// Interface names used by the bootstrap.
const (
	InterfaceDisplay    = "wl_display"
	InterfaceRegistry   = "wl_registry"
	InterfaceCallback   = "wl_callback"
	InterfaceCompositor = "wl_compositor"
	InterfaceSeat       = "wl_seat"
	InterfaceShm        = "wl_shm"
	InterfaceWmBase     = "xdg_wm_base"
	InterfaceDmabuf     = "zwp_linux_dmabuf_v1"
)

// ArgType is the wire type of one message argument.
type ArgType uint8

const (
	ArgUint ArgType = iota + 1
	ArgInt
	ArgString
	ArgObject
	ArgNewID
)

func (a ArgType) String() string {
	switch a {
	case ArgUint:
		return "uint"
	case ArgInt:
		return "int"
	case ArgString:
		return "string"
	case ArgObject:
		return "object"
	case ArgNewID:
		return "new_id"
	default:
		return fmt.Sprintf("arg(%d)", uint8(a))
	}
}

type DisplayOpcodes struct {
	Sync        uint16
	GetRegistry uint16
	Error       uint16
	DeleteID    uint16
}

type RegistryOpcodes struct {
	Bind         uint16
	Global       uint16
	GlobalRemove uint16
}

type CallbackOpcodes struct {
	Done uint16
}

type WmBaseOpcodes struct {
	Pong uint16
	Ping uint16
}

type eventKey struct {
	iface  string
	opcode uint16
}

// Table maps interface names to opcode semantics. It is passed to the
// registry listener and bind dispatcher as configuration.
type Table struct {
	DisplayID  uint32
	RegistryID uint32
	Display    DisplayOpcodes
	Registry   RegistryOpcodes
	Callback   CallbackOpcodes
	WmBase     WmBaseOpcodes

	events map[eventKey][]ArgType
}

// Default returns the core protocol table plus xdg_wm_base ping/pong.
func Default() Table {
	t := Table{
		DisplayID:  DisplayID,
		RegistryID: RegistryID,
		Display:    DisplayOpcodes{Sync: 0, GetRegistry: 1, Error: 0, DeleteID: 1},
		Registry:   RegistryOpcodes{Bind: 0, Global: 0, GlobalRemove: 1},
		Callback:   CallbackOpcodes{Done: 0},
		WmBase:     WmBaseOpcodes{Pong: 3, Ping: 0},
	}
	t.events = map[eventKey][]ArgType{
		{InterfaceDisplay, t.Display.Error}:          {ArgObject, ArgUint, ArgString},
		{InterfaceDisplay, t.Display.DeleteID}:       {ArgUint},
		{InterfaceRegistry, t.Registry.Global}:       {ArgUint, ArgString, ArgUint},
		{InterfaceRegistry, t.Registry.GlobalRemove}: {ArgUint},
		{InterfaceCallback, t.Callback.Done}:         {ArgUint},
		{InterfaceWmBase, t.WmBase.Ping}:             {ArgUint},
	}
	return t
}

// DefaultInterests is the interest set the bootstrap binds.
func DefaultInterests(dmabuf bool) []string {
	out := []string{InterfaceCompositor, InterfaceSeat, InterfaceShm, InterfaceWmBase}
	if dmabuf {
		out = append(out, InterfaceDmabuf)
	}
	return out
}

type ValidationError struct {
	Interface string
	Opcode    uint16
	Arg       int
	Reason    string
	Err       error
}

func (e ValidationError) Error() string {
	if e.Arg < 0 {
		return fmt.Sprintf("schema: %s opcode=%d: %s", e.Interface, e.Opcode, e.Reason)
	}
	return fmt.Sprintf("schema: %s opcode=%d arg=%d: %s", e.Interface, e.Opcode, e.Arg, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// Signature returns the argument layout of an event.
func (t Table) Signature(iface string, opcode uint16) ([]ArgType, bool) {
	sig, ok := t.events[eventKey{iface, opcode}]
	return sig, ok
}

// Validate checks an event body against its signature: every argument is
// present and no bytes trail the last one.
func (t Table) Validate(iface string, opcode uint16, body []byte) error {
	sig, ok := t.Signature(iface, opcode)
	if !ok {
		log.Debug().Str("iface", iface).Uint16("opcode", opcode).Msg("schema.Validate unknown event")
		return ValidationError{Interface: iface, Opcode: opcode, Arg: -1, Reason: "unknown event"}
	}
	off := 0
	for i, arg := range sig {
		switch arg {
		case ArgString:
			_, next, err := protocol.DecodeString(body, off)
			if err != nil {
				return ValidationError{Interface: iface, Opcode: opcode, Arg: i, Reason: arg.String(), Err: err}
			}
			off = next
		default:
			if _, err := protocol.Uint32At(body, off); err != nil {
				return ValidationError{Interface: iface, Opcode: opcode, Arg: i, Reason: arg.String(), Err: err}
			}
			off += 4
		}
	}
	if off != len(body) {
		return ValidationError{
			Interface: iface,
			Opcode:    opcode,
			Arg:       -1,
			Reason:    fmt.Sprintf("%d trailing bytes", len(body)-off),
		}
	}
	return nil
}
