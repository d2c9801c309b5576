package session

import (
	"errors"
	"fmt"

	"github.com/danmuck/wlboot/internal/protocol"
	"github.com/danmuck/wlboot/internal/protocol/schema"
)

var ErrUnknownOpcode = errors.New("session: unknown opcode")

// ParseError is a per-message decode failure. The message is dropped and
// the session carries on.
type ParseError struct {
	ObjectID uint32
	Opcode   uint16
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("session: parse object=%d opcode=%d: %v", e.ObjectID, e.Opcode, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type EventKind uint8

const (
	EventGlobal EventKind = iota + 1
	EventGlobalRemove
)

func (k EventKind) String() string {
	switch k {
	case EventGlobal:
		return "global"
	case EventGlobalRemove:
		return "global_remove"
	default:
		return "unknown"
	}
}

// RegistryEvent is one interpreted registry event. Name is set for both
// kinds; Global only for EventGlobal.
type RegistryEvent struct {
	Kind   EventKind
	Name   uint32
	Global Global
}

// RegistryListener interprets messages addressed to the registry object.
type RegistryListener struct {
	table      schema.Table
	registryID uint32
}

func NewRegistryListener(table schema.Table, registryID uint32) *RegistryListener {
	return &RegistryListener{table: table, registryID: registryID}
}

func (l *RegistryListener) RegistryID() uint32 {
	return l.registryID
}

// Interpret decodes msg when it targets the registry. handled is false for
// any other object, leaving the message to the caller untouched.
func (l *RegistryListener) Interpret(msg protocol.Message) (ev RegistryEvent, handled bool, err error) {
	if msg.ObjectID != l.registryID {
		return RegistryEvent{}, false, nil
	}
	switch msg.Opcode {
	case l.table.Registry.Global:
		g, err := l.parseGlobal(msg)
		if err != nil {
			return RegistryEvent{}, true, err
		}
		return RegistryEvent{Kind: EventGlobal, Name: g.Name, Global: g}, true, nil
	case l.table.Registry.GlobalRemove:
		if err := l.table.Validate(schema.InterfaceRegistry, msg.Opcode, msg.Body); err != nil {
			return RegistryEvent{}, true, &ParseError{ObjectID: msg.ObjectID, Opcode: msg.Opcode, Err: err}
		}
		args := protocol.NewArgReader(msg.Body)
		return RegistryEvent{Kind: EventGlobalRemove, Name: args.Uint32()}, true, nil
	default:
		return RegistryEvent{}, true, &ParseError{ObjectID: msg.ObjectID, Opcode: msg.Opcode, Err: ErrUnknownOpcode}
	}
}

func (l *RegistryListener) parseGlobal(msg protocol.Message) (Global, error) {
	if err := l.table.Validate(schema.InterfaceRegistry, msg.Opcode, msg.Body); err != nil {
		return Global{}, &ParseError{ObjectID: msg.ObjectID, Opcode: msg.Opcode, Err: err}
	}
	args := protocol.NewArgReader(msg.Body)
	g := Global{Name: args.Uint32(), Interface: args.String(), Version: args.Uint32()}
	if err := args.Err(); err != nil {
		return Global{}, &ParseError{ObjectID: msg.ObjectID, Opcode: msg.Opcode, Err: err}
	}
	return g, nil
}
