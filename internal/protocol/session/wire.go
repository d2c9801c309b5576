package session

import (
	"fmt"

	"github.com/danmuck/wlboot/internal/protocol"
	"github.com/danmuck/wlboot/internal/protocol/schema"
)

// BindRequest is wl_registry.bind: name, interface, version, new_id.
type BindRequest struct {
	RegistryID uint32
	Name       uint32
	Interface  string
	Version    uint32
	NewID      uint32
}

func EncodeBind(table schema.Table, req BindRequest) ([]byte, error) {
	return protocol.NewRequest(req.RegistryID, table.Registry.Bind).
		Uint32(req.Name).
		String(req.Interface).
		Uint32(req.Version).
		Uint32(req.NewID).
		Encode()
}

// BindSize is the encoded size of a bind request for iface.
func BindSize(iface string) int {
	return protocol.HeaderLen + 4 + protocol.EncodedStringLen(iface) + 4 + 4
}

func DecodeBind(table schema.Table, msg protocol.Message) (BindRequest, error) {
	if msg.Opcode != table.Registry.Bind {
		return BindRequest{}, fmt.Errorf("%w: bind opcode=%d", ErrUnknownOpcode, msg.Opcode)
	}
	args := protocol.NewArgReader(msg.Body)
	req := BindRequest{
		RegistryID: msg.ObjectID,
		Name:       args.Uint32(),
		Interface:  args.String(),
		Version:    args.Uint32(),
		NewID:      args.Uint32(),
	}
	if err := args.Err(); err != nil {
		return BindRequest{}, &ParseError{ObjectID: msg.ObjectID, Opcode: msg.Opcode, Err: err}
	}
	return req, nil
}

// EncodeGetRegistry is wl_display.get_registry(registry_id).
func EncodeGetRegistry(table schema.Table, registryID uint32) ([]byte, error) {
	return protocol.NewRequest(table.DisplayID, table.Display.GetRegistry).Uint32(registryID).Encode()
}

// EncodeSync is wl_display.sync(callback_id).
func EncodeSync(table schema.Table, callbackID uint32) ([]byte, error) {
	return protocol.NewRequest(table.DisplayID, table.Display.Sync).Uint32(callbackID).Encode()
}

// EncodePong is xdg_wm_base.pong(serial).
func EncodePong(table schema.Table, wmBaseID, serial uint32) ([]byte, error) {
	return protocol.NewRequest(wmBaseID, table.WmBase.Pong).Uint32(serial).Encode()
}

// DisplayError is the wl_display.error event: fatal for the connection.
type DisplayError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (e DisplayError) Error() string {
	return fmt.Sprintf("compositor error: object=%d code=%d: %s", e.ObjectID, e.Code, e.Message)
}

func ParseDisplayError(table schema.Table, msg protocol.Message) (DisplayError, error) {
	if err := table.Validate(schema.InterfaceDisplay, table.Display.Error, msg.Body); err != nil {
		return DisplayError{}, &ParseError{ObjectID: msg.ObjectID, Opcode: msg.Opcode, Err: err}
	}
	args := protocol.NewArgReader(msg.Body)
	return DisplayError{ObjectID: args.Uint32(), Code: args.Uint32(), Message: args.String()}, nil
}

// ParseUint32Event decodes the single-uint events: wl_display.delete_id,
// wl_callback.done and xdg_wm_base.ping.
func ParseUint32Event(table schema.Table, iface string, msg protocol.Message) (uint32, error) {
	if err := table.Validate(iface, msg.Opcode, msg.Body); err != nil {
		return 0, &ParseError{ObjectID: msg.ObjectID, Opcode: msg.Opcode, Err: err}
	}
	return protocol.NewArgReader(msg.Body).Uint32(), nil
}
