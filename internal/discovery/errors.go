package discovery

import (
	"errors"
	"fmt"

	"github.com/danmuck/wlboot/internal/protocol/session"
)

var (
	ErrMissingInterfaces = errors.New("discovery: compositor did not advertise every interest")
	ErrSocketCondition   = errors.New("discovery: socket error condition")
	ErrNotDiscovered     = errors.New("discovery: session has not reached all_bound")
)

// BindError wraps the I/O failure hit while issuing a bind.
type BindError struct {
	Interface string
	Err       error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("discovery: bind %s: %v", e.Interface, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// ProtocolError is a wl_display.error sent by the compositor.
type ProtocolError struct {
	session.DisplayError
}

func (e *ProtocolError) Error() string {
	return "discovery: " + e.DisplayError.Error()
}

// SessionError is the single terminal error a caller sees. State is where
// the session was when it failed.
type SessionError struct {
	State State
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("discovery failed while %s: %v", e.State, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
