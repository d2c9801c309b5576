package protocol

import "errors"

var (
	ErrShortHeader     = errors.New("protocol: short message header")
	ErrTruncated       = errors.New("protocol: truncated data")
	ErrInvalidSize     = errors.New("protocol: invalid message size")
	ErrInvalidString   = errors.New("protocol: string missing nul terminator")
	ErrMessageTooLarge = errors.New("protocol: message too large")
)
