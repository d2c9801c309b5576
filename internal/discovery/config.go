package discovery

import (
	"os"

	"github.com/danmuck/wlboot/internal/protocol"
	"github.com/danmuck/wlboot/internal/protocol/frame"
	"github.com/danmuck/wlboot/internal/protocol/schema"
	"github.com/danmuck/wlboot/internal/protocol/session"
)

const DefaultReadBufferSize = 4096

// Config configures one discovery session.
type Config struct {
	// SocketPath overrides $XDG_RUNTIME_DIR/$WAYLAND_DISPLAY when set.
	SocketPath     string
	Interests      []session.Interest
	Table          schema.Table
	ReadBufferSize int
	Limits         frame.Limits
	// Roundtrip sends wl_display.sync after get_registry so a compositor
	// missing an interest fails the session instead of stalling it.
	Roundtrip bool
	Connect   session.ConnectConfig
	// OnMessage receives messages for objects other than the display,
	// registry and sync callback.
	OnMessage func(protocol.Message)
	Tracker   *Tracker
	Getenv    func(string) string
}

func DefaultConfig() Config {
	return Config{
		Interests:      session.InterestsFor(schema.DefaultInterests(false)...),
		Table:          schema.Default(),
		ReadBufferSize: DefaultReadBufferSize,
		Limits:         frame.DefaultLimits(),
		Connect:        session.DefaultConnectConfig(),
		Getenv:         os.Getenv,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if len(c.Interests) == 0 {
		c.Interests = def.Interests
	}
	if c.Table.DisplayID == 0 {
		c.Table = def.Table
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.Limits.MaxBuffered <= 0 {
		c.Limits = def.Limits
	}
	c.Connect = c.Connect.WithDefaults()
	if c.Getenv == nil {
		c.Getenv = def.Getenv
	}
	return c
}
