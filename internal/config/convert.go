package config

import (
	"github.com/danmuck/wlboot/internal/discovery"
	"github.com/danmuck/wlboot/internal/protocol/frame"
	"github.com/danmuck/wlboot/internal/protocol/session"
)

// Discovery maps the file configuration onto a discovery session config.
func (c Config) Discovery() discovery.Config {
	cfg := discovery.DefaultConfig()
	cfg.SocketPath = c.SocketPath
	cfg.Interests = make([]session.Interest, 0, len(c.Interests))
	for _, name := range c.Interests {
		cfg.Interests = append(cfg.Interests, session.Interest{Interface: name, MaxVersion: c.Versions[name]})
	}
	cfg.ReadBufferSize = c.ReadBufferSize
	cfg.Limits = frame.Limits{MaxBuffered: c.MaxBuffered}
	cfg.Roundtrip = c.Roundtrip
	cfg.Connect.Attempts = c.ConnectAttempts
	if c.ConnectBackoff > 0 {
		cfg.Connect.Backoff.InitialDelay = c.ConnectBackoff
	}
	return cfg
}
