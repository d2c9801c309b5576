package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/wlboot/internal/protocol"
	"github.com/danmuck/wlboot/internal/protocol/schema"
)

// Config is the resolved wlbootctl configuration.
type Config struct {
	SocketPath      string
	Interests       []string
	Dmabuf          bool
	Versions        map[string]uint32
	ReadBufferSize  int
	MaxBuffered     int
	Roundtrip       bool
	ConnectAttempts int
	ConnectBackoff  time.Duration
	StatusAddr      string
	StatusToken     string
	CorsOrigins     []string
	LogLevel        string
}

type fileConfig struct {
	SocketPath      string            `toml:"socket_path"`
	Interests       []string          `toml:"interests"`
	Dmabuf          bool              `toml:"dmabuf"`
	Versions        map[string]uint32 `toml:"versions"`
	ReadBufferSize  int               `toml:"read_buffer_size"`
	MaxBuffered     int               `toml:"max_buffered"`
	Roundtrip       bool              `toml:"roundtrip"`
	ConnectAttempts int               `toml:"connect_attempts"`
	ConnectBackoff  string            `toml:"connect_backoff"`
	StatusAddr      string            `toml:"status_addr"`
	StatusToken     string            `toml:"status_token"`
	CorsOrigins     []string          `toml:"cors_origins"`
	LogLevel        string            `toml:"log_level"`
}

func Default() Config {
	return Config{
		Interests:       schema.DefaultInterests(false),
		Versions:        map[string]uint32{},
		ReadBufferSize:  4096,
		MaxBuffered:     1 << 20,
		ConnectAttempts: 1,
		ConnectBackoff:  250 * time.Millisecond,
	}
}

// Load decodes path over Default. Keys absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("socket_path") {
		cfg.SocketPath = strings.TrimSpace(raw.SocketPath)
	}
	if meta.IsDefined("dmabuf") {
		cfg.Dmabuf = raw.Dmabuf
	}
	if meta.IsDefined("interests") {
		cfg.Interests = normalizeInterests(raw.Interests)
	}
	if cfg.Dmabuf && !contains(cfg.Interests, schema.InterfaceDmabuf) {
		cfg.Interests = append(cfg.Interests, schema.InterfaceDmabuf)
	}
	if meta.IsDefined("versions") {
		for k, v := range raw.Versions {
			cfg.Versions[strings.TrimSpace(k)] = v
		}
	}
	if meta.IsDefined("read_buffer_size") {
		cfg.ReadBufferSize = raw.ReadBufferSize
	}
	if meta.IsDefined("max_buffered") {
		cfg.MaxBuffered = raw.MaxBuffered
	}
	if meta.IsDefined("roundtrip") {
		cfg.Roundtrip = raw.Roundtrip
	}
	if meta.IsDefined("connect_attempts") {
		cfg.ConnectAttempts = raw.ConnectAttempts
	}
	if meta.IsDefined("connect_backoff") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectBackoff))
		if err != nil {
			return Config{}, fmt.Errorf("parse connect_backoff: %w", err)
		}
		cfg.ConnectBackoff = d
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("status_token") {
		cfg.StatusToken = strings.TrimSpace(raw.StatusToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if len(cfg.Interests) == 0 {
		return fmt.Errorf("interests must not be empty")
	}
	for name := range cfg.Versions {
		if !contains(cfg.Interests, name) {
			return fmt.Errorf("versions.%s names an interface not in interests", name)
		}
	}
	if cfg.ReadBufferSize < protocol.HeaderLen {
		return fmt.Errorf("read_buffer_size must be at least %d", protocol.HeaderLen)
	}
	if cfg.MaxBuffered < protocol.MaxMessageSize {
		return fmt.Errorf("max_buffered must be at least %d", protocol.MaxMessageSize)
	}
	if cfg.ConnectAttempts < 1 {
		return fmt.Errorf("connect_attempts must be at least 1")
	}
	if cfg.ConnectBackoff < 0 {
		return fmt.Errorf("connect_backoff must not be negative")
	}
	return nil
}

// normalizeInterests trims names and drops blanks and repeats, keeping
// first-seen order.
func normalizeInterests(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

// VersionCaps lists configured caps sorted by interface, for logging.
func (c Config) VersionCaps() []string {
	out := make([]string, 0, len(c.Versions))
	for k, v := range c.Versions {
		out = append(out, fmt.Sprintf("%s<=%d", k, v))
	}
	sort.Strings(out)
	return out
}
