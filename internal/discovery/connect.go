package discovery

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/danmuck/wlboot/internal/protocol/session"
	"github.com/danmuck/wlboot/internal/transport"
	"github.com/rs/zerolog/log"
)

// Dial connects to the compositor socket, retrying unreachable sockets with
// backoff. Environment errors are returned at once.
func Dial(ctx context.Context, cfg Config) (*transport.Conn, error) {
	cfg = cfg.WithDefaults()
	path := cfg.SocketPath
	if path == "" {
		p, err := transport.SocketPath(cfg.Getenv)
		if err != nil {
			return nil, err
		}
		path = p
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastErr error
	for attempt := 0; attempt < cfg.Connect.Attempts; attempt++ {
		if attempt > 0 {
			if err := session.SleepBackoff(ctx, cfg.Connect.Backoff, attempt, rng); err != nil {
				return nil, err
			}
		}
		conn, err := transport.Dial(path)
		if err == nil {
			log.Info().Str("path", path).Int("attempt", attempt+1).Msg("connected to compositor")
			return conn, nil
		}
		lastErr = err
		var ce *transport.ConnectError
		if !errors.As(err, &ce) || ce.Reason != transport.Unreachable {
			return nil, err
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", cfg.Connect.Attempts).Msg("compositor unreachable")
	}
	return nil, lastErr
}

// Open dials and wraps the connection in a session ready to Run.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	conn, err := Dial(ctx, cfg)
	if err != nil {
		if cfg.Tracker != nil {
			cfg.Tracker.Publish(Snapshot{State: StateFailed.String(), Error: err.Error(), UpdatedAt: time.Now()})
		}
		return nil, &SessionError{State: StateConnecting, Err: err}
	}
	if err := conn.SetNonblocking(); err != nil {
		_ = conn.Close()
		return nil, &SessionError{State: StateConnecting, Err: err}
	}
	s, err := NewSession(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	s.path = conn.Path()
	return s, nil
}

// Discover runs one complete discovery and closes the connection.
func Discover(ctx context.Context, cfg Config) (Result, error) {
	s, err := Open(ctx, cfg)
	if err != nil {
		return Result{State: StateFailed}, err
	}
	defer s.Close()
	return s.Run()
}
