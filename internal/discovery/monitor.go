package discovery

import (
	"context"

	"github.com/danmuck/wlboot/internal/transport"
	"github.com/rs/zerolog/log"
)

// Monitor keeps servicing a discovered session: it tracks global churn,
// answers xdg_wm_base pings and publishes snapshots until ctx is cancelled
// or the connection fails. Cancellation returns nil.
func (s *Session) Monitor(ctx context.Context) error {
	if s.state != StateAllBound {
		return ErrNotDiscovered
	}
	waker, err := transport.NewWaker()
	if err != nil {
		return err
	}
	defer waker.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = waker.Wake()
		case <-stop:
		}
	}()

	s.setState(StateMonitoring)
	log.Info().Int("bindings", len(s.dispatcher.Bindings())).Msg("monitoring compositor")
	for {
		if ctx.Err() != nil {
			s.setState(StateAllBound)
			return nil
		}
		others, err := s.cycleWith(-1, waker.Fd())
		if err != nil {
			_, serr := s.fail(err)
			return serr
		}
		if len(others) > 0 && others[0].Readable {
			waker.Drain()
		}
	}
}
