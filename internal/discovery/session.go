package discovery

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/wlboot/internal/observability"
	"github.com/danmuck/wlboot/internal/protocol"
	"github.com/danmuck/wlboot/internal/protocol/frame"
	"github.com/danmuck/wlboot/internal/protocol/schema"
	"github.com/danmuck/wlboot/internal/protocol/session"
	"github.com/danmuck/wlboot/internal/transport"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Conn is the compositor connection a session drives. *transport.Conn
// satisfies it.
type Conn interface {
	Read(b []byte) (int, error)
	WriteAll(b []byte) (int, error)
	Fd() int
	Close() error
}

// Result is what a finished discovery hands back.
type Result struct {
	State      State
	RegistryID uint32
	Bindings   []session.Binding
	Globals    []session.Global
	Stats      frame.Stats
	Duration   time.Duration
}

// IDs maps bound interface names to their object ids.
func (r Result) IDs() map[string]uint32 {
	out := make(map[string]uint32, len(r.Bindings))
	for _, b := range r.Bindings {
		out[b.Interface] = b.ID
	}
	return out
}

// Session is one single-threaded discovery over an already connected,
// non-blocking socket. All methods other than Snapshot must be called from
// the goroutine running the loop.
type Session struct {
	cfg        Config
	conn       Conn
	poll       transport.PollFunc
	path       string
	state      State
	ids        *session.IDAllocator
	interests  *session.InterestSet
	globals    *session.GlobalTable
	listener   *session.RegistryListener
	dispatcher *Dispatcher
	reasm      *frame.Reassembler
	buf        []byte

	registryID  uint32
	callbackID  uint32
	synced      bool
	wmBaseID    uint32
	parseErrors int
	pongs       int
	lastSkipped uint64
	started     time.Time
	err         error
}

// NewSession prepares a session over conn. Nothing is written until Run.
func NewSession(conn Conn, cfg Config) (*Session, error) {
	cfg = cfg.WithDefaults()
	interests, err := session.NewInterestSet(cfg.Interests)
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg:       cfg,
		conn:      conn,
		poll:      transport.Poll,
		state:     StateConnecting,
		ids:       session.NewIDAllocator(),
		interests: interests,
		globals:   session.NewGlobalTable(),
		reasm:     frame.NewReassembler(cfg.Limits),
		buf:       make([]byte, cfg.ReadBufferSize),
		started:   time.Now(),
	}, nil
}

// SetPoll replaces poll(2), mainly for tests.
func (s *Session) SetPoll(p transport.PollFunc) {
	if p != nil {
		s.poll = p
	}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Close() error {
	return s.conn.Close()
}

// Run performs the handshake and loops until every interest is bound or
// the session fails. On failure the connection is closed and the returned
// error is a *SessionError.
func (s *Session) Run() (Result, error) {
	if err := s.handshake(); err != nil {
		return s.fail(err)
	}
	s.setState(StateDiscovering)

	for {
		if s.synced && !s.interests.Satisfied() {
			return s.fail(fmt.Errorf("%w: missing %v", ErrMissingInterfaces, s.interests.Remaining()))
		}
		if s.interests.Satisfied() && s.reasm.Pending() == 0 {
			if err := s.drainOutbox(); err != nil {
				return s.fail(err)
			}
			s.setState(StateAllBound)
			observability.RecordDiscovery(StateAllBound.String(), time.Since(s.started))
			return s.result(), nil
		}
		if err := s.cycle(-1); err != nil {
			return s.fail(err)
		}
	}
}

func (s *Session) handshake() error {
	s.setState(StateAwaitingRegistry)
	id, err := s.ids.Next()
	if err != nil {
		return err
	}
	s.registryID = id
	s.listener = session.NewRegistryListener(s.cfg.Table, id)
	s.dispatcher = NewDispatcher(s.cfg.Table, id, s.conn, s.ids, s.interests)

	raw, err := session.EncodeGetRegistry(s.cfg.Table, id)
	if err != nil {
		return err
	}
	if err := s.dispatcher.Send("get_registry", raw); err != nil {
		return err
	}
	log.Debug().Uint32("registry_id", id).Msg("get_registry sent")

	if !s.cfg.Roundtrip {
		return nil
	}
	cb, err := s.ids.Next()
	if err != nil {
		return err
	}
	s.callbackID = cb
	raw, err = session.EncodeSync(s.cfg.Table, cb)
	if err != nil {
		return err
	}
	return s.dispatcher.Send("sync", raw)
}

// drainOutbox blocks on writability until queued binds are flushed. The
// binds count as issued once queued, but they must reach the socket before
// the session reports all_bound.
func (s *Session) drainOutbox() error {
	for s.dispatcher.Pending() > 0 {
		fds := []unix.PollFd{{Fd: int32(s.conn.Fd()), Events: unix.POLLOUT}}
		if _, err := s.poll(fds, -1); err != nil {
			return err
		}
		r := transport.ReadinessOf(fds[0].Revents)
		if r.Error || r.Invalid || r.Hangup {
			return s.conditionErr(r)
		}
		if err := s.dispatcher.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// cycle is one poll round over the connection.
func (s *Session) cycle(timeout int, extra ...int) error {
	_, err := s.cycleWith(timeout, extra...)
	return err
}

// cycleWith polls the connection plus extra descriptors and returns the
// readiness of the extras in order.
func (s *Session) cycleWith(timeout int, extra ...int) ([]transport.Readiness, error) {
	events := int16(unix.POLLIN)
	if s.dispatcher.Pending() > 0 {
		events |= unix.POLLOUT
	}
	fds := make([]unix.PollFd, 0, 1+len(extra))
	fds = append(fds, unix.PollFd{Fd: int32(s.conn.Fd()), Events: events})
	for _, fd := range extra {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	if _, err := s.poll(fds, timeout); err != nil {
		return nil, err
	}

	others := make([]transport.Readiness, 0, len(extra))
	for _, fd := range fds[1:] {
		others = append(others, transport.ReadinessOf(fd.Revents))
	}

	r := transport.ReadinessOf(fds[0].Revents)
	if r.Error || r.Invalid {
		return others, s.conditionErr(r)
	}
	if r.Writable {
		if err := s.dispatcher.Flush(); err != nil {
			return others, err
		}
	}
	if r.Readable {
		return others, s.readAndDispatch()
	}
	if r.Hangup {
		return others, transport.ErrPeerClosed
	}
	return others, nil
}

func (s *Session) conditionErr(r transport.Readiness) error {
	switch {
	case r.Invalid:
		return fmt.Errorf("%w: invalid descriptor", ErrSocketCondition)
	case r.Error:
		return fmt.Errorf("%w: socket error", ErrSocketCondition)
	default:
		return transport.ErrPeerClosed
	}
}

func (s *Session) readAndDispatch() error {
	n, err := s.conn.Read(s.buf)
	if errors.Is(err, transport.ErrWouldBlock) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.reasm.Feed(s.buf[:n]); err != nil {
		return err
	}
	msgs := s.reasm.Drain()
	observability.RecordFramed(len(msgs))
	if st := s.reasm.Stats(); st.SkippedBytes > s.lastSkipped {
		observability.RecordSkippedBytes(st.SkippedBytes - s.lastSkipped)
		s.lastSkipped = st.SkippedBytes
	}
	for _, msg := range msgs {
		if err := s.handle(msg); err != nil {
			return err
		}
	}
	observability.SetLiveGlobals(len(s.globals.Live()))
	s.publish()
	return nil
}

// handle routes one framed message. Only fatal errors are returned; decode
// failures drop the message and are counted.
func (s *Session) handle(msg protocol.Message) error {
	table := s.cfg.Table
	switch {
	case msg.ObjectID == table.DisplayID:
		return s.handleDisplay(msg)
	case s.callbackID != 0 && msg.ObjectID == s.callbackID && msg.Opcode == table.Callback.Done:
		if _, err := session.ParseUint32Event(table, schema.InterfaceCallback, msg); err != nil {
			s.dropped("wl_callback.done", err)
			return nil
		}
		s.synced = true
		log.Debug().Uint32("callback_id", msg.ObjectID).Msg("sync done")
		return nil
	case s.wmBaseID != 0 && msg.ObjectID == s.wmBaseID && msg.Opcode == table.WmBase.Ping:
		return s.handlePing(msg)
	}

	ev, handled, err := s.listener.Interpret(msg)
	if err != nil {
		s.dropped("wl_registry", err)
		return nil
	}
	if !handled {
		if s.cfg.OnMessage != nil {
			s.cfg.OnMessage(msg)
		}
		return nil
	}
	switch ev.Kind {
	case session.EventGlobal:
		s.globals.Add(ev.Global)
		log.Debug().
			Uint32("name", ev.Global.Name).
			Str("interface", ev.Global.Interface).
			Uint32("version", ev.Global.Version).
			Msg("global")
		b, bound, err := s.dispatcher.Dispatch(ev.Global)
		if err != nil {
			return err
		}
		if bound && b.Interface == schema.InterfaceWmBase {
			s.wmBaseID = b.ID
		}
	case session.EventGlobalRemove:
		g, ok := s.globals.Remove(ev.Name)
		if !ok {
			log.Debug().Uint32("name", ev.Name).Msg("global_remove for unknown name")
			return nil
		}
		for _, b := range s.dispatcher.Bindings() {
			if b.Name == g.Name {
				log.Warn().Str("interface", g.Interface).Uint32("id", b.ID).Msg("bound global removed")
			}
		}
	}
	return nil
}

func (s *Session) handleDisplay(msg protocol.Message) error {
	table := s.cfg.Table
	switch msg.Opcode {
	case table.Display.Error:
		de, err := session.ParseDisplayError(table, msg)
		if err != nil {
			s.dropped("wl_display.error", err)
			return nil
		}
		return &ProtocolError{DisplayError: de}
	case table.Display.DeleteID:
		id, err := session.ParseUint32Event(table, schema.InterfaceDisplay, msg)
		if err != nil {
			s.dropped("wl_display.delete_id", err)
			return nil
		}
		log.Debug().Uint32("id", id).Msg("delete_id")
		return nil
	default:
		s.dropped("wl_display", &session.ParseError{ObjectID: msg.ObjectID, Opcode: msg.Opcode, Err: session.ErrUnknownOpcode})
		return nil
	}
}

func (s *Session) handlePing(msg protocol.Message) error {
	serial, err := session.ParseUint32Event(s.cfg.Table, schema.InterfaceWmBase, msg)
	if err != nil {
		s.dropped("xdg_wm_base.ping", err)
		return nil
	}
	raw, err := session.EncodePong(s.cfg.Table, s.wmBaseID, serial)
	if err != nil {
		return err
	}
	if err := s.dispatcher.Send("pong", raw); err != nil {
		return err
	}
	s.pongs++
	log.Debug().Uint32("serial", serial).Msg("pong")
	return nil
}

func (s *Session) dropped(event string, err error) {
	s.parseErrors++
	observability.RecordParseError(event)
	log.Warn().Err(err).Str("event", event).Msg("message dropped")
}

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	log.Debug().Str("from", s.state.String()).Str("to", next.String()).Msg("session state")
	s.state = next
	s.publish()
}

func (s *Session) fail(err error) (Result, error) {
	at := s.state
	s.err = err
	s.setState(StateFailed)
	if at != StateMonitoring {
		observability.RecordDiscovery(StateFailed.String(), time.Since(s.started))
	}
	_ = s.conn.Close()
	log.Error().Err(err).Str("state", at.String()).Msg("discovery failed")
	return s.result(), &SessionError{State: at, Err: err}
}

func (s *Session) result() Result {
	var bindings []session.Binding
	if s.dispatcher != nil {
		bindings = s.dispatcher.Bindings()
	}
	return Result{
		State:      s.state,
		RegistryID: s.registryID,
		Bindings:   bindings,
		Globals:    s.globals.Live(),
		Stats:      s.reasm.Stats(),
		Duration:   time.Since(s.started),
	}
}

// Snapshot builds a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:       s.state.String(),
		SocketPath:  s.path,
		Remaining:   s.interests.Remaining(),
		Globals:     s.globals.List(),
		Stats:       s.reasm.Stats(),
		ParseErrors: s.parseErrors,
		Pongs:       s.pongs,
		UpdatedAt:   time.Now(),
	}
	if s.dispatcher != nil {
		snap.Bindings = s.dispatcher.Bindings()
		snap.Pending = s.dispatcher.Pending()
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

func (s *Session) publish() {
	if s.cfg.Tracker != nil {
		s.cfg.Tracker.Publish(s.Snapshot())
	}
}
