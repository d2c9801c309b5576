package discovery

import (
	"errors"
	"time"

	"github.com/danmuck/wlboot/internal/observability"
	"github.com/danmuck/wlboot/internal/protocol/schema"
	"github.com/danmuck/wlboot/internal/protocol/session"
	"github.com/danmuck/wlboot/internal/transport"
	"github.com/rs/zerolog/log"
)

// Writer is the write half of a compositor connection.
type Writer interface {
	WriteAll(b []byte) (int, error)
}

// Dispatcher issues bind requests for matching globals. Requests that meet
// a full socket wait in the outbox and go out in issue order.
type Dispatcher struct {
	table      schema.Table
	registryID uint32
	w          Writer
	ids        *session.IDAllocator
	interests  *session.InterestSet
	outbox     *session.WriteOutbox
	bindings   []session.Binding
	now        func() time.Time
}

func NewDispatcher(table schema.Table, registryID uint32, w Writer, ids *session.IDAllocator, interests *session.InterestSet) *Dispatcher {
	return &Dispatcher{
		table:      table,
		registryID: registryID,
		w:          w,
		ids:        ids,
		interests:  interests,
		outbox:     session.NewWriteOutbox(),
		now:        time.Now,
	}
}

// Dispatch binds g when it matches an unbound interest. bound is false for
// globals nobody asked for and for repeats of an interface already bound.
func (d *Dispatcher) Dispatch(g session.Global) (session.Binding, bool, error) {
	in, ok := d.interests.Match(g.Interface)
	if !ok {
		return session.Binding{}, false, nil
	}
	id, err := d.ids.Next()
	if err != nil {
		return session.Binding{}, false, &BindError{Interface: g.Interface, Err: err}
	}
	req := session.BindRequest{
		RegistryID: d.registryID,
		Name:       g.Name,
		Interface:  g.Interface,
		Version:    in.NegotiatedVersion(g.Version),
		NewID:      id,
	}
	raw, err := session.EncodeBind(d.table, req)
	if err != nil {
		return session.Binding{}, false, &BindError{Interface: g.Interface, Err: err}
	}
	if err := d.Send("bind "+g.Interface, raw); err != nil {
		return session.Binding{}, false, &BindError{Interface: g.Interface, Err: err}
	}

	b := session.Binding{Interface: g.Interface, ID: id, Version: req.Version, Name: g.Name}
	d.interests.MarkBound(b)
	d.bindings = append(d.bindings, b)
	observability.RecordBind(g.Interface)
	log.Info().
		Str("interface", b.Interface).
		Uint32("id", b.ID).
		Uint32("version", b.Version).
		Uint32("name", b.Name).
		Msg("bind issued")
	return b, true, nil
}

// Send writes raw now or queues it behind earlier pending writes.
func (d *Dispatcher) Send(label string, raw []byte) error {
	if !d.outbox.Empty() {
		d.enqueue(label, raw, 0)
		return nil
	}
	n, err := d.w.WriteAll(raw)
	if errors.Is(err, transport.ErrWouldBlock) {
		d.enqueue(label, raw, n)
		return nil
	}
	return err
}

func (d *Dispatcher) enqueue(label string, raw []byte, written int) {
	d.outbox.Push(label, raw, written, d.now())
	observability.RecordDeferredWrite()
	log.Debug().
		Str("request", label).
		Int("written", written).
		Int("queued", d.outbox.Len()).
		Msg("socket full; request deferred")
}

// Flush writes as much of the outbox as the socket accepts. A full socket
// is not an error; the rest waits for the next writable notification.
func (d *Dispatcher) Flush() error {
	for {
		front, ok := d.outbox.Front()
		if !ok {
			return nil
		}
		n, err := d.w.WriteAll(front.Remaining())
		d.outbox.Advance(n)
		if errors.Is(err, transport.ErrWouldBlock) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Pending is the number of queued requests.
func (d *Dispatcher) Pending() int {
	return d.outbox.Len()
}

// Queue returns a copy of the pending requests in order.
func (d *Dispatcher) Queue() []session.PendingWrite {
	return d.outbox.List()
}

// Bindings returns issued binds in issue order.
func (d *Dispatcher) Bindings() []session.Binding {
	out := make([]session.Binding, len(d.bindings))
	copy(out, d.bindings)
	return out
}
