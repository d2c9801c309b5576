package discovery

import (
	"sync"
	"time"

	"github.com/danmuck/wlboot/internal/protocol/frame"
	"github.com/danmuck/wlboot/internal/protocol/session"
)

// Snapshot is a point-in-time copy of session state for readers outside the
// loop goroutine.
type Snapshot struct {
	State       string                `json:"state"`
	SocketPath  string                `json:"socket_path,omitempty"`
	Bindings    []session.Binding     `json:"bindings"`
	Remaining   []string              `json:"remaining"`
	Globals     []session.GlobalEntry `json:"globals"`
	Stats       frame.Stats           `json:"stats"`
	ParseErrors int                   `json:"parse_errors"`
	Pending     int                   `json:"pending_writes"`
	Pongs       int                   `json:"pongs"`
	Error       string                `json:"error,omitempty"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Tracker holds the latest published snapshot.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{State: StateConnecting.String()}}
}

func (t *Tracker) Publish(s Snapshot) {
	t.mu.Lock()
	t.snap = s
	t.mu.Unlock()
}

// Snapshot returns the latest published snapshot.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Ready reports whether every interest has been bound.
func (t *Tracker) Ready() bool {
	s := t.Snapshot()
	return s.State == StateAllBound.String() || s.State == StateMonitoring.String()
}
