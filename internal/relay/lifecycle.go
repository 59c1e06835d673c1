package relay

import "sync/atomic"

// State is a connection's position in its lifecycle.
type State int32

// Connection states. Transitions only move forward.
const (
	Connecting State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Open:
		return "OPEN"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Lifecycle drives one connection through CONNECTING -> OPEN -> CLOSED and
// keeps the registry in step: the handle is added on open and removed on the
// first close. There is no way back from CLOSED.
type Lifecycle struct {
	state    atomic.Int32
	conn     Conn
	registry *Registry
}

// NewLifecycle returns a lifecycle in the CONNECTING state.
func NewLifecycle(conn Conn, registry *Registry) *Lifecycle {
	return &Lifecycle{conn: conn, registry: registry}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// Open moves CONNECTING to OPEN and registers the connection. It returns
// false if the connection was not CONNECTING.
func (l *Lifecycle) Open() bool {
	if !l.state.CompareAndSwap(int32(Connecting), int32(Open)) {
		return false
	}
	l.registry.Add(l.conn)
	return true
}

// Close moves the connection to CLOSED, whether the trigger is a close frame
// or a transport error, and returns the state it left. Only the first call
// takes effect; later calls return Closed. The registry entry is removed
// exactly once, and only if the connection had been opened.
func (l *Lifecycle) Close() State {
	for {
		cur := l.state.Load()
		if State(cur) == Closed {
			return Closed
		}
		if l.state.CompareAndSwap(cur, int32(Closed)) {
			if State(cur) == Open {
				l.registry.Remove(l.conn)
			}
			return State(cur)
		}
	}
}
