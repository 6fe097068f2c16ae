package topblock

import "fmt"

// Event identifies a lifecycle phase boundary.
type Event int

const (
	AboutToBuild Event = iota
	BuiltSignalPaths
	AboutToTeardown
	TeardownSignalPaths
	AboutToStart
	Started
	AboutToStop
	Stopped
)

func (e Event) String() string {
	switch e {
	case AboutToBuild:
		return "about_to_build"
	case BuiltSignalPaths:
		return "built_signal_paths"
	case AboutToTeardown:
		return "about_to_teardown"
	case TeardownSignalPaths:
		return "teardown_signal_paths"
	case AboutToStart:
		return "about_to_start"
	case Started:
		return "started"
	case AboutToStop:
		return "about_to_stop"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

type listener struct {
	id int
	fn func(Event)
}

// Subscribe registers fn to be called for every lifecycle event. Calls happen
// on the control goroutine, in subscription order. The returned function
// removes the subscription.
func (m *Manager) Subscribe(fn func(Event)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextListener
	m.nextListener++
	m.listeners = append(m.listeners, listener{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// emit delivers e without holding the lock so listeners may call back into
// the manager.
func (m *Manager) emit(e Event) {
	m.mu.Lock()
	ls := make([]listener, len(m.listeners))
	copy(ls, m.listeners)
	m.mu.Unlock()

	m.logger.Debug("Lifecycle event.", "event", e.String())
	for _, l := range ls {
		l.fn(e)
	}
}
