package notes

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// Monitor tracks whether the remote API is reachable and notifies
// subscribers on every transition.
type Monitor struct {
	mu          sync.RWMutex
	online      bool
	subscribers map[ulid.ULID]func(bool)
	transitions uint64
	log         *slog.Logger
}

// NewMonitor creates a monitor with the given initial status.
func NewMonitor(initial bool, log *slog.Logger) *Monitor {
	return &Monitor{
		online:      initial,
		subscribers: make(map[ulid.ULID]func(bool)),
		log:         log,
	}
}

// Online reports the current status.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers cb, calls it once with the current status and then on
// every transition. The returned func removes the subscription.
func (m *Monitor) Subscribe(cb func(online bool)) func() {
	id := ulid.Make()

	m.mu.Lock()
	m.subscribers[id] = cb
	current := m.online
	m.mu.Unlock()

	if m.log != nil && m.log.Enabled(context.Background(), slog.LevelDebug) {
		m.log.Debug("connectivity subscriber added", "sub_id", id.String())
	}

	cb(current)

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// SetOnline records the status. Calls that do not change it are no-ops.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	snapshot := make([]func(bool), 0, len(m.subscribers))
	for _, cb := range m.subscribers {
		snapshot = append(snapshot, cb)
	}
	m.mu.Unlock()

	atomic.AddUint64(&m.transitions, 1)
	if m.log != nil {
		m.log.Info("connectivity changed", "online", online, "subscribers", len(snapshot))
	}

	for _, cb := range snapshot {
		cb(online)
	}
}

// Stats returns current counters for observability / tests.
func (m *Monitor) Stats() (subscribers int, transitions uint64) {
	m.mu.RLock()
	subscribers = len(m.subscribers)
	m.mu.RUnlock()
	return subscribers, atomic.LoadUint64(&m.transitions)
}
