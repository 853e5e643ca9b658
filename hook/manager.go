package hook

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Manager holds the registered hooks and dispatches each lifecycle event
// to every hook that claims it. The registry is a copy-on-write slice
// behind an atomic pointer so dispatch never blocks on a mutex held by
// Add/Remove, matching the broker's single-mutator-many-readers shape.
type Manager struct {
	hooks atomic.Pointer[[]Hook]
}

func NewManager() *Manager {
	m := &Manager{}
	empty := make([]Hook, 0)
	m.hooks.Store(&empty)
	return m
}

func (m *Manager) Add(h Hook) error {
	if h.ID() == "" {
		return ErrEmptyHookID
	}
	for {
		old := m.hooks.Load()
		for _, existing := range *old {
			if existing.ID() == h.ID() {
				return errors.Wrapf(ErrHookAlreadyExists, "id %q", h.ID())
			}
		}
		next := make([]Hook, len(*old)+1)
		copy(next, *old)
		next[len(*old)] = h
		if m.hooks.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

func (m *Manager) Remove(id string) error {
	for {
		old := m.hooks.Load()
		idx := -1
		for i, h := range *old {
			if h.ID() == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return errors.Wrapf(ErrHookNotFound, "id %q", id)
		}
		next := make([]Hook, 0, len(*old)-1)
		next = append(next, (*old)[:idx]...)
		next = append(next, (*old)[idx+1:]...)
		if m.hooks.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

func (m *Manager) Get(id string) (Hook, bool) {
	for _, h := range *m.hooks.Load() {
		if h.ID() == id {
			return h, true
		}
	}
	return nil, false
}

func (m *Manager) List() []Hook {
	old := *m.hooks.Load()
	out := make([]Hook, len(old))
	copy(out, old)
	return out
}

func (m *Manager) Count() int {
	return len(*m.hooks.Load())
}

func (m *Manager) Clear() {
	empty := make([]Hook, 0)
	m.hooks.Store(&empty)
}

func (m *Manager) OnConnect(info ConnectInfo) {
	for _, h := range *m.hooks.Load() {
		if h.Provides(OnConnect) {
			h.OnConnect(info)
		}
	}
}

func (m *Manager) OnPublish(info PublishInfo) {
	for _, h := range *m.hooks.Load() {
		if h.Provides(OnPublish) {
			h.OnPublish(info)
		}
	}
}

func (m *Manager) OnSubscribe(info SubscribeInfo) {
	for _, h := range *m.hooks.Load() {
		if h.Provides(OnSubscribe) {
			h.OnSubscribe(info)
		}
	}
}

func (m *Manager) OnUnsubscribe(info SubscribeInfo) {
	for _, h := range *m.hooks.Load() {
		if h.Provides(OnUnsubscribe) {
			h.OnUnsubscribe(info)
		}
	}
}

func (m *Manager) OnDisconnect(info DisconnectInfo) {
	for _, h := range *m.hooks.Load() {
		if h.Provides(OnDisconnect) {
			h.OnDisconnect(info)
		}
	}
}

func (m *Manager) OnWill(info WillInfo) {
	for _, h := range *m.hooks.Load() {
		if h.Provides(OnWill) {
			h.OnWill(info)
		}
	}
}
