// Package session implements the broker's session register: the
// authoritative, persisted record of every client-id the broker has ever
// seen, its subscriptions, its offline queue, and its will-message.
package session

import (
	"sync"
	"time"
)

// WillMessage is the PUBLISH a session carries to be fanned out on
// abnormal disconnection.
type WillMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// QueuedMessage is a PUBLISH waiting in a session's FIFO for a
// currently-offline client.
type QueuedMessage struct {
	Topic         string
	Payload       []byte
	QoS           byte
	Retain        bool
	IsWillMessage bool
	QueuedAt      time.Time
}

// Session is the broker's per-client-id state. It is never accessed
// concurrently from outside the owning Register's mutex, but carries its
// own lock so callers that hold a reference after release (e.g. snapshot
// encoding) observe a consistent view.
type Session struct {
	mu sync.RWMutex

	clientID       string
	active         bool
	expiryInterval uint32
	createdAt      time.Time
	disconnectedAt time.Time

	// subscriptions preserves insertion order; filters is the dedup index.
	subscriptions []string
	filters       map[string]struct{}

	queue []QueuedMessage

	will *WillMessage

	nextPacketID uint16
}

// New creates a fresh session for clientID.
func New(clientID string, expiryInterval uint32) *Session {
	return &Session{
		clientID:       clientID,
		createdAt:      time.Now(),
		filters:        make(map[string]struct{}),
		expiryInterval: expiryInterval,
		nextPacketID:   1,
	}
}

func (s *Session) ClientID() string {
	return s.clientID
}

func (s *Session) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
	if !active {
		s.disconnectedAt = time.Now()
	}
}

func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Session) DisconnectedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disconnectedAt
}

func (s *Session) ExpiryInterval() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiryInterval
}

func (s *Session) SetExpiryInterval(interval uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiryInterval = interval
}

// IsExpired reports whether a disconnected session has outlived its
// expiry interval. A zero interval means retain indefinitely.
func (s *Session) IsExpired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active || s.expiryInterval == 0 {
		return false
	}
	return now.Sub(s.disconnectedAt) > time.Duration(s.expiryInterval)*time.Second
}

// AddSubscription appends filter if it is not already present. Reports
// whether the filter was newly added.
func (s *Session) AddSubscription(filter string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.filters[filter]; ok {
		return false
	}
	s.filters[filter] = struct{}{}
	s.subscriptions = append(s.subscriptions, filter)
	return true
}

// RemoveSubscription removes filter if present. Reports whether it was removed.
func (s *Session) RemoveSubscription(filter string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.filters[filter]; !ok {
		return false
	}
	delete(s.filters, filter)
	for i, f := range s.subscriptions {
		if f == filter {
			s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
			break
		}
	}
	return true
}

func (s *Session) HasSubscription(filter string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.filters[filter]
	return ok
}

// Subscriptions returns a copy of the subscription list in insertion order.
func (s *Session) Subscriptions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.subscriptions))
	copy(out, s.subscriptions)
	return out
}

// Enqueue appends a message to the offline FIFO.
func (s *Session) Enqueue(msg QueuedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, msg)
}

// Drain empties and returns the FIFO in enqueue order.
func (s *Session) Drain() []QueuedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.queue
	s.queue = nil
	return drained
}

// queueSnapshot returns a copy of the FIFO without draining it, for use by
// the snapshot encoder (which must not consume the session's state).
func (s *Session) queueSnapshot() []QueuedMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]QueuedMessage, len(s.queue))
	copy(out, s.queue)
	return out
}

func (s *Session) QueueLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue)
}

func (s *Session) SetWill(will *WillMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.will = will
}

func (s *Session) Will() *WillMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.will
}

func (s *Session) ClearWill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.will = nil
}

// NextPacketID returns an auto-incrementing packet-id, wrapping past zero.
func (s *Session) NextPacketID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextPacketID
	s.nextPacketID++
	if s.nextPacketID == 0 {
		s.nextPacketID = 1
	}
	return id
}

// IsRetainable reports whether the session still carries state worth
// keeping around once idle (matches the "retained until expiry" invariant).
func (s *Session) IsRetainable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active || len(s.subscriptions) > 0 || len(s.queue) > 0 || s.will != nil || s.expiryInterval > 0
}
