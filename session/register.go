package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Register is the broker's single authoritative session table. All
// dispatcher handlers acquire its mutex around mutations; fan-out reads a
// cloned subscriber list and releases the mutex before writing to sockets,
// so a slow client can never stall the register.
type Register struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    SnapshotStore
}

func NewRegister(store SnapshotStore) *Register {
	return &Register{
		sessions: make(map[string]*Session),
		store:    store,
	}
}

// Recover loads the snapshot and marks every session inactive, since no
// connection can have survived a restart.
func (r *Register) Recover(ctx context.Context) error {
	sessions, err := r.store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "session: recover")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		s.SetActive(false)
		r.sessions[s.ClientID()] = s
	}
	return nil
}

// persist must be called with mu held.
func (r *Register) persist(ctx context.Context) error {
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	return r.store.Save(ctx, all)
}

// OpenSession implements open_session: it creates a new session, or resumes
// an existing one when cleanStart is false, and reports whether a prior
// session was present (CONNACK's session-present bit).
func (r *Register) OpenSession(ctx context.Context, clientID string, cleanStart bool, expiryInterval uint32) (sessionPresent bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.sessions[clientID]
	switch {
	case cleanStart:
		r.sessions[clientID] = New(clientID, expiryInterval)
		r.sessions[clientID].SetActive(true)
		sessionPresent = false
	case ok:
		existing.SetActive(true)
		existing.SetExpiryInterval(expiryInterval)
		sessionPresent = true
	default:
		s := New(clientID, expiryInterval)
		s.SetActive(true)
		r.sessions[clientID] = s
		sessionPresent = false
	}

	if err := r.persist(ctx); err != nil {
		return false, err
	}
	return sessionPresent, nil
}

// CleanSession implements clean_session: it discards a session entirely.
func (r *Register) CleanSession(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, clientID)
	return r.persist(ctx)
}

// AddSubscription implements add_subscription: new filters are appended,
// duplicates by filter string are skipped.
func (r *Register) AddSubscription(ctx context.Context, clientID string, filters []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[clientID]
	if !ok {
		return errors.Mark(errors.Newf("session: add_subscription: unknown client %q", clientID), ErrUnknownClientID)
	}
	for _, f := range filters {
		s.AddSubscription(f)
	}
	return r.persist(ctx)
}

// RemoveSubscription implements remove_subscription.
func (r *Register) RemoveSubscription(ctx context.Context, clientID string, filters []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[clientID]
	if !ok {
		return errors.Mark(errors.Newf("session: remove_subscription: unknown client %q", clientID), ErrUnknownClientID)
	}
	for _, f := range filters {
		s.RemoveSubscription(f)
	}
	return r.persist(ctx)
}

// Subscriber pairs a client-id with its session, the shape get_subscribers
// returns so dispatch fan-out can both address and mutate the right entry.
type Subscriber struct {
	ClientID string
	Session  *Session
}

// GetSubscribers implements get_subscribers: exact-match lookup across
// every session's subscription list against topic (already namespace-free).
func (r *Register) GetSubscribers(topic string) []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	var subs []Subscriber
	for id, s := range r.sessions {
		if s.HasSubscription(topic) {
			subs = append(subs, Subscriber{ClientID: id, Session: s})
		}
	}
	return subs
}

// StoreMessage implements store_message: append to the per-session FIFO.
func (r *Register) StoreMessage(ctx context.Context, clientID string, msg QueuedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[clientID]
	if !ok {
		return errors.Mark(errors.Newf("session: store_message: unknown client %q", clientID), ErrUnknownClientID)
	}
	s.Enqueue(msg)
	return r.persist(ctx)
}

// DisconnectSession implements disconnect_session for the will-eligible
// path: it marks the session inactive and, if a will-message exists,
// clears and returns it so the caller can fan it out.
func (r *Register) DisconnectSession(ctx context.Context, clientID string) (*WillMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[clientID]
	if !ok {
		return nil, errors.Mark(errors.Newf("session: disconnect_session: unknown client %q", clientID), ErrUnknownClientID)
	}
	s.SetActive(false)
	will := s.Will()
	s.ClearWill()

	if err := r.persist(ctx); err != nil {
		return nil, err
	}
	return will, nil
}

// DiscardWill marks the session inactive and drops any will-message
// without reporting it, for a clean (NormalDisconnection) disconnect.
func (r *Register) DiscardWill(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[clientID]
	if !ok {
		return errors.Mark(errors.Newf("session: discard_will: unknown client %q", clientID), ErrUnknownClientID)
	}
	s.SetActive(false)
	s.ClearWill()
	return r.persist(ctx)
}

// PendingMessages implements pending_messages: drains the FIFO for replay.
func (r *Register) PendingMessages(ctx context.Context, clientID string) ([]QueuedMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[clientID]
	if !ok {
		return nil, errors.Mark(errors.Newf("session: pending_messages: unknown client %q", clientID), ErrUnknownClientID)
	}
	drained := s.Drain()
	if err := r.persist(ctx); err != nil {
		return nil, err
	}
	return drained, nil
}

// Session returns the session for clientID without mutating it.
func (r *Register) Session(clientID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[clientID]
	return s, ok
}

// EvictExpiredAt removes every inactive session whose expiry interval has
// elapsed as of now. The broker wires this to a ticker only when an
// operator opts into eviction; by default sessions are retained
// indefinitely (see the Open Questions decision in DESIGN.md).
func (r *Register) EvictExpiredAt(ctx context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, s := range r.sessions {
		if s.IsExpired(now) {
			evicted = append(evicted, id)
			delete(r.sessions, id)
		}
	}
	if len(evicted) == 0 {
		return nil, nil
	}
	if err := r.persist(ctx); err != nil {
		return nil, err
	}
	return evicted, nil
}

// Count returns the number of sessions currently held, recovered or not.
func (r *Register) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Register) Close() error {
	return r.store.Close()
}
