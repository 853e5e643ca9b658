package session

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
)

// snapshotRecord is the CBOR-serializable mirror of a Session used by the
// Pebble and Redis backends, which store one snapshot-wide blob rather than
// the spec's raw on-disk byte layout (that layout is FileStore's job).
type snapshotRecord struct {
	ClientID       string          `cbor:"client_id"`
	Active         bool            `cbor:"active"`
	ExpiryInterval uint32          `cbor:"expiry_interval"`
	Subscriptions  []string        `cbor:"subscriptions"`
	Queue          []QueuedMessage `cbor:"queue"`
	Will           *WillMessage    `cbor:"will,omitempty"`
}

func toRecord(s *Session) snapshotRecord {
	return snapshotRecord{
		ClientID:       s.ClientID(),
		Active:         s.Active(),
		ExpiryInterval: s.ExpiryInterval(),
		Subscriptions:  s.Subscriptions(),
		Queue:          s.queueSnapshot(),
		Will:           s.Will(),
	}
}

func fromRecord(r snapshotRecord) *Session {
	s := New(r.ClientID, r.ExpiryInterval)
	s.SetActive(r.Active)
	for _, f := range r.Subscriptions {
		s.AddSubscription(f)
	}
	for _, m := range r.Queue {
		s.Enqueue(m)
	}
	if r.Will != nil {
		s.SetWill(r.Will)
	}
	return s
}

var pebbleSnapshotKey = []byte("ax:session:snapshot")

// PebbleStore persists the session snapshot as a single CBOR-encoded value
// in a CockroachDB Pebble LSM tree, trading the spec's flat-file format for
// a store that can also absorb session-register growth beyond a single
// process's memory without a rewrite.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "session: open pebble store")
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Save(ctx context.Context, sessions []*Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([]snapshotRecord, 0, len(sessions))
	for _, s := range sessions {
		records = append(records, toRecord(s))
	}

	data, err := cbor.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "session: cbor marshal snapshot")
	}

	if err := p.db.Set(pebbleSnapshotKey, data, pebble.Sync); err != nil {
		return errors.Wrap(err, "session: pebble set snapshot")
	}
	return nil
}

func (p *PebbleStore) Load(ctx context.Context) ([]*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, closer, err := p.db.Get(pebbleSnapshotKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "session: pebble get snapshot")
	}
	defer closer.Close()

	var records []snapshotRecord
	if err := cbor.Unmarshal(data, &records); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "session: cbor unmarshal snapshot"), ErrCorruptSnapshot)
	}

	sessions := make([]*Session, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, fromRecord(r))
	}
	return sessions, nil
}

func (p *PebbleStore) Close() error {
	return p.db.Close()
}
