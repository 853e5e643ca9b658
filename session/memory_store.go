package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// MemoryStore keeps the snapshot blob in a variable instead of on disk.
// Round-tripping through the same encode/decode path as the on-disk stores
// makes it a faithful stand-in for tests and for brokers that opt out of
// persistence entirely.
type MemoryStore struct {
	mu     sync.Mutex
	blob   []byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(ctx context.Context, sessions []*Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blob, err := encodeSnapshot(sessions)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.blob = blob
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) ([]*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	if m.blob == nil {
		return nil, nil
	}
	sessions, err := decodeSnapshot(m.blob)
	if err != nil {
		return nil, errors.Wrap(err, "session: memory store decode")
	}
	return sessions, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.blob = nil
	return nil
}
