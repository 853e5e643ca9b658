package session

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

const redisSnapshotKey = "ax:session:snapshot"

// RedisStore persists the session snapshot as a single CBOR-encoded value
// under one Redis key, for brokers that already run Redis for other state
// and would rather not manage a second embedded store.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: redisSnapshotKey}
}

func (r *RedisStore) Save(ctx context.Context, sessions []*Session) error {
	records := make([]snapshotRecord, 0, len(sessions))
	for _, s := range sessions {
		records = append(records, toRecord(s))
	}

	data, err := cbor.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "session: cbor marshal snapshot")
	}

	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return errors.Wrap(err, "session: redis set snapshot")
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context) ([]*Session, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "session: redis get snapshot")
	}

	var records []snapshotRecord
	if err := cbor.Unmarshal(data, &records); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "session: cbor unmarshal snapshot"), ErrCorruptSnapshot)
	}

	sessions := make([]*Session, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, fromRecord(rec))
	}
	return sessions, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
