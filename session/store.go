package session

import "context"

// SnapshotStore persists the whole session register as a single blob. The
// register calls Save after every mutation and Load once at startup.
// Implementations vary only in *where* the blob lives and how it is framed;
// the blob's own bytes are always produced by encodeSnapshot.
type SnapshotStore interface {
	Save(ctx context.Context, sessions []*Session) error
	Load(ctx context.Context) ([]*Session, error)
	Close() error
}
