package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/DataDog/zstd"
	"github.com/cockroachdb/errors"
)

// magic tags a compressed snapshot so FileStore can tell a zstd frame from
// a raw one when opening a file written by an older, uncompressed build.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// FileStore is the broker's primary session persistence backend: the whole
// register is rewritten atomically (write-temp, fsync, rename) after every
// mutation, matching the "recovered from disk at startup, flushed on every
// mutation" invariant. Compress trades a bit of CPU per flush for a smaller
// file when sessions carry large offline queues.
type FileStore struct {
	path     string
	compress bool

	mu sync.Mutex
}

func NewFileStore(path string, compress bool) *FileStore {
	return &FileStore{path: path, compress: compress}
}

func (f *FileStore) Save(ctx context.Context, sessions []*Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blob, err := encodeSnapshot(sessions)
	if err != nil {
		return err
	}

	if f.compress {
		compressed, err := zstd.Compress(nil, blob)
		if err != nil {
			return errors.Wrap(err, "session: zstd compress snapshot")
		}
		blob = compressed
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return writeFileAtomic(f.path, blob)
}

func (f *FileStore) Load(ctx context.Context) ([]*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	blob, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "session: read snapshot file")
	}
	if len(blob) == 0 {
		return nil, nil
	}

	if len(blob) >= 4 && string(blob[:4]) == string(zstdMagic) {
		decompressed, err := zstd.Decompress(nil, blob)
		if err != nil {
			return nil, errors.Wrap(err, "session: zstd decompress snapshot")
		}
		blob = decompressed
	}

	sessions, err := decodeSnapshot(blob)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "session: decode snapshot file"), ErrCorruptSnapshot)
	}
	return sessions, nil
}

func (f *FileStore) Close() error {
	return nil
}

// writeFileAtomic writes to a sibling temp file and renames over the
// target, so a crash mid-write never leaves a half-written snapshot.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "session: create temp snapshot file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "session: write temp snapshot file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "session: fsync temp snapshot file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "session: close temp snapshot file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "session: rename snapshot file into place")
	}
	return nil
}
