package session

import "github.com/cockroachdb/errors"

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrNoSnapshot      = errors.New("session: no snapshot present")
	ErrStoreClosed     = errors.New("session: store is closed")
	ErrCorruptSnapshot = errors.New("session: corrupt snapshot")
	ErrUnknownClientID = errors.New("session: unknown client id")
	ErrFilterNotOwned  = errors.New("session: topic filter does not match the connecting client's namespace")
)
