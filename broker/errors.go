package broker

import "github.com/cockroachdb/errors"

var (
	ErrNamespaceMismatch = errors.New("broker: filter namespace does not match client id")
	ErrUnknownClientID   = errors.New("broker: unknown client id")
	ErrNotConnected      = errors.New("broker: client not connected")
)
