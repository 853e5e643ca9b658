package hook

import "github.com/cockroachdb/errors"

var (
	ErrEmptyHookID       = errors.New("hook: id must not be empty")
	ErrHookAlreadyExists = errors.New("hook: id already registered")
	ErrHookNotFound      = errors.New("hook: id not registered")
)
