package store

import "errors"

var (
	ErrNotFound = errors.New("store: resource not found")
	// ErrDisabled is returned by the no-op stores for lookups they cannot answer.
	ErrDisabled = errors.New("store: persistence is not configured")
)
