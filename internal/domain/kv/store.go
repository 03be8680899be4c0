package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kv: key not found")

// Durable slots owned by the session manager. They are always cleared together.
const (
	KeyToken     = "finagent.token"
	KeyUser      = "finagent.user"
	KeySessionID = "finagent.session_id"
)

// Store is the durable key-value storage that survives process restarts.
type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
