package repos

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV is the durable key/value storage behind carts and admin buffers. Set
// replaces the whole value; there is no locking, so concurrent writers to one
// key race and the last write wins.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
