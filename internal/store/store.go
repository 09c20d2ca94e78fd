package store

import (
	"context"
)

// KeyValue is the durable string-keyed storage behind the profile store.
// ok is false when the key is absent; err is reserved for storage failures.
type KeyValue interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
