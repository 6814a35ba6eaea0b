package ports

import "context"

// Cache memoizes small computed values such as token counts. Expiry is a
// property of the cache, not of individual entries.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
