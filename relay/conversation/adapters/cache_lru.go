package adapters

import (
	"context"
	"time"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache is a size-bounded cache whose entries expire ttl after they were
// written.
type LRUCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRUCache creates a cache holding at most capacity entries. A ttl <= 0
// keeps entries until they are evicted.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache{lru: expirable.NewLRU[string, []byte](capacity, nil, ttl)}
}

func (c *LRUCache) Get(ctx context.Context, key string) ([]byte, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache) Set(ctx context.Context, key string, value []byte) error {
	c.lru.Add(key, value)
	return nil
}

func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of entries.
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// Ensure LRUCache implements the Cache interface.
var _ ports.Cache = (*LRUCache)(nil)
