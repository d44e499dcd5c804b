package feed

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// Cache stores each viewer's ordered feed ids between page requests.
type Cache interface {
	Get(viewerId string) ([]string, bool)
	Set(viewerId string, ids []string)
	Invalidate(viewerId string)
}

// LRUCache is a bounded in-process Cache; the least recently used viewers
// are evicted first. It is safe for concurrent use.
type LRUCache struct {
	entries *lru.Cache
}

func NewLRUCache(size int) (*LRUCache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("unable to create feed cache: %w", err)
	}
	return &LRUCache{entries: entries}, nil
}

func (c *LRUCache) Get(viewerId string) ([]string, bool) {
	value, ok := c.entries.Get(viewerId)
	if !ok {
		return nil, false
	}
	return value.([]string), true
}

func (c *LRUCache) Set(viewerId string, ids []string) {
	c.entries.Add(viewerId, ids)
}

func (c *LRUCache) Invalidate(viewerId string) {
	c.entries.Remove(viewerId)
}
