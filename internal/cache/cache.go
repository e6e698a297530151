// Package cache is a read-through LRU for decoded nodes, keyed by node id.
// It sits in front of the store so hot traversal paths skip the codec.
package cache

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"

	"veritree/internal/base"
)

const MinCacheSize = 16 // hold at least one root-to-leaf path

// Cache wraps a synced freelru instance. Node values are immutable, so a
// cached node never goes stale in content; commits overwrite the entry for
// every rewritten id.
type Cache struct {
	lru *freelru.SyncedLRU[base.NodeID, base.Node]

	hits   atomic.Uint64
	misses atomic.Uint64
}

func hashNodeID(id base.NodeID) uint32 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return uint32(xxhash.Sum64(buf[:]))
}

// New creates a cache holding up to maxSize decoded nodes.
func New(maxSize int) (*Cache, error) {
	maxSize = max(maxSize, MinCacheSize)

	lru, err := freelru.NewSynced[base.NodeID, base.Node](uint32(maxSize), hashNodeID)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: lru}, nil
}

// Get returns the cached node for id, if present.
func (c *Cache) Get(id base.NodeID) (base.Node, bool) {
	n, ok := c.lru.Get(id)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return n, ok
}

// Put caches a node under id, replacing any previous entry.
func (c *Cache) Put(id base.NodeID, n base.Node) {
	c.lru.Add(id, n)
}

// Remove drops the entry for id.
func (c *Cache) Remove(id base.NodeID) {
	c.lru.Remove(id)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
