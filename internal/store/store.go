// Package store persists decoded tree nodes in a kv backend under fixed
// 8-byte big-endian id keys and hands out monotonic node ids.
package store

import (
	"fmt"
	"sync/atomic"

	"veritree/internal/base"
	"veritree/kv"
)

// Write pairs a node with the id it is persisted under.
type Write struct {
	ID   base.NodeID
	Node base.Node
}

// Store is a binary node store over a kv backend. The id counter is seeded
// at open by scanning the backend for the current maximum id, so ids stay
// monotonic across restarts.
type Store struct {
	db     kv.DB
	nextID atomic.Uint64
}

// Open wraps db and seeds the id allocator. The first id issued after open
// is maxFound+1; base.RootID is reserved and never issued.
func Open(db kv.DB) (*Store, error) {
	s := &Store{db: db}

	maxID := uint64(base.RootID)
	it := db.NewIterator()
	for it.Next() {
		id, err := base.DecodeNodeID(it.Key())
		if err != nil {
			it.Release()
			return nil, fmt.Errorf("store: bad node key: %w", err)
		}
		if uint64(id) > maxID {
			maxID = uint64(id)
		}
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, err
	}

	s.nextID.Store(maxID)
	return s, nil
}

// NextID issues a fresh monotonic node id.
func (s *Store) NextID() base.NodeID {
	return base.NodeID(s.nextID.Add(1))
}

// Get loads and decodes the node stored under id.
func (s *Store) Get(id base.NodeID) (base.Node, error) {
	data, err := s.db.Get(base.EncodeNodeID(id))
	if err != nil {
		return nil, err
	}
	return base.DecodeNode(data)
}

// GetLeaf loads the node stored under id, requiring a leaf.
func (s *Store) GetLeaf(id base.NodeID) (*base.Leaf, error) {
	data, err := s.db.Get(base.EncodeNodeID(id))
	if err != nil {
		return nil, err
	}
	return base.DecodeLeaf(data)
}

// Put persists a single node under id.
func (s *Store) Put(id base.NodeID, n base.Node) error {
	data, err := base.EncodeNode(n)
	if err != nil {
		return err
	}
	return s.db.Put(base.EncodeNodeID(id), data)
}

// PutBatch persists all writes through one atomic backend batch.
func (s *Store) PutBatch(writes []Write) error {
	b := s.db.NewBatch()
	for _, w := range writes {
		data, err := base.EncodeNode(w.Node)
		if err != nil {
			return err
		}
		b.Put(base.EncodeNodeID(w.ID), data)
	}
	return s.db.Write(b)
}

// Contains reports whether a node is stored under id.
func (s *Store) Contains(id base.NodeID) (bool, error) {
	return s.db.Has(base.EncodeNodeID(id))
}

// Close closes the backing database.
func (s *Store) Close() error {
	return s.db.Close()
}
