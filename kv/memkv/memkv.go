// Package memkv implements the kv interface with an in-process map. It backs
// tests and embedded deployments that keep the tree in memory.
package memkv

import (
	"fmt"
	"sync"

	"veritree/kv"
)

type memkv struct {
	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool
}

// New returns an empty in-memory kv.DB.
func New() kv.DB {
	return &memkv{entries: make(map[string][]byte)}
}

func (db *memkv) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	value, ok := db.entries[string(key)]
	if !ok {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (db *memkv) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.entries[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *memkv) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, ok := db.entries[string(key)]
	return ok, nil
}

func (db *memkv) NewBatch() kv.Batch {
	return &batch{}
}

func (db *memkv) Write(b kv.Batch) error {
	wb, ok := b.(*batch)
	if !ok {
		return fmt.Errorf("memkv.Write: expected *batch, got %T", b)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, op := range wb.ops {
		db.entries[op.key] = op.value
	}
	return nil
}

func (db *memkv) NewIterator() kv.Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()

	// Snapshot so the iterator stays valid while writers proceed.
	it := &iterator{idx: -1}
	for k, v := range db.entries {
		it.keys = append(it.keys, []byte(k))
		it.values = append(it.values, append([]byte(nil), v...))
	}
	return it
}

func (db *memkv) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.closed = true
	db.entries = nil
	return nil
}

type op struct {
	key   string
	value []byte
}

type batch struct {
	ops []op
}

func (b *batch) Reset() {
	b.ops = b.ops[:0]
}

func (b *batch) Put(key, value []byte) {
	b.ops = append(b.ops, op{key: string(key), value: append([]byte(nil), value...)})
}

func (b *batch) Len() int {
	return len(b.ops)
}

type iterator struct {
	keys   [][]byte
	values [][]byte
	idx    int
}

func (it *iterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *iterator) Key() []byte   { return it.keys[it.idx] }
func (it *iterator) Value() []byte { return it.values[it.idx] }
func (it *iterator) Release()      {}
func (it *iterator) Error() error  { return nil }
