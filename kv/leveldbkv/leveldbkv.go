// Package leveldbkv implements the kv interface using leveldb.
package leveldbkv

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"veritree/kv"
)

type leveldbkv leveldb.DB

// OpenDB opens (or creates) a leveldb database at path and keeps it open.
func OpenDB(path string) (kv.DB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return Wrap(db), nil
}

// Wrap uses a leveldb.DB as a kv.DB the obvious way (and with Sync:true).
func Wrap(db *leveldb.DB) kv.DB {
	return (*leveldbkv)(db)
}

func (db *leveldbkv) Get(key []byte) ([]byte, error) {
	value, err := (*leveldb.DB)(db).Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, kv.ErrNotFound
	}
	return value, err
}

func (db *leveldbkv) Put(key, value []byte) error {
	return (*leveldb.DB)(db).Put(key, value, &opt.WriteOptions{Sync: true})
}

func (db *leveldbkv) Has(key []byte) (bool, error) {
	return (*leveldb.DB)(db).Has(key, nil)
}

func (db *leveldbkv) NewBatch() kv.Batch {
	return &batch{b: new(leveldb.Batch)}
}

func (db *leveldbkv) Write(b kv.Batch) error {
	wb, ok := b.(*batch)
	if !ok {
		return fmt.Errorf("leveldbkv.Write: expected *leveldbkv batch, got %T", b)
	}
	return (*leveldb.DB)(db).Write(wb.b, &opt.WriteOptions{Sync: true})
}

func (db *leveldbkv) NewIterator() kv.Iterator {
	return iter{(*leveldb.DB)(db).NewIterator(nil, nil)}
}

func (db *leveldbkv) Close() error {
	return (*leveldb.DB)(db).Close()
}

type batch struct {
	b *leveldb.Batch
}

func (b *batch) Reset()                { b.b.Reset() }
func (b *batch) Put(key, value []byte) { b.b.Put(key, value) }
func (b *batch) Len() int              { return b.b.Len() }

type iter struct {
	iterator.Iterator
}
