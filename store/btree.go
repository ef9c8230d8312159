// Package store provides a btree backed implementation of the KVStore
// interface. It is the storage engine used by tests and by hosts that
// embed the core without their own persistence layer.
package store

import (
	"bytes"

	"github.com/google/btree"

	"github.com/arx-one/vaultkit"
)

// degree is the branching factor of the underlying btree. The value
// follows the upstream btree package recommendation for small items.
const degree = 8

// MemStore is a btree based key-value store. There is no persistence
// here. The zero value is not usable, create instances with NewMemStore.
type MemStore struct {
	bt *btree.BTree
}

var _ vaultkit.KVStore = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		bt: btree.New(degree),
	}
}

// item is what is stored in the btree. The tree is ordered by key bytes.
type item struct {
	key   []byte
	value []byte
}

func (i item) Less(than btree.Item) bool {
	return bytes.Compare(i.key, than.(item).key) < 0
}

// Get returns nil iff key doesn't exist. Panics on nil key.
func (s *MemStore) Get(key []byte) []byte {
	assertValidKey(key)
	res := s.bt.Get(item{key: key})
	if res == nil {
		return nil
	}
	return res.(item).value
}

// Has checks if a key exists. Panics on nil key.
func (s *MemStore) Has(key []byte) bool {
	assertValidKey(key)
	return s.bt.Has(item{key: key})
}

// Set sets the key. Panics on nil key.
func (s *MemStore) Set(key, value []byte) {
	assertValidKey(key)
	s.bt.ReplaceOrInsert(item{key: key, value: value})
}

// Delete deletes the key. Panics on nil key.
func (s *MemStore) Delete(key []byte) {
	assertValidKey(key)
	s.bt.Delete(item{key: key})
}

// Iterator over a domain of keys in ascending order. End is exclusive.
// The iterator materializes the matching range, so writes during
// iteration do not invalidate it.
func (s *MemStore) Iterator(start, end []byte) vaultkit.Iterator {
	var it sliceIterator
	insert := func(i btree.Item) bool {
		it.pairs = append(it.pairs, i.(item))
		return true
	}

	switch {
	case start == nil && end == nil:
		s.bt.Ascend(insert)
	case start == nil:
		s.bt.AscendLessThan(item{key: end}, insert)
	case end == nil:
		s.bt.AscendGreaterOrEqual(item{key: start}, insert)
	default:
		s.bt.AscendRange(item{key: start}, item{key: end}, insert)
	}
	return &it
}

// ReverseIterator over a domain of keys in descending order. End is
// exclusive.
func (s *MemStore) ReverseIterator(start, end []byte) vaultkit.Iterator {
	var it sliceIterator
	insert := func(i btree.Item) bool {
		pair := i.(item)
		// Descend* bounds are inclusive on the pivot, trim the
		// exclusive end manually.
		if end != nil && bytes.Compare(pair.key, end) <= 0 {
			return false
		}
		it.pairs = append(it.pairs, pair)
		return true
	}

	// Reverse iteration treats start as the inclusive upper bound.
	if start == nil {
		s.bt.Descend(insert)
	} else {
		s.bt.DescendLessOrEqual(item{key: start}, insert)
	}
	return &it
}

func assertValidKey(key []byte) {
	if key == nil {
		panic("nil key is not allowed")
	}
}

// sliceIterator wraps an already materialized range of key-value pairs.
type sliceIterator struct {
	pairs []item
	pos   int
}

var _ vaultkit.Iterator = (*sliceIterator)(nil)

func (i *sliceIterator) Valid() bool {
	return i.pos < len(i.pairs)
}

func (i *sliceIterator) Next() {
	if !i.Valid() {
		panic("next called on an invalid iterator")
	}
	i.pos++
}

func (i *sliceIterator) Key() []byte {
	i.assertValid()
	return i.pairs[i.pos].key
}

func (i *sliceIterator) Value() []byte {
	i.assertValid()
	return i.pairs[i.pos].value
}

func (i *sliceIterator) Close() {
	i.pairs = nil
	i.pos = 0
}

func (i *sliceIterator) assertValid() {
	if !i.Valid() {
		panic("access to an invalid iterator")
	}
}
