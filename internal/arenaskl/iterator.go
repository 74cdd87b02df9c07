// Copyright 2017 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package arenaskl

import "github.com/kvstash/kvstash/internal/base"

// Iterator provides read-only, forward-only traversal of a Skiplist. An Iterator is not safe for concurrent use by multiple
// goroutines, but many Iterators may run concurrently over the same
// Skiplist while it's being written to.
type Iterator struct {
	list *Skiplist
	nd   uint32
}

// Init positions the iterator over list, initially invalid until a
// positioning call (First or SeekGE) is made.
func (it *Iterator) Init(list *Skiplist) {
	it.list = list
	it.nd = list.head
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.nd != 0 && it.nd != it.list.head && it.nd != it.list.tail
}

// Key returns the internal key at the iterator's current position. The
// caller must not call Key on an invalid iterator.
func (it *Iterator) Key() base.InternalKey {
	return it.list.getNode(it.nd).key(it.list.arena)
}

// Value returns the value at the iterator's current position.
func (it *Iterator) Value() []byte {
	return it.list.getNode(it.nd).value(it.list.arena)
}

// Next advances to the next entry.
func (it *Iterator) Next() {
	it.nd = it.list.getNode(it.nd).loadNext(0)
}

// First positions the iterator at the first entry.
func (it *Iterator) First() {
	it.nd = it.list.getNode(it.list.head).loadNext(0)
}

// SeekGE positions the iterator at the first entry whose key is >= key.
func (it *Iterator) SeekGE(key base.InternalKey) {
	var prev, next [maxHeight]uint32
	it.list.findSplice(key, &prev, &next)
	it.nd = next[0]
}
