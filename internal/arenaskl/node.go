// Copyright 2017 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package arenaskl

import (
	"sync/atomic"
	"unsafe"

	"github.com/kvstash/kvstash/internal/base"
)

const maxHeight = 20

// link holds one level's forward pointer, stored as an arena offset so
// nodes never hold real pointers into the (possibly relocated) backing
// slice.
type link struct {
	next uint32
}

// node is allocated out of an Arena; its tower's actual height varies per
// node (randomHeight), so only tower[:height] is ever touched.
type node struct {
	keyOffset uint32
	keySize   uint32
	valOffset uint32
	valSize   uint32
	tower     [maxHeight]link
}

func newNode(a *Arena, height int, key base.InternalKey, value []byte) (uint32, error) {
	keyBuf := make([]byte, key.Size())
	key.Encode(keyBuf)

	keyOffset, err := a.PutBytes(keyBuf)
	if err != nil {
		return 0, err
	}
	var valOffset, valSize uint32
	if len(value) > 0 {
		valOffset, err = a.PutBytes(value)
		if err != nil {
			return 0, err
		}
		valSize = uint32(len(value))
	}

	// Only the first `height` tower slots are ever read or written for
	// this node, but the struct always reserves maxHeight; unlike the
	// C++ original we don't vary node size to save the trailing slots,
	// trading a little arena space for a much simpler allocator.
	nodeOffset, err := a.Alloc(uint32(nodeSize), nodeAlignment)
	if err != nil {
		return 0, err
	}
	n := (*node)(a.getPointer(nodeOffset))
	n.keyOffset = keyOffset
	n.keySize = uint32(len(keyBuf))
	n.valOffset = valOffset
	n.valSize = valSize
	return nodeOffset, nil
}

var nodeSize = int(unsafe.Sizeof(node{}))

func (n *node) key(a *Arena) base.InternalKey {
	return base.DecodeInternalKey(a.GetBytes(n.keyOffset, n.keySize))
}

func (n *node) value(a *Arena) []byte {
	return a.GetBytes(n.valOffset, n.valSize)
}

func (n *node) loadNext(level int) uint32 {
	return atomic.LoadUint32(&n.tower[level].next)
}

func (n *node) casNext(level int, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(&n.tower[level].next, old, new)
}
