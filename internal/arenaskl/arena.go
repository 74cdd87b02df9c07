// Copyright 2017 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package arenaskl implements a lock-free skiplist over a fixed-size arena,
// the structure a memtable uses to hold its keys in sorted order. Nodes are
// allocated by bumping an offset into a single backing slice rather than by
// individual heap allocations, so a full memtable can be discarded in one
// shot when it's flushed.
package arenaskl

import (
	"errors"
	"sync/atomic"
	"unsafe"
)

// ErrArenaFull is returned by Alloc when the arena has no room left for the
// requested allocation. The memtable interprets this as "time to flush".
var ErrArenaFull = errors.New("arenaskl: arena full")

const (
	alignment = 8
	// nodeAlignment matches the alignment atomic.CompareAndSwapUint32
	// relies on for the tower pointers embedded in each node.
	nodeAlignment = 4
)

// Arena is a fixed-size, append-only byte buffer that nodes and their
// values are allocated from. It never frees; the whole thing is dropped at
// once when its memtable is flushed. Allocation is lock-free: a single CAS
// loop advances the used-bytes offset.
type Arena struct {
	buf []byte
	n   uint64
}

// NewArena allocates a new Arena backed by a buffer of size n bytes.
func NewArena(n uint32) *Arena {
	// The first byte is never handed out so that a zero-valued offset can
	// mean "no node" (the tail/head sentinels use offset 0 for "absent").
	return &Arena{buf: make([]byte, n), n: 1}
}

// Size returns the arena's total capacity in bytes.
func (a *Arena) Size() uint32 {
	return uint32(len(a.buf))
}

// Used returns the number of bytes currently allocated from the arena.
func (a *Arena) Used() uint32 {
	return uint32(atomic.LoadUint64(&a.n))
}

// Alloc reserves size bytes (plus alignment padding) from the arena and
// returns the byte offset of the reservation. It returns ErrArenaFull if
// there isn't enough room.
func (a *Arena) Alloc(size uint32, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	for {
		old := atomic.LoadUint64(&a.n)
		used := uint32(old)
		padded := (used + align - 1) &^ (align - 1)
		newUsed := padded + size
		if int(newUsed) > len(a.buf) {
			return 0, ErrArenaFull
		}
		if atomic.CompareAndSwapUint64(&a.n, old, uint64(newUsed)) {
			return padded, nil
		}
	}
}

// GetBytes returns the size bytes stored at offset.
func (a *Arena) GetBytes(offset uint32, size uint32) []byte {
	if size == 0 {
		return nil
	}
	return a.buf[offset : offset+size : offset+size]
}

// PutBytes copies b into a fresh allocation and returns its offset.
func (a *Arena) PutBytes(b []byte) (uint32, error) {
	offset, err := a.Alloc(uint32(len(b)), 1)
	if err != nil {
		return 0, err
	}
	copy(a.buf[offset:], b)
	return offset, nil
}

// getPointer returns an unsafe.Pointer to the byte at offset, for use by
// the skiplist's atomic tower operations.
func (a *Arena) getPointer(offset uint32) unsafe.Pointer {
	if offset == 0 {
		return nil
	}
	return unsafe.Pointer(&a.buf[offset])
}

// getPointerOffset is the inverse of getPointer.
func (a *Arena) getPointerOffset(ptr unsafe.Pointer) uint32 {
	if ptr == nil {
		return 0
	}
	return uint32(uintptr(ptr) - uintptr(unsafe.Pointer(&a.buf[0])))
}
