// Copyright 2017 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package arenaskl

import (
	"math"
	"sync/atomic"

	"github.com/kvstash/kvstash/internal/base"
)

const pValue = 1 / math.E

// Skiplist is a lock-free, arena-backed sorted map from base.InternalKey to
// a value blob. Multiple goroutines may call Add concurrently; a
// concurrently running Iterator sees a consistent, monotonically growing
// view of the list (nodes are never removed or mutated in place).
type Skiplist struct {
	arena  *Arena
	height uint32 // current tallest tower in use, atomically updated
	head   uint32
	tail   uint32
	rnd    uint64 // xorshift state for randomHeight, not used concurrently for placement decisions that need coordination
}

// ErrRecordExists is returned by Add when an entry already exists for the
// exact same internal key (same user key, sequence number and kind).
var ErrRecordExists = errAlreadyExists{}

type errAlreadyExists struct{}

func (errAlreadyExists) Error() string { return "arenaskl: record exists" }

// NewSkiplist creates an empty skiplist backed by a fresh arena of size
// arenaSize bytes.
func NewSkiplist(arenaSize uint32) (*Skiplist, error) {
	arena := NewArena(arenaSize)
	head, err := newNode(arena, maxHeight, base.InternalKey{}, nil)
	if err != nil {
		return nil, err
	}
	tail, err := newNode(arena, maxHeight, base.InternalKey{}, nil)
	if err != nil {
		return nil, err
	}
	headNode := (*node)(arena.getPointer(head))
	for i := 0; i < maxHeight; i++ {
		headNode.tower[i].next = tail
	}
	return &Skiplist{arena: arena, height: 1, head: head, tail: tail, rnd: 0x9e3779b97f4a7c15}, nil
}

// Arena returns the skiplist's backing arena, so a caller can check
// remaining capacity before deciding whether to schedule a flush.
func (s *Skiplist) Arena() *Arena {
	return s.arena
}

func (s *Skiplist) getNode(offset uint32) *node {
	return (*node)(s.arena.getPointer(offset))
}

func (s *Skiplist) randomHeight() int {
	// A simple xorshift64 PRNG. This need not be cryptographically
	// random, only cheap and reasonably uniform; contention on this
	// field only affects tower height distribution, not correctness.
	x := atomic.AddUint64(&s.rnd, 0x2545F4914F6CDD1D)
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r := x * 0x2545F4914F6CDD1D

	h := 1
	for h < maxHeight && float64(r&0xffffffff)/float64(1<<32) < pValue {
		h++
		r >>= 1
	}
	return h
}

func (s *Skiplist) getHeight() int {
	return int(atomic.LoadUint32(&s.height))
}

// findSplice locates, at every level, the node immediately before where key
// would be inserted (prev) and the node immediately after (next).
func (s *Skiplist) findSplice(key base.InternalKey, prev, next *[maxHeight]uint32) (found bool) {
	level := s.getHeight()
	prevOffset := s.head
	for i := level - 1; i >= 0; i-- {
		p, n, eq := s.findSpliceForLevel(key, i, prevOffset)
		prevOffset = p
		prev[i] = p
		next[i] = n
		if eq {
			found = true
		}
	}
	return found
}

func (s *Skiplist) findSpliceForLevel(key base.InternalKey, level int, start uint32) (prev, next uint32, found bool) {
	prev = start
	for {
		prevNode := s.getNode(prev)
		nextOffset := prevNode.loadNext(level)
		if nextOffset == s.tail {
			return prev, nextOffset, false
		}
		nextNode := s.getNode(nextOffset)
		nextKey := nextNode.key(s.arena)
		c := key.Compare(nextKey)
		if c == 0 {
			return prev, nextOffset, true
		}
		if c < 0 {
			return prev, nextOffset, false
		}
		prev = nextOffset
	}
}

// Add inserts key/value into the skiplist. It returns ErrRecordExists if an
// entry with an identical internal key (same user key, sequence number and
// kind) is already present, and ErrArenaFull if the arena has no room.
//
// Add never blocks and never mutates an existing node; concurrent readers
// via Iterator always see a well-formed list.
func (s *Skiplist) Add(key base.InternalKey, value []byte) error {
	var prev, next [maxHeight]uint32
	// Levels at or above the list's current height have no nodes on them
	// yet; default every level to head->tail so a new node taller than
	// the current height still links in correctly at the levels
	// findSplice (which only walks up to the current height) never
	// touches.
	for i := range prev {
		prev[i], next[i] = s.head, s.tail
	}
	if s.findSplice(key, &prev, &next) {
		return ErrRecordExists
	}

	height := s.randomHeight()
	if cur := s.getHeight(); height > cur {
		atomic.CompareAndSwapUint32(&s.height, uint32(cur), uint32(height))
	}

	nodeOffset, err := newNode(s.arena, height, key, value)
	if err != nil {
		return err
	}
	newNd := s.getNode(nodeOffset)

	for i := 0; i < height; i++ {
		for {
			newNd.tower[i].next = next[i]
			if s.getNode(prev[i]).casNext(i, next[i], nodeOffset) {
				break
			}
			// Another writer raced us at this level; recompute the
			// splice for this level only and retry.
			p, n, _ := s.findSpliceForLevel(key, i, prev[i])
			prev[i], next[i] = p, n
		}
	}
	return nil
}
