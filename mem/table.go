// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package mem implements the in-memory side of a column family: the
// skiplist a batch's records land in once applied, the bloom filter that
// lets a Delete skip a pointless lookup, and the flush-scheduling flag
// that tells the write path when a table has grown too large to keep
// taking writes.
package mem

import (
	"bytes"
	"sync/atomic"

	"github.com/kvstash/kvstash/internal/arenaskl"
	"github.com/kvstash/kvstash/internal/base"
)

// DefaultTableSize is the arena size a Table is created with when the
// caller doesn't specify one.
const DefaultTableSize = 4 << 20 // 4 MiB, matching the reference engine's write_buffer_size default order of magnitude

// Table is a single column family's active memtable: a sorted, arena-backed
// skiplist of internal keys plus the bookkeeping the write path needs to
// decide when to flush it.
type Table struct {
	skl    *arenaskl.Skiplist
	bloom  *Filter
	logNum uint64

	flushScheduled uint32 // atomic bool, CAS-guarded so only one writer wins the race to schedule a flush
}

// NewTable creates an empty Table backed by an arena of size arenaSize,
// associated with WAL log number logNum (the log a recovery pass must
// replay from to reconstruct anything not yet in this table).
func NewTable(arenaSize uint32, logNum uint64) (*Table, error) {
	skl, err := arenaskl.NewSkiplist(arenaSize)
	if err != nil {
		return nil, err
	}
	return &Table{
		skl:    skl,
		bloom:  NewFilter(1024),
		logNum: logNum,
	}, nil
}

// LogNumber returns the WAL log number this table is associated with.
func (t *Table) LogNumber() uint64 {
	return t.logNum
}

// Add inserts a single record into the table at the given sequence number.
// It returns arenaskl.ErrArenaFull when the table has no room left, which
// the caller should treat as "this table needs to be swapped out and
// flushed", and arenaskl.ErrRecordExists if an identical (key, seqNum,
// kind) triple was already inserted (a sign of an internal replay bug, not
// a normal user- reachable condition).
func (t *Table) Add(seqNum base.SeqNum, kind base.InternalKeyKind, key, value []byte) error {
	ikey := base.MakeInternalKey(key, seqNum, kind)
	if err := t.skl.Add(ikey, value); err != nil {
		return err
	}
	if kind != base.InternalKeyKindDelete && kind != base.InternalKeyKindSingleDelete {
		t.bloom.Add(key)
	}
	return nil
}

// KeyMayExist reports whether key might be present in the table. A false
// result is a guarantee the key is absent; a true result requires an
// actual lookup to confirm.
func (t *Table) KeyMayExist(key []byte) bool {
	return t.bloom.MayContain(key)
}

// Get returns the most recent value visible at or before snapshot for key,
// and whether the key's most recent entry was a deletion (in which case
// value is nil and found is true: the caller has a definitive "not
// present" answer, distinct from "not found in this table at all").
// Deletions are not added to the bloom filter Get consults first, so a key
// whose only entries are deletions is reported as not found.
func (t *Table) Get(key []byte, snapshot base.SeqNum) (value []byte, deleted bool, found bool) {
	if !t.bloom.MayContain(key) {
		return nil, false, false
	}
	var it arenaskl.Iterator
	it.Init(t.skl)
	it.SeekGE(base.MakeInternalKey(key, snapshot, base.InternalKeyKindMax))
	for it.Valid() {
		ik := it.Key()
		if !equalUserKey(ik.UserKey, key) {
			break
		}
		if ik.SeqNum() > snapshot {
			it.Next()
			continue
		}
		switch ik.Kind() {
		case base.InternalKeyKindDelete, base.InternalKeyKindSingleDelete:
			return nil, true, true
		default:
			return it.Value(), false, true
		}
	}
	return nil, false, false
}

// CountSuccessiveMergeEntries returns the number of consecutive Merge
// records already stored for key, starting from the newest. The applier
// uses this to decide whether to fold a new Merge operand into an existing
// run rather than appending a new one that would only grow a future read's
// merge chain.
func (t *Table) CountSuccessiveMergeEntries(key []byte) int {
	if !t.bloom.MayContain(key) {
		return 0
	}
	var it arenaskl.Iterator
	it.Init(t.skl)
	it.SeekGE(base.MakeInternalKey(key, base.SeqNum(1<<56-1), base.InternalKeyKindMax))
	count := 0
	for it.Valid() {
		ik := it.Key()
		if !equalUserKey(ik.UserKey, key) {
			break
		}
		if ik.Kind() != base.InternalKeyKindMerge {
			break
		}
		count++
		it.Next()
	}
	return count
}

// ApproximateMemoryUsage returns the number of bytes the table has
// allocated from its arena so far.
func (t *Table) ApproximateMemoryUsage() uint32 {
	return t.skl.Arena().Used()
}

// ShouldScheduleFlush reports whether the table has crossed its size
// threshold and no writer has yet claimed responsibility for scheduling a
// flush of it.
func (t *Table) ShouldScheduleFlush(threshold uint32) bool {
	if atomic.LoadUint32(&t.flushScheduled) != 0 {
		return false
	}
	return t.ApproximateMemoryUsage() >= threshold
}

// MarkFlushScheduled attempts to claim the responsibility for scheduling
// this table's flush. Exactly one caller among any number of concurrent
// callers receives true.
func (t *Table) MarkFlushScheduled() bool {
	return atomic.CompareAndSwapUint32(&t.flushScheduled, 0, 1)
}

func equalUserKey(a, b []byte) bool {
	return bytes.Equal(a, b)
}
