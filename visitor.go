// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package kvstash

import (
	"github.com/kvstash/kvstash/batchrepr"
)

// Handler receives one callback per record, in buffer order, as a Batch
// is iterated: Put, Delete, SingleDelete or Merge for counted records, and
// LogData for LogData records. Iterate stops as soon as any callback
// (LogData included) returns a non-nil error, or as soon as Continue
// returns false.
type Handler interface {
	Put(cf batchrepr.ColumnFamilyID, key, value []byte) error
	Delete(cf batchrepr.ColumnFamilyID, key []byte) error
	SingleDelete(cf batchrepr.ColumnFamilyID, key []byte) error
	Merge(cf batchrepr.ColumnFamilyID, key, value []byte) error
	LogData(blob []byte) error

	// Continue is polled after every record. Returning false stops
	// iteration early without it being treated as an error.
	Continue() bool
}

// BaseHandler provides no-op LogData and always-true Continue
// implementations, so a Handler that only cares about mutations can embed
// this and implement just Put/Delete/SingleDelete/Merge.
type BaseHandler struct{}

// LogData does nothing; embedders can override it.
func (BaseHandler) LogData(blob []byte) error { return nil }

// Continue always returns true; embedders can override it.
func (BaseHandler) Continue() bool { return true }

// contentFlags is a bitset summarizing which kinds of records a batch
// contains, computed lazily the first time it's asked for and cached
// until the batch is next mutated.
type contentFlags uint8

const (
	contentHasPut contentFlags = 1 << iota
	contentHasDelete
	contentHasSingleDelete
	contentHasMerge
	// contentDeferred marks the cache as stale: the batch was appended to
	// since flags were last computed, and the real value must be
	// recomputed by scanning.
	contentDeferred
)

// computeContentFlags scans repr's payload once and returns the flags that
// describe it, ignoring the deferred bit (which is a cache-state concern,
// not a property of the bytes).
func computeContentFlags(repr []byte) (contentFlags, error) {
	var flags contentFlags
	r := batchrepr.NewReader(repr)
	for {
		kind, _, _, _, ok, err := r.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		switch kind.DefaultForm() {
		case batchrepr.KindValue:
			flags |= contentHasPut
		case batchrepr.KindDeletion:
			flags |= contentHasDelete
		case batchrepr.KindSingleDeletion:
			flags |= contentHasSingleDelete
		case batchrepr.KindMerge:
			flags |= contentHasMerge
		}
	}
	return flags, nil
}
