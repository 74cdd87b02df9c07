// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package kvstash

import (
	"github.com/kvstash/kvstash/internal/base"
	"github.com/kvstash/kvstash/mem"
)

// InsertInto applies every record in batch to cfMems, starting from the
// sequence number already stored in batch's header. It returns the
// sequence number one past the last one consumed, which becomes the
// starting sequence number for whatever batch is applied next.
func InsertInto(batch *Batch, cfMems *mem.ColumnFamilyMemTables, opts ApplierOptions) (base.SeqNum, error) {
	applier := NewApplier(batch.SeqNum(), cfMems, opts)
	if err := batch.Iterate(applier); err != nil {
		return applier.SeqNum(), err
	}
	return applier.SeqNum(), nil
}

// Writer pairs a Batch queued for application with the outcome of
// applying it. InsertIntoGroup fills in Err; a nil Err means every record
// in Batch was applied (though individual records may have been skipped
// per the usual missing-column-family/stale-log rules, which are not
// errors).
type Writer struct {
	Batch *Batch
	Err   error
}

// InsertIntoGroup applies a list of writers' batches to cfMems in order,
// carrying the sequence number across batches: the second writer's first
// record gets the sequence number immediately following the first
// writer's last one, exactly as if all of their records had been
// concatenated into one batch. Every non-failed writer is driven through
// one Applier built up front and shared across the whole group, matching
// write_batch.cc's WriteBatchInternal::InsertInto(writers, ...), which
// constructs a single MemTableInserter outside its writer loop; this
// keeps state such as the diagnostic-log throttle alive for the entire
// group instead of resetting per writer. It stops at the first writer
// whose Iterate call fails, leaving that writer's Err set and every
// later writer untouched (their Err stays nil, but nothing in them was
// applied).
//
// A nil Batch, or a writer whose Err is already set from an earlier
// stage (a failed WAL write, say), is skipped without consuming any
// sequence numbers, mirroring the reference engine's
// CallbackFailed() guard.
func InsertIntoGroup(seqNum base.SeqNum, writers []*Writer, cfMems *mem.ColumnFamilyMemTables, opts ApplierOptions) (base.SeqNum, error) {
	applier := NewApplier(seqNum, cfMems, opts)
	for _, w := range writers {
		if w.Batch == nil || w.Err != nil {
			continue
		}
		w.Batch.SetSeqNum(applier.SeqNum())
		if err := w.Batch.Iterate(applier); err != nil {
			w.Err = err
			return applier.SeqNum(), err
		}
	}
	return applier.SeqNum(), nil
}
