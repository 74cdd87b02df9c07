// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package kvstash implements the write-batch core of an LSM-tree storage
// engine: a Batch accumulates a group of Put/Delete/SingleDelete/Merge
// operations into one contiguous, replayable byte buffer, and InsertInto
// applies that buffer to a set of in-memory tables sequence number by
// sequence number.
package kvstash

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/kvstash/kvstash/batchrepr"
	"github.com/kvstash/kvstash/errors"
	"github.com/kvstash/kvstash/internal/base"
)

// initialReprSize is how much payload capacity a zero-hint Batch starts
// with, matching the doubling-growth strategy the reference container
// uses for its own backing buffer.
const initialReprSize = 1 << 10

// maxRetainedReprSize bounds how large a Batch's backing buffer is allowed
// to remain after Clear(); larger buffers are dropped instead of reused so
// one enormous batch doesn't pin memory for the rest of a process's life.
const maxRetainedReprSize = 1 << 20

// savePoint captures everything RollbackToSavePoint needs to undo:
// where the payload ended, how many records had been counted, and what
// the content-flags cache looked like at that point.
type savePoint struct {
	size  int
	count uint32
	flags contentFlags
}

// Batch accumulates a sequence of writes into a single contiguous byte
// buffer in the exact wire format batchrepr reads and writes. It is not
// safe for concurrent use by multiple goroutines. The one exception is
// flags: once a batch stops being mutated, concurrent readers may call
// HasPut/HasDelete/HasSingleDelete/HasMerge on it from multiple
// goroutines at once (a memtable inserter and a WAL writer inspecting
// the same queued batch, for instance), so the content-flags cache is
// held in a single atomic word and touched with relaxed loads/stores
// rather than a plain field.
type Batch struct {
	repr       []byte
	savePoints []savePoint
	flags      atomic.Uint32
}

// NewBatch returns an empty Batch with reservedBytes of spare payload
// capacity preallocated.
func NewBatch(reservedBytes int) *Batch {
	if reservedBytes <= 0 {
		reservedBytes = initialReprSize
	}
	return &Batch{repr: batchrepr.NewRepr(reservedBytes)}
}

// NewBatchWithContents wraps an existing, already-encoded batch buffer
// (for example one just read back off a write-ahead log) without copying
// it. The content-flags cache starts deferred, since repr wasn't built up
// through this Batch's own Put/Delete/Merge calls.
func NewBatchWithContents(repr []byte) (*Batch, error) {
	b := &Batch{}
	if err := b.SetContents(repr); err != nil {
		return nil, err
	}
	return b, nil
}

// SetContents replaces the batch's entire buffer with repr in place,
// adopting it verbatim (it must be at least batchrepr.HeaderLen bytes) and
// marking the content-flags cache deferred. It's the engine-private
// counterpart to NewBatchWithContents: a live *Batch handed a freshly read
// WAL record reuses SetContents instead of being reconstructed, so its
// identity (and any save points already pushed on it) survives. It does
// not touch the save-point stack, matching the reference engine's own
// WriteBatchInternal::SetContents.
func (b *Batch) SetContents(repr []byte) error {
	if len(repr) < batchrepr.HeaderLen {
		return base.CorruptionErrorf("malformed WriteBatch (too small)")
	}
	b.repr = repr
	b.flags.Store(uint32(contentDeferred))
	return nil
}

// Repr returns the batch's raw wire-format bytes: the 12-byte header
// followed by its payload. The returned slice aliases the Batch's
// internal buffer and must not be retained across a call that mutates the
// Batch.
func (b *Batch) Repr() []byte {
	return b.repr
}

// Count returns the number of counted records (everything but LogData) in
// the batch.
func (b *Batch) Count() uint32 {
	return batchrepr.ReadCount(b.repr)
}

// SeqNum returns the sequence number stored in the batch's header: the
// number its first record will be assigned once the batch is applied.
func (b *Batch) SeqNum() base.SeqNum {
	return batchrepr.ReadSeqNum(b.repr)
}

// SetSeqNum overwrites the batch's header sequence number. The write
// pipeline calls this once, right before InsertInto, to assign the range
// of sequence numbers this batch will consume.
func (b *Batch) SetSeqNum(seqNum base.SeqNum) {
	batchrepr.SetSeqNum(b.repr, seqNum)
}

// Empty reports whether the batch has no records at all, counted or not.
func (b *Batch) Empty() bool {
	return batchrepr.IsEmpty(b.repr)
}

// AppendedByteSize returns the size of the buffer that results from
// splicing two encoded batch buffers together the way Append does: the two
// headers overlap into one, so the combined size is a+b-batchrepr.HeaderLen
// when both sizes are non-zero, else it's simply a+b (a zero-size operand
// has no second header to fold away).
// Callers use this to pre-size a destination buffer before an Append.
func AppendedByteSize(a, b int) int {
	if a > 0 && b > 0 {
		return a + b - batchrepr.HeaderLen
	}
	return a + b
}

func (b *Batch) incrementCount() {
	batchrepr.SetCount(b.repr, b.Count()+1)
}

// deferFlags marks the content-flags cache stale after a mutation.
func (b *Batch) deferFlags() {
	b.flags.Store(uint32(contentDeferred))
}

func columnFamilyKind(cf batchrepr.ColumnFamilyID, defaultKind, cfKind batchrepr.Kind) batchrepr.Kind {
	if cf == batchrepr.DefaultColumnFamily {
		return defaultKind
	}
	return cfKind
}

// Put appends a Put record for key/value in the default column family.
func (b *Batch) Put(key, value []byte) error {
	return b.PutCF(batchrepr.DefaultColumnFamily, key, value)
}

// PutCF appends a Put record targeting column family cf.
func (b *Batch) PutCF(cf batchrepr.ColumnFamilyID, key, value []byte) error {
	kind := columnFamilyKind(cf, batchrepr.KindValue, batchrepr.KindColumnFamilyValue)
	b.repr = batchrepr.AppendValue(b.repr, kind, cf, key, value)
	b.incrementCount()
	b.deferFlags()
	return nil
}

// PutParts is the gather-write form of PutCF: keyParts and valueParts are
// each concatenated before being written, letting a caller assemble a key
// or value out of several non-contiguous buffers without an extra copy at
// the call site.
func (b *Batch) PutParts(cf batchrepr.ColumnFamilyID, keyParts, valueParts [][]byte) error {
	return b.PutCF(cf, concatParts(keyParts), concatParts(valueParts))
}

// Delete appends a Delete record for key in the default column family.
func (b *Batch) Delete(key []byte) error {
	return b.DeleteCF(batchrepr.DefaultColumnFamily, key)
}

// DeleteCF appends a Delete record targeting column family cf.
func (b *Batch) DeleteCF(cf batchrepr.ColumnFamilyID, key []byte) error {
	kind := columnFamilyKind(cf, batchrepr.KindDeletion, batchrepr.KindColumnFamilyDeletion)
	b.repr = batchrepr.AppendDeletion(b.repr, kind, cf, key)
	b.incrementCount()
	b.deferFlags()
	return nil
}

// DeleteParts is the gather-write form of DeleteCF: keyParts is
// concatenated before being written, letting a caller assemble a key out
// of several non-contiguous buffers without an extra copy at the call
// site.
func (b *Batch) DeleteParts(cf batchrepr.ColumnFamilyID, keyParts [][]byte) error {
	return b.DeleteCF(cf, concatParts(keyParts))
}

// SingleDelete appends a SingleDelete record for key in the default column
// family. SingleDelete requires that key was written by exactly one prior
// Put and never overwritten; the caller, not the Batch, is responsible for
// honoring that constraint.
func (b *Batch) SingleDelete(key []byte) error {
	return b.SingleDeleteCF(batchrepr.DefaultColumnFamily, key)
}

// SingleDeleteCF appends a SingleDelete record targeting column family cf.
func (b *Batch) SingleDeleteCF(cf batchrepr.ColumnFamilyID, key []byte) error {
	kind := columnFamilyKind(cf, batchrepr.KindSingleDeletion, batchrepr.KindColumnFamilySingleDeletion)
	b.repr = batchrepr.AppendDeletion(b.repr, kind, cf, key)
	b.incrementCount()
	b.deferFlags()
	return nil
}

// SingleDeleteParts is the gather-write form of SingleDeleteCF: keyParts is
// concatenated before being written, letting a caller assemble a key out
// of several non-contiguous buffers without an extra copy at the call
// site.
func (b *Batch) SingleDeleteParts(cf batchrepr.ColumnFamilyID, keyParts [][]byte) error {
	return b.SingleDeleteCF(cf, concatParts(keyParts))
}

// Merge appends a Merge record for key/operand in the default column
// family.
func (b *Batch) Merge(key, operand []byte) error {
	return b.MergeCF(batchrepr.DefaultColumnFamily, key, operand)
}

// MergeCF appends a Merge record targeting column family cf.
func (b *Batch) MergeCF(cf batchrepr.ColumnFamilyID, key, operand []byte) error {
	kind := columnFamilyKind(cf, batchrepr.KindMerge, batchrepr.KindColumnFamilyMerge)
	b.repr = batchrepr.AppendValue(b.repr, kind, cf, key, operand)
	b.incrementCount()
	b.deferFlags()
	return nil
}

// MergeParts is the gather-write form of MergeCF: keyParts and
// operandParts are each concatenated before being written, letting a
// caller assemble a key or operand out of several non-contiguous buffers
// without an extra copy at the call site.
func (b *Batch) MergeParts(cf batchrepr.ColumnFamilyID, keyParts, operandParts [][]byte) error {
	return b.MergeCF(cf, concatParts(keyParts), concatParts(operandParts))
}

// PutLogData appends an opaque LogData record. LogData records are not
// counted and never targeted at a column family; they exist purely to
// carry transaction metadata alongside the mutations that make up the
// same batch.
func (b *Batch) PutLogData(blob []byte) error {
	b.repr = batchrepr.AppendLogData(b.repr, blob)
	// LogData does not increment count and does not change which of
	// Put/Delete/SingleDelete/Merge the batch contains.
	return nil
}

// contentFlagsUncached recomputes and caches the content flags, clearing
// the deferred bit.
func (b *Batch) contentFlagsUncached() contentFlags {
	flags, err := computeContentFlags(b.repr)
	if err != nil {
		// A Batch's own repr is always well-formed because every mutator
		// goes through batchrepr's own encoders; a corrupt buffer here
		// can only mean NewBatchWithContents or SetContents was handed
		// bad bytes.
		panic(errors.NewInvariantErrorf("batch content is corrupt: %v", err))
	}
	b.flags.Store(uint32(flags))
	return flags
}

func (b *Batch) contentFlagsCached() contentFlags {
	flags := contentFlags(b.flags.Load())
	if flags&contentDeferred != 0 {
		return b.contentFlagsUncached()
	}
	return flags
}

// HasPut reports whether the batch contains at least one Put record.
func (b *Batch) HasPut() bool { return b.contentFlagsCached()&contentHasPut != 0 }

// HasDelete reports whether the batch contains at least one Delete record.
func (b *Batch) HasDelete() bool { return b.contentFlagsCached()&contentHasDelete != 0 }

// HasSingleDelete reports whether the batch contains at least one
// SingleDelete record.
func (b *Batch) HasSingleDelete() bool { return b.contentFlagsCached()&contentHasSingleDelete != 0 }

// HasMerge reports whether the batch contains at least one Merge record.
func (b *Batch) HasMerge() bool { return b.contentFlagsCached()&contentHasMerge != 0 }

// Clear resets the batch to empty, discarding its save-point stack. If the
// backing buffer has grown past maxRetainedReprSize it is replaced with a
// fresh, smaller one instead of being reused.
func (b *Batch) Clear() {
	if cap(b.repr) > maxRetainedReprSize {
		b.repr = batchrepr.NewRepr(initialReprSize)
	} else {
		b.repr = b.repr[:batchrepr.HeaderLen]
		batchrepr.SetSeqNum(b.repr, 0)
		batchrepr.SetCount(b.repr, 0)
	}
	b.savePoints = b.savePoints[:0]
	b.flags.Store(0)
}

// SetSavePoint pushes the batch's current size, count and content-flags
// state onto its save-point stack.
func (b *Batch) SetSavePoint() {
	b.savePoints = append(b.savePoints, savePoint{
		size:  len(b.repr),
		count: b.Count(),
		flags: b.contentFlagsCached(),
	})
}

// RollbackToSavePoint discards every record appended since the most
// recent SetSavePoint call, restoring the batch's count and content-flags
// cache to what they were at that point. It returns base.ErrNotFound if no
// save point is pending.
func (b *Batch) RollbackToSavePoint() error {
	if len(b.savePoints) == 0 {
		return base.ErrNotFound
	}
	sp := b.savePoints[len(b.savePoints)-1]
	b.savePoints = b.savePoints[:len(b.savePoints)-1]

	switch {
	case sp.size == len(b.repr):
		// Nothing was appended since the save point; nothing to undo.
	case sp.size == batchrepr.HeaderLen:
		// The save point was taken before the batch had ever been
		// written to; rolling back to it is the same as clearing.
		b.Clear()
		return nil
	default:
		b.repr = b.repr[:sp.size]
		batchrepr.SetCount(b.repr, sp.count)
		b.flags.Store(uint32(sp.flags))
	}
	return nil
}

// PopSavePoint discards the most recent save point without rolling back to
// it, the way a caller does once it's confident it won't need to undo any
// further.
func (b *Batch) PopSavePoint() error {
	if len(b.savePoints) == 0 {
		return base.ErrNotFound
	}
	b.savePoints = b.savePoints[:len(b.savePoints)-1]
	return nil
}

// Iterate walks every record in the batch in order, invoking the matching
// Handler callback for each. It stops at the first callback error, or as
// soon as handler.Continue() returns false (without error). When it walks
// the whole buffer, it returns an error if the number of counted records
// encountered doesn't match the header's count (a sign the buffer was
// truncated or hand-edited).
func (b *Batch) Iterate(handler Handler) error {
	r := batchrepr.NewReader(b.repr)
	var found uint32
	stopped := false
	for {
		kind, cf, key, value, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		var callbackErr error
		switch kind.DefaultForm() {
		case batchrepr.KindValue:
			found++
			callbackErr = handler.Put(cf, key, value)
		case batchrepr.KindDeletion:
			found++
			callbackErr = handler.Delete(cf, key)
		case batchrepr.KindSingleDeletion:
			found++
			callbackErr = handler.SingleDelete(cf, key)
		case batchrepr.KindMerge:
			found++
			callbackErr = handler.Merge(cf, key, value)
		case batchrepr.KindLogData:
			callbackErr = handler.LogData(value)
		}
		if callbackErr != nil {
			return callbackErr
		}
		if !handler.Continue() {
			stopped = true
			break
		}
	}
	if !stopped && found != b.Count() {
		return base.CorruptionErrorf("WriteBatch has wrong count: %d found, %d expected", found, b.Count())
	}
	return nil
}

// Checksum returns an xxhash64 digest of the batch's raw bytes, useful for
// comparing two batches or verifying one wasn't corrupted in transit
// between processes.
func (b *Batch) Checksum() uint64 {
	return xxhash.Sum64(b.repr)
}

// Clone returns a deep copy of the batch, including an independent copy of
// its save-point stack.
func (b *Batch) Clone() *Batch {
	repr := make([]byte, len(b.repr))
	copy(repr, b.repr)
	savePoints := make([]savePoint, len(b.savePoints))
	copy(savePoints, b.savePoints)
	clone := &Batch{repr: repr, savePoints: savePoints}
	clone.flags.Store(b.flags.Load())
	return clone
}

// Append copies every record from other onto the end of b, as if each had
// been appended to b directly. It does not touch other's save points, and
// leaves other unmodified. b keeps its own header sequence number, except
// when adoptSeqNum is true and b has no records yet: then b's sequence
// number is set to other's.
func (b *Batch) Append(other *Batch, adoptSeqNum bool) {
	if adoptSeqNum && b.Empty() {
		b.SetSeqNum(other.SeqNum())
	}
	b.repr = append(b.repr, other.repr[batchrepr.HeaderLen:]...)
	batchrepr.SetCount(b.repr, b.Count()+other.Count())
	b.deferFlags()
}

func concatParts(parts [][]byte) []byte {
	if len(parts) == 1 {
		return parts[0]
	}
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
