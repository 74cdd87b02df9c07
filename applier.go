// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package kvstash

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kvstash/kvstash/batchrepr"
	"github.com/kvstash/kvstash/internal/base"
	"github.com/kvstash/kvstash/mem"
)

// MergeOperator folds a new operand into whatever value (if any) already
// sits under key. It's the same shape the reference engine's
// AssociativeMergeOperator interface has: it never needs to see the whole
// operand chain, only the most recently folded result.
type MergeOperator interface {
	Merge(key, existingValue, operand []byte) (result []byte, err error)
}

// ApplierOptions configures an Applier's behavior. All fields are
// optional; the zero value is a strict, unthrottled, deletion-eager
// applier suitable for tests.
type ApplierOptions struct {
	// IgnoreMissingColumnFamilies, when true, turns a batch record that
	// targets an unregistered column family into a silent skip instead
	// of base.ErrInvalidBatch. Recovery from a WAL predating a dropped
	// column family sets this.
	IgnoreMissingColumnFamilies bool

	// LogNumber is the WAL log number the batch being applied was read
	// from. Zero means "not a recovery replay": every table is
	// considered current regardless of its own LogNumber. During
	// recovery, a table whose LogNumber is greater than this is treated
	// as already containing this record's effect and the record is
	// skipped instead of reapplied.
	LogNumber uint64

	// FilterDeletes enables a bloom-filter existence pre-check before a
	// Delete or SingleDelete is written: if the target table's filter
	// says the key definitely isn't present, the delete is dropped
	// instead of adding a tombstone nothing will ever shadow.
	FilterDeletes bool

	// MergeOperator folds successive Merge operands together once
	// MaxSuccessiveMerges consecutive unfolded operands have
	// accumulated for the same key. A nil operator disables folding
	// entirely; every Merge is appended as its own record.
	MergeOperator MergeOperator

	// MaxSuccessiveMerges is the number of consecutive Merge records for
	// the same key an Applier will let build up before attempting to
	// fold them via MergeOperator. Zero disables folding.
	MaxSuccessiveMerges int

	// FlushThreshold is the approximate in-memory size, in bytes, at
	// which a table is offered up to FlushScheduler. Zero disables
	// flush scheduling.
	FlushThreshold uint32

	// FlushScheduler receives the column family id of any table that
	// crosses FlushThreshold during this apply.
	FlushScheduler mem.FlushScheduler

	// Stats, if non-nil, is updated with counts of keys written, keys
	// filtered, and merge folds/failures.
	Stats *Statistics

	// Logger receives a diagnostic line every time a missing column
	// family is silently skipped, throttled so a long recovery replay
	// against a stale WAL doesn't spam it once per record.
	Logger base.Logger

	// ConcurrentMemtableWrites indicates the memory-table set this
	// Applier was handed is a per-thread clone being written to
	// concurrently by other Appliers. Under this mode only the plain-add
	// Put path is legal: Merge and a filter-checked Delete/SingleDelete
	// both need exclusive access to the table they read from before
	// writing, so both fail with base.ErrConcurrentWritesUnsupported
	// instead of running.
	ConcurrentMemtableWrites bool
}

// Applier applies a Batch's records to a set of live memtables, assigning
// each counted record the next sequence number in order. It implements
// Handler and is meant to be driven by Batch.Iterate.
type Applier struct {
	seqNum  base.SeqNum
	cfMems  *mem.ColumnFamilyMemTables
	opts    ApplierOptions
	limiter *diagnosticLimiter
}

// NewApplier returns an Applier that will assign sequence numbers starting
// at seqNum, applying records into cfMems.
func NewApplier(seqNum base.SeqNum, cfMems *mem.ColumnFamilyMemTables, opts ApplierOptions) *Applier {
	a := &Applier{seqNum: seqNum, cfMems: cfMems, opts: opts}
	if opts.Logger != nil {
		a.limiter = newDiagnosticLimiter(opts.Logger)
	}
	return a
}

// SeqNum returns the sequence number the next record will be assigned.
// After InsertInto returns, this is the first sequence number *not*
// consumed by the batch just applied.
func (a *Applier) SeqNum() base.SeqNum {
	return a.seqNum
}

func (a *Applier) nextSeqNum() base.SeqNum {
	seqNum := a.seqNum
	a.seqNum++
	return seqNum
}

// seekResult carries seekToColumnFamily's outcome without needing three
// separate output parameters at every call site.
type seekResult struct {
	table *mem.Table
	skip  bool
}

func (a *Applier) seekToColumnFamily(cf batchrepr.ColumnFamilyID) (seekResult, error) {
	table, found := a.cfMems.Seek(cf)
	if !found {
		if a.opts.IgnoreMissingColumnFamilies {
			if a.limiter != nil {
				a.limiter.logf("skipping record for unknown column family %d", cf)
			}
			return seekResult{skip: true}, nil
		}
		return seekResult{}, base.ErrInvalidBatch
	}
	if a.opts.LogNumber != 0 && table.LogNumber() > a.opts.LogNumber {
		// This table already reflects everything up to a later log than
		// the one being replayed; reapplying would double-count writes.
		return seekResult{skip: true}, nil
	}
	return seekResult{table: table}, nil
}

func (a *Applier) checkFlush(cf batchrepr.ColumnFamilyID, table *mem.Table) {
	if a.opts.FlushThreshold == 0 || a.opts.FlushScheduler == nil {
		return
	}
	if table.ShouldScheduleFlush(a.opts.FlushThreshold) && table.MarkFlushScheduled() {
		a.opts.FlushScheduler.ScheduleFlush(cf)
	}
}

// Put implements Handler.
func (a *Applier) Put(cf batchrepr.ColumnFamilyID, key, value []byte) error {
	seqNum := a.nextSeqNum()
	res, err := a.seekToColumnFamily(cf)
	if err != nil {
		return err
	}
	if res.skip {
		return nil
	}
	if err := res.table.Add(seqNum, base.InternalKeyKindSet, key, value); err != nil {
		return err
	}
	if a.opts.Stats != nil {
		a.opts.Stats.KeysWritten.Inc()
	}
	a.checkFlush(cf, res.table)
	return nil
}

// Delete implements Handler.
func (a *Applier) Delete(cf batchrepr.ColumnFamilyID, key []byte) error {
	return a.deleteImpl(cf, key, base.InternalKeyKindDelete)
}

// SingleDelete implements Handler.
func (a *Applier) SingleDelete(cf batchrepr.ColumnFamilyID, key []byte) error {
	return a.deleteImpl(cf, key, base.InternalKeyKindSingleDelete)
}

func (a *Applier) deleteImpl(cf batchrepr.ColumnFamilyID, key []byte, kind base.InternalKeyKind) error {
	seqNum := a.nextSeqNum()
	res, err := a.seekToColumnFamily(cf)
	if err != nil {
		return err
	}
	if res.skip {
		return nil
	}
	if a.opts.FilterDeletes && a.opts.ConcurrentMemtableWrites {
		return base.ErrConcurrentWritesUnsupported
	}
	if a.opts.FilterDeletes && !res.table.KeyMayExist(key) {
		if a.opts.Stats != nil {
			a.opts.Stats.DeletesFiltered.Inc()
		}
		return nil
	}
	if err := res.table.Add(seqNum, kind, key, nil); err != nil {
		return err
	}
	if a.opts.Stats != nil {
		a.opts.Stats.KeysWritten.Inc()
	}
	a.checkFlush(cf, res.table)
	return nil
}

// timedMerge invokes the configured MergeOperator, recording how long it
// took in Stats.MergeLatency when statistics are enabled.
func (a *Applier) timedMerge(key, existingValue, operand []byte) ([]byte, error) {
	if a.opts.Stats != nil {
		timer := prometheus.NewTimer(a.opts.Stats.MergeLatency)
		defer timer.ObserveDuration()
	}
	return a.opts.MergeOperator.Merge(key, existingValue, operand)
}

// Merge implements Handler.
func (a *Applier) Merge(cf batchrepr.ColumnFamilyID, key, operand []byte) error {
	seqNum := a.nextSeqNum()
	res, err := a.seekToColumnFamily(cf)
	if err != nil {
		return err
	}
	if res.skip {
		return nil
	}
	if a.opts.ConcurrentMemtableWrites {
		return base.ErrConcurrentWritesUnsupported
	}

	if a.opts.MergeOperator != nil && a.opts.MaxSuccessiveMerges > 0 {
		if res.table.CountSuccessiveMergeEntries(key) >= a.opts.MaxSuccessiveMerges {
			existing, deleted, found := res.table.Get(key, seqNum)
			if found && !deleted {
				merged, mergeErr := a.timedMerge(key, existing, operand)
				if mergeErr == nil {
					if err := res.table.Add(seqNum, base.InternalKeyKindSet, key, merged); err != nil {
						return err
					}
					if a.opts.Stats != nil {
						a.opts.Stats.MergesFolded.Inc()
					}
					a.checkFlush(cf, res.table)
					return nil
				}
				// A merge operator is allowed to fail (e.g. a codec
				// mismatch between operands); fall through and append
				// the operand unfolded rather than losing the write.
				if a.opts.Stats != nil {
					a.opts.Stats.MergeFailures.Inc()
				}
			}
		}
	}

	if err := res.table.Add(seqNum, base.InternalKeyKindMerge, key, operand); err != nil {
		return err
	}
	if a.opts.Stats != nil {
		a.opts.Stats.KeysWritten.Inc()
	}
	a.checkFlush(cf, res.table)
	return nil
}

// LogData implements Handler. LogData records don't target a memtable and
// don't consume a sequence number.
func (a *Applier) LogData(blob []byte) error {
	return nil
}

// Continue implements Handler; an Applier never stops early on its own.
func (a *Applier) Continue() bool {
	return true
}
