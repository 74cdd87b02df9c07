// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package base holds the small set of primitives shared by every package in
// the write-batch core: sequence numbers, the logging capability, and the
// sentinel errors that batchrepr, the batch container, and the memtable
// applier all need to agree on.
package base

import "github.com/cockroachdb/errors"

// ErrNotFound is returned by RollbackToSavePoint when the save-point stack
// is empty.
var ErrNotFound = errors.New("kvstash: not found")

// ErrInvalidBatch marks an InvalidArgument-class failure: a batch referenced
// a column family the memtable set doesn't recognize and the caller did not
// opt into ignoring missing column families.
var ErrInvalidBatch = errors.New("kvstash: invalid column family in write batch")

// ErrConcurrentWritesUnsupported marks an InvalidArgument-class failure: a
// batch record required exclusive access to the memory-table set (a Merge,
// or a Delete/SingleDelete with FilterDeletes enabled) but the applier was
// configured for concurrent memtable writes, under which only the plain-add
// Put path is legal.
var ErrConcurrentWritesUnsupported = errors.New("kvstash: operation requires exclusive memtable access, applier is in concurrent-writes mode")

// ErrCorruption is the marker every batch decode failure carries, either
// tagged on via MarkCorruptionError or wrapped directly (as
// batchrepr.Reader.Next does). Callers distinguish corruption from other failure
// classes with errors.Is(err, base.ErrCorruption), the same pattern the
// teacher applies in its own error_handler.go.
var ErrCorruption = errors.New("kvstash: corruption")

// MarkCorruptionError wraps err so that errors.Is(result, ErrCorruption)
// reports true, while preserving err's own message and Cause chain.
func MarkCorruptionError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrCorruption)
}

// CorruptionErrorf builds a new corruption error with a formatted reason,
// matching the fixed-string reasons enumerated in the wire format section:
// "malformed WriteBatch (too small)", "bad WriteBatch Put", and so on.
func CorruptionErrorf(format string, args ...interface{}) error {
	return MarkCorruptionError(errors.Newf(format, args...))
}
