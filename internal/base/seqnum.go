// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "fmt"

// SeqNum is the 64-bit sequence number assigned to a single write-batch
// record. It is a WAL-position proxy: every record in a batch consumes
// exactly one, in buffer order, independent of whether applying that record
// actually mutated a memtable.
type SeqNum uint64

// SeqNumZero is the sequence number stored in a batch's header before the
// write pipeline assigns it a real one.
const SeqNumZero SeqNum = 0

// String implements fmt.Stringer.
func (s SeqNum) String() string {
	return fmt.Sprintf("%d", uint64(s))
}
