// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mem

import (
	"sync"

	"github.com/kvstash/kvstash/batchrepr"
)

// FlushScheduler receives flush requests from writers as they notice a
// table has crossed its size threshold. It only records the request; a
// separate background actor is responsible for actually flushing.
type FlushScheduler interface {
	ScheduleFlush(cf batchrepr.ColumnFamilyID)
}

// SimpleFlushScheduler is a FlushScheduler that buffers pending requests in
// memory until a caller drains them with TakeAll. An Applier uses it when
// it is set as the Applier's FlushScheduler (there is no default): a
// single writer thread claims a table's flush via
// Table.MarkFlushScheduled and then hands the id off here so the
// scheduling decision and the actual flush work stay decoupled.
type SimpleFlushScheduler struct {
	mu      sync.Mutex
	pending []batchrepr.ColumnFamilyID
}

// NewSimpleFlushScheduler returns an empty scheduler.
func NewSimpleFlushScheduler() *SimpleFlushScheduler {
	return &SimpleFlushScheduler{}
}

// ScheduleFlush records cf as needing a flush.
func (s *SimpleFlushScheduler) ScheduleFlush(cf batchrepr.ColumnFamilyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, cf)
}

// TakeAll returns and clears the set of column families with a pending
// flush request.
func (s *SimpleFlushScheduler) TakeAll() []batchrepr.ColumnFamilyID {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.pending
	s.pending = nil
	return pending
}
