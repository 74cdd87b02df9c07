// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mem

import (
	"sync"

	"github.com/cockroachdb/swiss"
	"github.com/kvstash/kvstash/batchrepr"
)

// ColumnFamilyMemTables maps a batch's column family ids to the live
// Table each one currently writes into. It is the applier's only way of
// resolving "column family 7" into an actual memtable, mirroring the
// abstract column-family lookup the reference engine's MemTableInserter
// goes through rather than hard-wiring a single memtable.
type ColumnFamilyMemTables struct {
	mu     sync.RWMutex
	tables *swiss.Map[batchrepr.ColumnFamilyID, *Table]
}

// NewColumnFamilyMemTables creates an empty set with the default column
// family already present, pointed at table.
func NewColumnFamilyMemTables(table *Table) *ColumnFamilyMemTables {
	s := &ColumnFamilyMemTables{
		tables: swiss.New[batchrepr.ColumnFamilyID, *Table](8),
	}
	s.tables.Put(batchrepr.DefaultColumnFamily, table)
	return s
}

// Seek looks up the table currently backing cf. found is false if no
// column family with that id is currently registered (never Set, or
// since Dropped).
func (s *ColumnFamilyMemTables) Seek(cf batchrepr.ColumnFamilyID) (table *Table, found bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables.Get(cf)
}

// Set installs table as the active memtable for column family cf,
// replacing whatever was there (for example after a flush swaps in a
// fresh, empty table).
func (s *ColumnFamilyMemTables) Set(cf batchrepr.ColumnFamilyID, table *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables.Put(cf, table)
}

// Drop removes cf from the set, for example when a column family is
// dropped from the database entirely.
func (s *ColumnFamilyMemTables) Drop(cf batchrepr.ColumnFamilyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables.Delete(cf)
}

// Len returns the number of column families currently registered.
func (s *ColumnFamilyMemTables) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables.Len()
}
