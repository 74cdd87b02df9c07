// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mem

import (
	"testing"

	"github.com/kvstash/kvstash/batchrepr"
	"github.com/stretchr/testify/require"
)

func TestColumnFamilyMemTablesSeek(t *testing.T) {
	defaultTable, err := NewTable(DefaultTableSize, 1)
	require.NoError(t, err)
	set := NewColumnFamilyMemTables(defaultTable)

	table, found := set.Seek(batchrepr.DefaultColumnFamily)
	require.True(t, found)
	require.Same(t, defaultTable, table)

	_, found = set.Seek(batchrepr.ColumnFamilyID(9))
	require.False(t, found)

	other, err := NewTable(DefaultTableSize, 2)
	require.NoError(t, err)
	set.Set(batchrepr.ColumnFamilyID(9), other)
	table, found = set.Seek(batchrepr.ColumnFamilyID(9))
	require.True(t, found)
	require.Same(t, other, table)
	require.Equal(t, 2, set.Len())

	set.Drop(batchrepr.ColumnFamilyID(9))
	_, found = set.Seek(batchrepr.ColumnFamilyID(9))
	require.False(t, found)
}
