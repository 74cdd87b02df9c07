// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mem

import (
	"testing"

	"github.com/kvstash/kvstash/internal/base"
	"github.com/stretchr/testify/require"
)

func TestTableGetSeesNewestVisibleWrite(t *testing.T) {
	table, err := NewTable(DefaultTableSize, 1)
	require.NoError(t, err)

	require.NoError(t, table.Add(1, base.InternalKeyKindSet, []byte("k"), []byte("v1")))
	require.NoError(t, table.Add(2, base.InternalKeyKindSet, []byte("k"), []byte("v2")))

	value, deleted, found := table.Get([]byte("k"), 10)
	require.True(t, found)
	require.False(t, deleted)
	require.Equal(t, "v2", string(value))

	value, deleted, found = table.Get([]byte("k"), 1)
	require.True(t, found)
	require.False(t, deleted)
	require.Equal(t, "v1", string(value))
}

func TestTableGetHonorsDeletion(t *testing.T) {
	table, err := NewTable(DefaultTableSize, 1)
	require.NoError(t, err)

	require.NoError(t, table.Add(1, base.InternalKeyKindSet, []byte("k"), []byte("v1")))
	require.NoError(t, table.Add(2, base.InternalKeyKindDelete, []byte("k"), nil))

	_, deleted, found := table.Get([]byte("k"), 10)
	require.True(t, found)
	require.True(t, deleted)
}

func TestTableGetMissingKey(t *testing.T) {
	table, err := NewTable(DefaultTableSize, 1)
	require.NoError(t, err)
	_, _, found := table.Get([]byte("nope"), 100)
	require.False(t, found)
}

func TestTableCountSuccessiveMergeEntries(t *testing.T) {
	table, err := NewTable(DefaultTableSize, 1)
	require.NoError(t, err)

	require.NoError(t, table.Add(1, base.InternalKeyKindMerge, []byte("k"), []byte("a")))
	require.NoError(t, table.Add(2, base.InternalKeyKindMerge, []byte("k"), []byte("b")))
	require.NoError(t, table.Add(3, base.InternalKeyKindMerge, []byte("k"), []byte("c")))

	require.Equal(t, 3, table.CountSuccessiveMergeEntries([]byte("k")))

	require.NoError(t, table.Add(4, base.InternalKeyKindSet, []byte("k"), []byte("base")))
	require.Equal(t, 0, table.CountSuccessiveMergeEntries([]byte("k")))
}

func TestTableFlushScheduling(t *testing.T) {
	table, err := NewTable(1<<12, 1)
	require.NoError(t, err)

	require.False(t, table.ShouldScheduleFlush(1<<20))

	for i := 0; i < 200 && !table.ShouldScheduleFlush(1<<10); i++ {
		_ = table.Add(base.SeqNum(i), base.InternalKeyKindSet, []byte("key"), []byte("0123456789"))
	}
	require.True(t, table.ShouldScheduleFlush(1<<10))
	require.True(t, table.MarkFlushScheduled())
	require.False(t, table.MarkFlushScheduled())
	require.False(t, table.ShouldScheduleFlush(1<<10))
}
