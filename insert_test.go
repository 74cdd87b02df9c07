// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package kvstash

import (
	"testing"

	"github.com/kvstash/kvstash/internal/base"
	"github.com/stretchr/testify/require"
)

func TestInsertIntoGroupCarriesSequenceAcrossBatches(t *testing.T) {
	cfMems, table := newTestCFMems(t)

	b1 := NewBatch(0)
	require.NoError(t, b1.Put([]byte("a"), []byte("1")))
	require.NoError(t, b1.Put([]byte("b"), []byte("2")))

	b2 := NewBatch(0)
	require.NoError(t, b2.Put([]byte("a"), []byte("overwritten")))

	writers := []*Writer{{Batch: b1}, {Batch: b2}}
	next, err := InsertIntoGroup(0, writers, cfMems, ApplierOptions{})
	require.NoError(t, err)
	require.Equal(t, base.SeqNum(3), next)
	require.Nil(t, writers[0].Err)
	require.Nil(t, writers[1].Err)

	value, _, found := table.Get([]byte("a"), 100)
	require.True(t, found)
	require.Equal(t, "overwritten", string(value))
}

func TestInsertIntoGroupStopsOnFirstFailure(t *testing.T) {
	cfMems, _ := newTestCFMems(t)

	b1 := NewBatch(0)
	require.NoError(t, b1.PutCF(77, []byte("a"), []byte("1"))) // unknown CF -> error

	b2 := NewBatch(0)
	require.NoError(t, b2.Put([]byte("b"), []byte("2")))

	writers := []*Writer{{Batch: b1}, {Batch: b2}}
	_, err := InsertIntoGroup(0, writers, cfMems, ApplierOptions{})
	require.Error(t, err)
	require.Error(t, writers[0].Err)
	require.Nil(t, writers[1].Err)
}

func TestInsertIntoGroupSkipsNilBatches(t *testing.T) {
	cfMems, _ := newTestCFMems(t)

	b := NewBatch(0)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))

	writers := []*Writer{{Batch: nil}, {Batch: b}}
	next, err := InsertIntoGroup(5, writers, cfMems, ApplierOptions{})
	require.NoError(t, err)
	require.Equal(t, base.SeqNum(6), next)
}
