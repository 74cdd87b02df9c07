// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batchrepr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvstash/kvstash/internal/base"
)

func buildRepr(t *testing.T, seqNum base.SeqNum, appends func(repr []byte) []byte) []byte {
	t.Helper()
	repr := NewRepr(64)
	repr = appends(repr)
	SetSeqNum(repr, seqNum)
	return repr
}

func TestReaderDefaultColumnFamily(t *testing.T) {
	repr := buildRepr(t, 7, func(repr []byte) []byte {
		repr = AppendValue(repr, KindValue, DefaultColumnFamily, []byte("foo"), []byte("bar"))
		repr = AppendDeletion(repr, KindDeletion, DefaultColumnFamily, []byte("baz"))
		return repr
	})
	SetCount(repr, 2)

	r := NewReader(repr)

	kind, cf, key, value, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KindValue, kind)
	require.Equal(t, DefaultColumnFamily, cf)
	require.Equal(t, "foo", string(key))
	require.Equal(t, "bar", string(value))

	kind, cf, key, _, ok, err = r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KindDeletion, kind)
	require.Equal(t, DefaultColumnFamily, cf)
	require.Equal(t, "baz", string(key))

	_, _, _, _, ok, err = r.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, r.Done())
}

func TestReaderColumnFamilyForms(t *testing.T) {
	repr := buildRepr(t, 0, func(repr []byte) []byte {
		repr = AppendValue(repr, KindColumnFamilyValue, ColumnFamilyID(5), []byte("k"), []byte("v"))
		repr = AppendDeletion(repr, KindColumnFamilySingleDeletion, ColumnFamilyID(9), []byte("k2"))
		repr = AppendValue(repr, KindColumnFamilyMerge, ColumnFamilyID(9), []byte("k3"), []byte("delta"))
		return repr
	})
	SetCount(repr, 3)

	r := NewReader(repr)

	kind, cf, key, value, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KindColumnFamilyValue, kind)
	require.Equal(t, ColumnFamilyID(5), cf)
	require.Equal(t, "k", string(key))
	require.Equal(t, "v", string(value))
	require.Equal(t, KindValue, kind.DefaultForm())

	kind, cf, key, _, ok, err = r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KindColumnFamilySingleDeletion, kind)
	require.Equal(t, ColumnFamilyID(9), cf)
	require.Equal(t, "k2", string(key))

	kind, cf, key, value, ok, err = r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KindColumnFamilyMerge, kind)
	require.Equal(t, ColumnFamilyID(9), cf)
	require.Equal(t, "k3", string(key))
	require.Equal(t, "delta", string(value))
}

func TestReaderLogData(t *testing.T) {
	repr := buildRepr(t, 0, func(repr []byte) []byte {
		return AppendLogData(repr, []byte("transaction-marker"))
	})
	// LogData is not counted in the header's record count.
	SetCount(repr, 0)

	r := NewReader(repr)
	kind, cf, _, value, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KindLogData, kind)
	require.Equal(t, DefaultColumnFamily, cf)
	require.Equal(t, "transaction-marker", string(value))
}

func TestReaderCorruptTruncatedRecord(t *testing.T) {
	repr := NewRepr(0)
	repr = append(repr, byte(KindValue))
	repr = PutLengthPrefixedBytes(repr, []byte("k"))
	// Missing the value's length-prefixed bytes entirely.
	SetCount(repr, 1)

	r := NewReader(repr)
	_, _, _, _, ok, err := r.Next()
	require.False(t, ok)
	require.Error(t, err)
	require.ErrorIs(t, err, base.ErrCorruption)
	require.Contains(t, err.Error(), "bad WriteBatch Put/Merge")
}

func TestReaderCorruptUnknownTag(t *testing.T) {
	repr := NewRepr(0)
	repr = append(repr, 0x7f)
	SetCount(repr, 1)

	r := NewReader(repr)
	_, _, _, _, ok, err := r.Next()
	require.False(t, ok)
	require.Error(t, err)
	require.ErrorIs(t, err, base.ErrCorruption)
	require.Contains(t, err.Error(), "unknown WriteBatch tag")
}

func TestHasValueMatchesRecordShape(t *testing.T) {
	shapes := []struct {
		kind     Kind
		hasValue bool
	}{
		{KindValue, true},
		{KindColumnFamilyValue, true},
		{KindMerge, true},
		{KindColumnFamilyMerge, true},
		{KindDeletion, false},
		{KindColumnFamilyDeletion, false},
		{KindSingleDeletion, false},
		{KindColumnFamilySingleDeletion, false},
		{KindLogData, false},
	}
	for _, s := range shapes {
		require.Equal(t, s.hasValue, s.kind.HasValue(), fmt.Sprintf("kind=%s", s.kind))
	}
}
