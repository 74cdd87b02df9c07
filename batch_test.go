// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package kvstash

import (
	"testing"

	"github.com/kvstash/kvstash/batchrepr"
	"github.com/kvstash/kvstash/internal/base"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	BaseHandler
	puts    [][2]string
	deletes []string
	singles []string
	merges  [][2]string
	logData [][]byte
}

func (h *recordingHandler) Put(cf batchrepr.ColumnFamilyID, key, value []byte) error {
	h.puts = append(h.puts, [2]string{string(key), string(value)})
	return nil
}

func (h *recordingHandler) Delete(cf batchrepr.ColumnFamilyID, key []byte) error {
	h.deletes = append(h.deletes, string(key))
	return nil
}

func (h *recordingHandler) SingleDelete(cf batchrepr.ColumnFamilyID, key []byte) error {
	h.singles = append(h.singles, string(key))
	return nil
}

func (h *recordingHandler) Merge(cf batchrepr.ColumnFamilyID, key, value []byte) error {
	h.merges = append(h.merges, [2]string{string(key), string(value)})
	return nil
}

func (h *recordingHandler) LogData(blob []byte) error {
	h.logData = append(h.logData, blob)
	return nil
}

func TestBatchPutDeleteMergeRoundTrip(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Delete([]byte("b")))
	require.NoError(t, b.SingleDelete([]byte("c")))
	require.NoError(t, b.Merge([]byte("d"), []byte("2")))
	require.NoError(t, b.PutLogData([]byte("txn-marker")))

	require.Equal(t, uint32(4), b.Count())
	require.True(t, b.HasPut())
	require.True(t, b.HasDelete())
	require.True(t, b.HasSingleDelete())
	require.True(t, b.HasMerge())

	h := &recordingHandler{}
	require.NoError(t, b.Iterate(h))
	require.Equal(t, [][2]string{{"a", "1"}}, h.puts)
	require.Equal(t, []string{"b"}, h.deletes)
	require.Equal(t, []string{"c"}, h.singles)
	require.Equal(t, [][2]string{{"d", "2"}}, h.merges)
	require.Equal(t, [][]byte{[]byte("txn-marker")}, h.logData)
}

func TestBatchColumnFamilyForms(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.PutCF(3, []byte("k"), []byte("v")))
	require.Equal(t, uint32(1), b.Count())

	r := batchrepr.NewReader(b.Repr())
	kind, cf, key, value, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, batchrepr.KindColumnFamilyValue, kind)
	require.Equal(t, batchrepr.ColumnFamilyID(3), cf)
	require.Equal(t, "k", string(key))
	require.Equal(t, "v", string(value))
}

func TestBatchPutPartsConcatenates(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.PutParts(batchrepr.DefaultColumnFamily,
		[][]byte{[]byte("fo"), []byte("o")},
		[][]byte{[]byte("ba"), []byte("r")}))

	h := &recordingHandler{}
	require.NoError(t, b.Iterate(h))
	require.Equal(t, [][2]string{{"foo", "bar"}}, h.puts)
}

func TestBatchDeletePartsConcatenates(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.DeleteParts(batchrepr.DefaultColumnFamily, [][]byte{[]byte("fo"), []byte("o")}))

	h := &recordingHandler{}
	require.NoError(t, b.Iterate(h))
	require.Equal(t, []string{"foo"}, h.deletes)
}

func TestBatchSingleDeletePartsConcatenates(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.SingleDeleteParts(batchrepr.DefaultColumnFamily, [][]byte{[]byte("fo"), []byte("o")}))

	h := &recordingHandler{}
	require.NoError(t, b.Iterate(h))
	require.Equal(t, []string{"foo"}, h.singles)
}

func TestBatchMergePartsConcatenates(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.MergeParts(batchrepr.DefaultColumnFamily,
		[][]byte{[]byte("fo"), []byte("o")},
		[][]byte{[]byte("ba"), []byte("r")}))

	h := &recordingHandler{}
	require.NoError(t, b.Iterate(h))
	require.Equal(t, [][2]string{{"foo", "bar"}}, h.merges)
}

func TestAppendedByteSize(t *testing.T) {
	require.Equal(t, 20, AppendedByteSize(12, 20))
	require.Equal(t, 12, AppendedByteSize(12, 12))
	require.Equal(t, 5, AppendedByteSize(0, 5))
	require.Equal(t, 5, AppendedByteSize(5, 0))
	require.Equal(t, 0, AppendedByteSize(0, 0))
}

func TestBatchSetContentsInPlace(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.Put([]byte("stale"), []byte("v")))
	b.SetSavePoint()

	other := NewBatch(0)
	require.NoError(t, other.Put([]byte("k"), []byte("v")))
	repr := make([]byte, len(other.Repr()))
	copy(repr, other.Repr())

	require.NoError(t, b.SetContents(repr))
	require.True(t, contentFlags(b.flags.Load())&contentDeferred != 0)
	require.True(t, b.HasPut())
	h := &recordingHandler{}
	require.NoError(t, b.Iterate(h))
	require.Equal(t, [][2]string{{"k", "v"}}, h.puts)

	// SetContents doesn't touch the save-point stack, matching the
	// reference engine's own WriteBatchInternal::SetContents.
	require.Len(t, b.savePoints, 1)
}

func TestBatchSetContentsRejectsShortBuffer(t *testing.T) {
	b := NewBatch(0)
	err := b.SetContents([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestBatchEmpty(t *testing.T) {
	b := NewBatch(0)
	require.True(t, b.Empty())
	require.NoError(t, b.Put([]byte("k"), []byte("v")))
	require.False(t, b.Empty())
}

func TestBatchClear(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.Put([]byte("k"), []byte("v")))
	b.SetSeqNum(42)
	b.Clear()
	require.True(t, b.Empty())
	require.Equal(t, uint32(0), b.Count())
	require.Equal(t, base.SeqNum(0), b.SeqNum())
	require.False(t, b.HasPut())
}

func TestBatchSavePointRollback(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	b.SetSavePoint()
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	require.NoError(t, b.Delete([]byte("c")))
	require.Equal(t, uint32(3), b.Count())

	require.NoError(t, b.RollbackToSavePoint())
	require.Equal(t, uint32(1), b.Count())
	require.False(t, b.HasDelete())

	h := &recordingHandler{}
	require.NoError(t, b.Iterate(h))
	require.Equal(t, [][2]string{{"a", "1"}}, h.puts)
}

func TestBatchSavePointRollbackToEmpty(t *testing.T) {
	b := NewBatch(0)
	b.SetSavePoint()
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.RollbackToSavePoint())
	require.True(t, b.Empty())
}

func TestBatchSavePointNoOpWhenNothingAppended(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	b.SetSavePoint()
	require.NoError(t, b.RollbackToSavePoint())
	require.Equal(t, uint32(1), b.Count())
}

func TestBatchRollbackWithoutSavePointFails(t *testing.T) {
	b := NewBatch(0)
	err := b.RollbackToSavePoint()
	require.ErrorIs(t, err, base.ErrNotFound)
}

func TestBatchNestedSavePoints(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	b.SetSavePoint()
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	b.SetSavePoint()
	require.NoError(t, b.Put([]byte("c"), []byte("3")))

	require.NoError(t, b.RollbackToSavePoint())
	require.Equal(t, uint32(2), b.Count())
	require.NoError(t, b.RollbackToSavePoint())
	require.Equal(t, uint32(1), b.Count())
}

func TestBatchIterateDetectsCountMismatch(t *testing.T) {
	b := NewBatch(0)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	batchrepr.SetCount(b.Repr(), 2)

	err := b.Iterate(&recordingHandler{})
	require.Error(t, err)
}

func TestBatchChecksumChangesWithContent(t *testing.T) {
	b1 := NewBatch(0)
	require.NoError(t, b1.Put([]byte("a"), []byte("1")))

	b2 := NewBatch(0)
	require.NoError(t, b2.Put([]byte("a"), []byte("2")))

	require.NotEqual(t, b1.Checksum(), b2.Checksum())

	b3 := b1.Clone()
	require.Equal(t, b1.Checksum(), b3.Checksum())
}

func TestBatchAppend(t *testing.T) {
	b1 := NewBatch(0)
	require.NoError(t, b1.Put([]byte("a"), []byte("1")))

	b2 := NewBatch(0)
	require.NoError(t, b2.Put([]byte("b"), []byte("2")))

	b1.Append(b2, false)
	require.Equal(t, uint32(2), b1.Count())

	h := &recordingHandler{}
	require.NoError(t, b1.Iterate(h))
	require.Equal(t, [][2]string{{"a", "1"}, {"b", "2"}}, h.puts)
}

func TestNewBatchWithContentsRejectsShortBuffer(t *testing.T) {
	_, err := NewBatchWithContents(make([]byte, batchrepr.HeaderLen-1))
	require.Error(t, err)
}

func TestNewBatchWithContentsComputesFlagsLazily(t *testing.T) {
	src := NewBatch(0)
	require.NoError(t, src.Merge([]byte("k"), []byte("v")))

	b, err := NewBatchWithContents(src.Repr())
	require.NoError(t, err)
	require.True(t, b.HasMerge())
	require.False(t, b.HasPut())
}
