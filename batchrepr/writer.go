// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batchrepr

// NewRepr allocates a fresh batch buffer holding just the zeroed header,
// with additional capacity reserved for the payload the caller is about to
// append.
func NewRepr(reservedBytes int) []byte {
	repr := make([]byte, HeaderLen, HeaderLen+reservedBytes)
	return repr
}

// AppendValue appends a Put/Merge-shaped record (tag, optional cf_id, key,
// value) to repr and returns the extended slice.
func AppendValue(repr []byte, kind Kind, cf ColumnFamilyID, key, value []byte) []byte {
	repr = append(repr, byte(kind))
	if kind.IsColumnFamilyForm() {
		repr = PutUvarint32(repr, uint32(cf))
	}
	repr = PutLengthPrefixedBytes(repr, key)
	repr = PutLengthPrefixedBytes(repr, value)
	return repr
}

// AppendDeletion appends a Delete/SingleDelete-shaped record (tag, optional
// cf_id, key) to repr and returns the extended slice.
func AppendDeletion(repr []byte, kind Kind, cf ColumnFamilyID, key []byte) []byte {
	repr = append(repr, byte(kind))
	if kind.IsColumnFamilyForm() {
		repr = PutUvarint32(repr, uint32(cf))
	}
	repr = PutLengthPrefixedBytes(repr, key)
	return repr
}

// AppendLogData appends a LogData record (tag, blob) to repr and returns
// the extended slice. LogData never carries a column family id.
func AppendLogData(repr []byte, blob []byte) []byte {
	repr = append(repr, byte(KindLogData))
	repr = PutLengthPrefixedBytes(repr, blob)
	return repr
}

// ValueRecordLen returns the number of bytes AppendValue would add for the
// given kind, key and value, without performing the append.
func ValueRecordLen(kind Kind, cf ColumnFamilyID, key, value []byte) int {
	n := 1
	if kind.IsColumnFamilyForm() {
		n += PutUvarint32Len(uint32(cf))
	}
	n += PutUvarint32Len(uint32(len(key))) + len(key)
	n += PutUvarint32Len(uint32(len(value))) + len(value)
	return n
}

// DeletionRecordLen returns the number of bytes AppendDeletion would add.
func DeletionRecordLen(kind Kind, cf ColumnFamilyID, key []byte) int {
	n := 1
	if kind.IsColumnFamilyForm() {
		n += PutUvarint32Len(uint32(cf))
	}
	n += PutUvarint32Len(uint32(len(key))) + len(key)
	return n
}

// LogDataRecordLen returns the number of bytes AppendLogData would add.
func LogDataRecordLen(blob []byte) int {
	return 1 + PutUvarint32Len(uint32(len(blob))) + len(blob)
}
