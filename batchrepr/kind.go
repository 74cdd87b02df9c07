// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batchrepr

// Kind identifies the tag byte that precedes every record in a batch's
// payload. The numeric values match the surrounding engine's dbformat
// ValueType enum; they are wire-visible and must never be renumbered.
type Kind byte

// The eight record kinds a batch may contain, plus LogData which carries an
// opaque blob rather than a mutation.
const (
	KindDeletion                   Kind = 0x0
	KindValue                      Kind = 0x1
	KindMerge                      Kind = 0x2
	KindLogData                    Kind = 0x3
	KindColumnFamilyDeletion       Kind = 0x4
	KindColumnFamilyValue          Kind = 0x5
	KindColumnFamilyMerge          Kind = 0x6
	KindSingleDeletion             Kind = 0x7
	KindColumnFamilySingleDeletion Kind = 0x8
)

var kindNames = map[Kind]string{
	KindDeletion:                   "DEL",
	KindValue:                      "SET",
	KindMerge:                      "MERGE",
	KindLogData:                    "LOGDATA",
	KindColumnFamilyDeletion:       "DEL_CF",
	KindColumnFamilyValue:          "SET_CF",
	KindColumnFamilyMerge:          "MERGE_CF",
	KindSingleDeletion:             "SINGLEDEL",
	KindColumnFamilySingleDeletion: "SINGLEDEL_CF",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// IsColumnFamilyForm reports whether k is one of the four ColumnFamily*
// variants that carry an explicit cf_id varint after the tag byte.
func (k Kind) IsColumnFamilyForm() bool {
	switch k {
	case KindColumnFamilyValue, KindColumnFamilyDeletion, KindColumnFamilySingleDeletion, KindColumnFamilyMerge:
		return true
	default:
		return false
	}
}

// DefaultForm returns the default-column-family tag equivalent to k. Callers
// use this to canonicalize before comparing kinds irrespective of whether
// cf_id was 0 (encoded in default form) or explicit.
func (k Kind) DefaultForm() Kind {
	switch k {
	case KindColumnFamilyValue:
		return KindValue
	case KindColumnFamilyDeletion:
		return KindDeletion
	case KindColumnFamilySingleDeletion:
		return KindSingleDeletion
	case KindColumnFamilyMerge:
		return KindMerge
	default:
		return k
	}
}

// HasValue reports whether records of kind k carry a value payload in
// addition to a key.
func (k Kind) HasValue() bool {
	switch k {
	case KindValue, KindColumnFamilyValue, KindMerge, KindColumnFamilyMerge:
		return true
	default:
		return false
	}
}
