// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"bytes"
	"encoding/binary"
)

// InternalKeyKind mirrors the wire-visible record kinds a memtable entry
// can carry; it's a narrower, memtable-local echo of batchrepr.Kind kept
// here so internal/base doesn't need to import batchrepr.
type InternalKeyKind uint8

// The subset of kinds a memtable actually stores as distinct entries.
const (
	InternalKeyKindDelete       InternalKeyKind = 0
	InternalKeyKindSet          InternalKeyKind = 1
	InternalKeyKindMerge        InternalKeyKind = 2
	InternalKeyKindSingleDelete InternalKeyKind = 7
	InternalKeyKindMax          InternalKeyKind = 1<<8 - 1
)

// InternalKey is the (user key, sequence number, kind) triple a memtable
// orders entries by. Two internal keys with the same user key sort by
// descending sequence number so the newest write for a key is always
// found first during a forward scan.
type InternalKey struct {
	UserKey []byte
	Trailer uint64
}

// MakeTrailer packs a sequence number and a kind into the single uint64
// used as an internal key's sort suffix: the high 56 bits are the sequence
// number, the low 8 the kind.
func MakeTrailer(seqNum SeqNum, kind InternalKeyKind) uint64 {
	return uint64(seqNum)<<8 | uint64(kind)
}

// MakeInternalKey builds an InternalKey from its parts.
func MakeInternalKey(userKey []byte, seqNum SeqNum, kind InternalKeyKind) InternalKey {
	return InternalKey{UserKey: userKey, Trailer: MakeTrailer(seqNum, kind)}
}

// SeqNum extracts the sequence number from the key's trailer.
func (k InternalKey) SeqNum() SeqNum {
	return SeqNum(k.Trailer >> 8)
}

// Kind extracts the record kind from the key's trailer.
func (k InternalKey) Kind() InternalKeyKind {
	return InternalKeyKind(k.Trailer & 0xff)
}

// Compare orders two internal keys: ascending by user key, then descending
// by trailer (so higher sequence numbers, i.e. newer writes, sort first
// among entries sharing a user key).
func (k InternalKey) Compare(o InternalKey) int {
	if c := bytes.Compare(k.UserKey, o.UserKey); c != 0 {
		return c
	}
	switch {
	case k.Trailer > o.Trailer:
		return -1
	case k.Trailer < o.Trailer:
		return 1
	default:
		return 0
	}
}

// Encode writes the key's wire form (user key followed by the 8-byte
// little-endian trailer) to buf, which must be len(k.UserKey)+8 bytes.
func (k InternalKey) Encode(buf []byte) {
	n := copy(buf, k.UserKey)
	binary.LittleEndian.PutUint64(buf[n:], k.Trailer)
}

// Size returns the encoded length of the key.
func (k InternalKey) Size() int {
	return len(k.UserKey) + 8
}

// DecodeInternalKey parses an encoded internal key back out of buf.
func DecodeInternalKey(buf []byte) InternalKey {
	n := len(buf) - 8
	return InternalKey{
		UserKey: buf[:n],
		Trailer: binary.LittleEndian.Uint64(buf[n:]),
	}
}
