// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package batchrepr implements the on-disk/on-wire representation of a
// write batch: the fixed 12-byte header, and the tagged, length-prefixed
// records that follow it. Nothing in this package understands column
// families or memtables; it only knows how to walk bytes.
package batchrepr

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/kvstash/kvstash/internal/base"
)

// HeaderLen is the size in bytes of the fixed batch header: an 8-byte
// little-endian sequence number followed by a 4-byte little-endian record
// count.
const HeaderLen = 12

const seqNumOffset = 0
const countOffset = 8

// MaxVarint32Len is the longest a varint32 can be: 5 bytes, for values of
// 1<<28 and above.
const MaxVarint32Len = 5

// PutUvarint32 appends the varint32 encoding of v to dst and returns the
// extended slice.
func PutUvarint32(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// PutUvarint32Len returns the number of bytes PutUvarint32 would append for
// v, without doing the append.
func PutUvarint32Len(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// DecodeUvarint32 decodes a varint32 from the front of p, returning the
// value, the number of bytes consumed, and false if p ends before a
// terminating byte (high bit clear) is found or the value overflows 32
// bits.
func DecodeUvarint32(p []byte) (v uint32, n int, ok bool) {
	var shift uint
	for i := 0; i < len(p) && i < MaxVarint32Len; i++ {
		b := p[i]
		if b < 0x80 {
			if i == MaxVarint32Len-1 && b > 0x0f {
				return 0, 0, false
			}
			v |= uint32(b) << shift
			return v, i + 1, true
		}
		v |= uint32(b&0x7f) << shift
		shift += 7
	}
	return 0, 0, false
}

// PutLengthPrefixedBytes appends the length-prefixed (varint32 length
// followed by the raw bytes) encoding of s to dst.
func PutLengthPrefixedBytes(dst []byte, s []byte) []byte {
	dst = PutUvarint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// DecodeLengthPrefixedBytes decodes a varint32-length-prefixed byte slice
// from the front of p. The returned slice aliases p; it is not copied.
func DecodeLengthPrefixedBytes(p []byte) (s []byte, rest []byte, ok bool) {
	length, n, ok := DecodeUvarint32(p)
	if !ok {
		return nil, nil, false
	}
	p = p[n:]
	if uint32(len(p)) < length {
		return nil, nil, false
	}
	return p[:length], p[length:], true
}

// ReadHeader validates and decodes the fixed header at the front of repr,
// returning the sequence number and record count.
func ReadHeader(repr []byte) (seqNum base.SeqNum, count uint32, err error) {
	if len(repr) < HeaderLen {
		return 0, 0, base.MarkCorruptionError(errors.New("malformed WriteBatch (too small)"))
	}
	seqNum = base.SeqNum(binary.LittleEndian.Uint64(repr[seqNumOffset:]))
	count = binary.LittleEndian.Uint32(repr[countOffset:])
	return seqNum, count, nil
}

// ReadSeqNum reads only the sequence-number field of repr. The caller
// guarantees len(repr) >= HeaderLen.
func ReadSeqNum(repr []byte) base.SeqNum {
	return base.SeqNum(binary.LittleEndian.Uint64(repr[seqNumOffset:]))
}

// SetSeqNum overwrites the sequence-number field of repr in place.
func SetSeqNum(repr []byte, seqNum base.SeqNum) {
	binary.LittleEndian.PutUint64(repr[seqNumOffset:], uint64(seqNum))
}

// ReadCount reads only the record-count field of repr. The caller
// guarantees len(repr) >= HeaderLen.
func ReadCount(repr []byte) uint32 {
	return binary.LittleEndian.Uint32(repr[countOffset:])
}

// SetCount overwrites the record-count field of repr in place.
func SetCount(repr []byte, count uint32) {
	binary.LittleEndian.PutUint32(repr[countOffset:], count)
}

// IsEmpty reports whether repr has no records beyond the header.
func IsEmpty(repr []byte) bool {
	return len(repr) <= HeaderLen
}
