// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batchrepr

import (
	"github.com/pkg/errors"

	"github.com/kvstash/kvstash/internal/base"
)

// ColumnFamilyID identifies which memtable a record targets. Column family
// 0 is the default and is never encoded explicitly: a bare kTypeValue tag
// means "default column family", while kTypeColumnFamilyValue carries an
// explicit id.
type ColumnFamilyID uint32

// DefaultColumnFamily is the implicit target of every non-ColumnFamily-form
// record.
const DefaultColumnFamily ColumnFamilyID = 0

// Reader walks the records of a batch payload (the bytes following the
// 12-byte header) one at a time.
type Reader struct {
	p []byte
}

// NewReader returns a Reader over the payload following repr's header.
// repr must be at least HeaderLen bytes.
func NewReader(repr []byte) Reader {
	if len(repr) < HeaderLen {
		return Reader{}
	}
	return Reader{p: repr[HeaderLen:]}
}

// Done reports whether the reader has consumed the entire payload.
func (r *Reader) Done() bool {
	return len(r.p) == 0
}

// Next decodes and returns the next record in the payload. ok is false
// once the payload is exhausted; err is non-nil if the payload is
// malformed.
func (r *Reader) Next() (kind Kind, cf ColumnFamilyID, key, value []byte, ok bool, err error) {
	if len(r.p) == 0 {
		return 0, 0, nil, nil, false, nil
	}

	tag := Kind(r.p[0])
	p := r.p[1:]

	cf = DefaultColumnFamily
	if tag.IsColumnFamilyForm() {
		id, n, decOK := DecodeUvarint32(p)
		if !decOK {
			return 0, 0, nil, nil, false, errors.Wrapf(base.ErrCorruption, "bad WriteBatch tag: missing column family id")
		}
		cf = ColumnFamilyID(id)
		p = p[n:]
	}

	switch tag {
	case KindValue, KindColumnFamilyValue, KindMerge, KindColumnFamilyMerge:
		var keyOK, valOK bool
		key, p, keyOK = DecodeLengthPrefixedBytes(p)
		if !keyOK {
			return 0, 0, nil, nil, false, errors.Wrapf(base.ErrCorruption, "bad WriteBatch Put/Merge (key)")
		}
		value, p, valOK = DecodeLengthPrefixedBytes(p)
		if !valOK {
			return 0, 0, nil, nil, false, errors.Wrapf(base.ErrCorruption, "bad WriteBatch Put/Merge (value)")
		}

	case KindDeletion, KindColumnFamilyDeletion, KindSingleDeletion, KindColumnFamilySingleDeletion:
		var keyOK bool
		key, p, keyOK = DecodeLengthPrefixedBytes(p)
		if !keyOK {
			return 0, 0, nil, nil, false, errors.Wrapf(base.ErrCorruption, "bad WriteBatch Delete")
		}

	case KindLogData:
		var blobOK bool
		value, p, blobOK = DecodeLengthPrefixedBytes(p)
		if !blobOK {
			return 0, 0, nil, nil, false, errors.Wrapf(base.ErrCorruption, "bad WriteBatch Blob")
		}

	default:
		return 0, 0, nil, nil, false, errors.Wrapf(base.ErrCorruption, "unknown WriteBatch tag %d", tag)
	}

	r.p = p
	return tag, cf, key, value, true, nil
}
