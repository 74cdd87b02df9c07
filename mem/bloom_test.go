// Copyright 2013 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterNoFalseNegatives(t *testing.T) {
	f := NewFilter(1000)
	keys := make([][]byte, 1000)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%d", i))
		f.Add(keys[i])
	}
	for _, k := range keys {
		require.True(t, f.MayContain(k))
	}
}

func TestFilterFalsePositiveRateIsReasonable(t *testing.T) {
	f := NewFilter(1000)
	for i := 0; i < 1000; i++ {
		f.Add([]byte(fmt.Sprintf("present-%d", i)))
	}
	falsePositives := 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		if f.MayContain([]byte(fmt.Sprintf("absent-%d", i))) {
			falsePositives++
		}
	}
	// 10 bits/key should keep this well under 5%; a wildly broken filter
	// (e.g. always-true) would blow past this by an order of magnitude.
	require.Less(t, falsePositives, trials/20)
}
