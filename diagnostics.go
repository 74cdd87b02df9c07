// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package kvstash

import (
	"github.com/cockroachdb/tokenbucket"
	"github.com/kvstash/kvstash/internal/base"
)

// diagnosticsRate bounds how often an Applier will actually emit a
// missing-column-family log line: at most a handful per second, however
// many thousands of records a stale recovery replay skips.
const diagnosticsRate = 5

// diagnosticLimiter rate-limits Applier's diagnostic logging so replaying
// a write-ahead log against a database that dropped a column family long
// ago doesn't turn into one log line per skipped record.
type diagnosticLimiter struct {
	logger base.Logger
	bucket tokenbucket.TokenBucket
}

func newDiagnosticLimiter(logger base.Logger) *diagnosticLimiter {
	l := &diagnosticLimiter{logger: logger}
	l.bucket.Init(tokenbucket.TokensPerSecond(diagnosticsRate), tokenbucket.Tokens(diagnosticsRate))
	return l
}

func (l *diagnosticLimiter) logf(format string, args ...interface{}) {
	if ok, _ := l.bucket.TryToFulfill(1); ok {
		l.logger.Infof(format, args...)
	}
}
