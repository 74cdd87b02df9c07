// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"log"
	"os"

	"github.com/cockroachdb/redact"
)

// Logger defines the interface used by the write-batch core to emit
// diagnostic output. It intentionally has the same shape as the teacher's
// own internal/base.Logger: two methods, no third-party logging framework
// backing it, because the teacher itself doesn't reach for one at this
// layer either.
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger struct{}

// Infof implements the Logger interface.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, redact.Sprintf(format, args...).StripMarkers())
}

// Fatalf implements the Logger interface.
func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = log.Output(2, redact.Sprintf(format, args...).StripMarkers())
	os.Exit(1)
}
