// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package kvstash

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Statistics collects the counters and histograms an Applier updates as it
// walks a batch. It's a thin wrapper over a dedicated prometheus registry
// rather than a set of bare package-level metrics, so a process embedding
// this package can run more than one independent write path (for example
// one per shard) without their numbers colliding.
type Statistics struct {
	registry *prometheus.Registry

	KeysWritten     prometheus.Counter
	DeletesFiltered prometheus.Counter
	MergesFolded    prometheus.Counter
	MergeFailures   prometheus.Counter
	MergeLatency    prometheus.Histogram
}

// NewStatistics creates a Statistics with all of its metrics registered
// against a fresh registry.
func NewStatistics() *Statistics {
	s := &Statistics{
		registry: prometheus.NewRegistry(),
		KeysWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvstash_keys_written_total",
			Help: "Number of Put/Delete/SingleDelete/Merge records applied to a memtable.",
		}),
		DeletesFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvstash_deletes_filtered_total",
			Help: "Number of Delete/SingleDelete records dropped because the target key's bloom filter proved it absent.",
		}),
		MergesFolded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvstash_merges_folded_total",
			Help: "Number of Merge records folded into a single Put by the merge operator instead of appended as a new operand.",
		}),
		MergeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvstash_merge_failures_total",
			Help: "Number of times the merge operator failed to fold a successive-merge run, falling back to appending the raw operand.",
		}),
		MergeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kvstash_merge_fold_latency_seconds",
			Help:    "Time spent inside the merge operator while folding successive Merge operands.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	s.registry.MustRegister(s.KeysWritten, s.DeletesFiltered, s.MergesFolded, s.MergeFailures, s.MergeLatency)
	return s
}

// Gather returns the current value of every metric as prometheus'
// wire-neutral MetricFamily representation, the same type its own text
// and protobuf exposition formats are built from. cmd/wbdump samples
// KeysWritten through this after every applied record to plot progress,
// without linking against an HTTP exposition server.
func (s *Statistics) Gather() ([]*dto.MetricFamily, error) {
	return s.registry.Gather()
}
