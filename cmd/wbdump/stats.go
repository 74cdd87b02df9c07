// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/guptarohit/asciigraph"
	"github.com/kr/text"
	"github.com/spf13/cobra"

	dto "github.com/prometheus/client_model/go"

	"github.com/kvstash/kvstash"
	"github.com/kvstash/kvstash/batchrepr"
	"github.com/kvstash/kvstash/mem"
)

func newStatsCommand() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Apply a batch and plot how its keys-written count grows record by record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if filePath == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			return runStats(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to a raw batch file")
	return cmd
}

// progressHandler wraps an Applier so the CLI can sample the
// keys-written counter after every record, producing the series
// runStats plots.
type progressHandler struct {
	applier *kvstash.Applier
	stats   *kvstash.Statistics
	samples []float64
}

func (h *progressHandler) sample() {
	families, err := h.stats.Gather()
	if err != nil {
		return
	}
	h.samples = append(h.samples, counterValue(families, "kvstash_keys_written_total"))
}

func (h *progressHandler) Put(cf batchrepr.ColumnFamilyID, key, value []byte) error {
	err := h.applier.Put(cf, key, value)
	h.sample()
	return err
}

func (h *progressHandler) Delete(cf batchrepr.ColumnFamilyID, key []byte) error {
	err := h.applier.Delete(cf, key)
	h.sample()
	return err
}

func (h *progressHandler) SingleDelete(cf batchrepr.ColumnFamilyID, key []byte) error {
	err := h.applier.SingleDelete(cf, key)
	h.sample()
	return err
}

func (h *progressHandler) Merge(cf batchrepr.ColumnFamilyID, key, value []byte) error {
	err := h.applier.Merge(cf, key, value)
	h.sample()
	return err
}

func (h *progressHandler) LogData(blob []byte) error {
	return h.applier.LogData(blob)
}

func (h *progressHandler) Continue() bool {
	return h.applier.Continue()
}

func counterValue(families []*dto.MetricFamily, name string) float64 {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var total float64
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

func runStats(w io.Writer, repr []byte) error {
	batch, err := kvstash.NewBatchWithContents(repr)
	if err != nil {
		return err
	}

	table, err := mem.NewTable(mem.DefaultTableSize, 0)
	if err != nil {
		return err
	}
	cfMems := mem.NewColumnFamilyMemTables(table)
	stats := kvstash.NewStatistics()

	applier := kvstash.NewApplier(batch.SeqNum(), cfMems, kvstash.ApplierOptions{
		IgnoreMissingColumnFamilies: true,
		Stats:                       stats,
	})
	progress := &progressHandler{applier: applier, stats: stats}
	if err := batch.Iterate(progress); err != nil {
		return err
	}

	if len(progress.samples) > 1 {
		graph := asciigraph.Plot(progress.samples, asciigraph.Height(10), asciigraph.Caption("keys written, cumulative"))
		fmt.Fprintln(w, graph)
	}

	summary := fmt.Sprintf("records applied: %d\nfinal sequence number: %s\n", batch.Count(), applier.SeqNum())
	fmt.Fprint(w, text.Indent(summary, "  "))
	return nil
}
