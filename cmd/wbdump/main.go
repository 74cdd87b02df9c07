// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Command wbdump inspects the raw wire format of write batches: it prints
// the records inside one, or applies one to a throwaway memtable set and
// plots how the keys-written count grows record by record.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "wbdump",
		Short: "Inspect write-batch wire format and applier statistics",
	}
	root.AddCommand(newDumpCommand())
	root.AddCommand(newStatsCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
