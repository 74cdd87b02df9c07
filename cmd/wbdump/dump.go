// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ghemawat/stream"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kvstash/kvstash/batchrepr"
)

func newDumpCommand() *cobra.Command {
	var hexInput string
	var filePath string
	var grep string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the records inside a write batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			repr, err := loadRepr(hexInput, filePath)
			if err != nil {
				return err
			}
			lines, err := renderRecords(repr)
			if err != nil {
				return err
			}
			return emit(lines, grep)
		},
	}
	cmd.Flags().StringVar(&hexInput, "hex", "", "hex-encoded batch bytes")
	cmd.Flags().StringVar(&filePath, "file", "", "path to a raw batch file")
	cmd.Flags().StringVar(&grep, "grep", "", "only print rendered lines matching this regexp")
	return cmd
}

func loadRepr(hexInput, filePath string) ([]byte, error) {
	switch {
	case hexInput != "":
		return hex.DecodeString(strings.TrimSpace(hexInput))
	case filePath != "":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		return data, nil
	default:
		return nil, fmt.Errorf("one of --hex or --file is required")
	}
}

// renderRecords decodes repr and formats it as a table, one line of output
// per row, suitable for piping through further text filters.
func renderRecords(repr []byte) ([]string, error) {
	seqNum, count, err := batchrepr.ReadHeader(repr)
	if err != nil {
		return nil, err
	}

	var out strings.Builder
	table := tablewriter.NewWriter(&out)
	table.SetHeader([]string{"kind", "cf", "key", "value"})

	r := batchrepr.NewReader(repr)
	for {
		kind, cf, key, value, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		table.Append([]string{kind.String(), fmt.Sprintf("%d", cf), displayBytes(key), displayBytes(value)})
	}
	table.Render()

	lines := []string{fmt.Sprintf("seqnum=%s count=%d", seqNum, count)}
	lines = append(lines, strings.Split(strings.TrimRight(out.String(), "\n"), "\n")...)
	return lines, nil
}

// displayBytes renders b as text if it looks like it, and as hex
// otherwise, so a dump of binary keys doesn't corrupt a terminal.
func displayBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	for _, c := range b {
		if c < 0x09 || (c > 0x0d && c < 0x20) || c == 0x7f {
			return "0x" + hex.EncodeToString(b)
		}
	}
	return string(b)
}

func emit(lines []string, grep string) error {
	source := stream.Items(lines...)
	if grep == "" {
		return stream.Run(source, stream.WriteLines(os.Stdout))
	}
	return stream.Run(source, stream.Grep(grep), stream.WriteLines(os.Stdout))
}
