// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/chainscan/chainscan/internal/chainfile"
	"github.com/spf13/cobra"
)

// newFormatCmd implements format_bin_to_text (§6.3): render a chain
// binary file to text, either to stdout or to a given file.
func newFormatCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "format <chain-file>",
		Short: "Render a chain binary file as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("chainscan: create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			total, err := chainfile.FormatBinToText(args[0], w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d chains\n", total)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path (default stdout)")
	return cmd
}
