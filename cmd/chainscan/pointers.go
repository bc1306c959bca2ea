// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/chainscan/chainscan/internal/pointerscan"
	"github.com/chainscan/chainscan/internal/procfs"
	"github.com/chainscan/chainscan/internal/remote"
	"github.com/chainscan/chainscan/internal/workerpool"
	"github.com/spf13/cobra"
)

// newPointersCmd implements the get_pointers contract (§6.3): scan every
// selected region of a process and report how many candidate pointers
// were found.
func newPointersCmd() *cobra.Command {
	var force32, force64, all bool
	var kinds []string

	cmd := &cobra.Command{
		Use:   "pointers <pid-or-name>",
		Short: "Scan a process's memory and count candidate pointers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(args[0], force32, force64)
			if err != nil {
				return err
			}
			mask := procfs.AllKinds
			if !all && len(kinds) > 0 {
				mask = maskFromNames(kinds)
			}
			selected := procfs.Select(t.regions, mask)

			reader := remote.NewProcessReader(t.pid)
			defer reader.Close()

			pool := workerpool.New(workerpool.DefaultWorkers())
			defer pool.Close()

			table, err := pointerscan.Scan(reader, t.regions, selected, pool, pointerscan.Options{
				PointerSize: t.info.PointerSize,
			})
			if err != nil {
				return err
			}
			defer table.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", table.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force32, "32", false, "force 32-bit pointer width")
	cmd.Flags().BoolVar(&force64, "64", false, "force 64-bit pointer width")
	cmd.Flags().BoolVar(&all, "all", false, "scan every classified region kind")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "restrict to region kinds (heap, code-app, data-app, ...)")
	return cmd
}

func maskFromNames(names []string) procfs.KindMask {
	byName := map[string]procfs.Kind{
		"other":       procfs.Other,
		"heap":        procfs.Heap,
		"alloc-arena": procfs.AllocArena,
		"code-app":    procfs.CodeApp,
		"code-system": procfs.CodeSystem,
		"bss":         procfs.Bss,
		"data-app":    procfs.DataApp,
		"anon":        procfs.Anon,
	}
	var kinds []procfs.Kind
	for _, n := range names {
		if k, ok := byName[n]; ok {
			kinds = append(kinds, k)
		}
	}
	return procfs.MaskOf(kinds...)
}
