// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chainscan/chainscan/internal/chainfile"
	"github.com/chainscan/chainscan/internal/chainlog"
	"github.com/chainscan/chainscan/internal/chainsearch"
	"github.com/chainscan/chainscan/internal/pointerscan"
	"github.com/chainscan/chainscan/internal/procfs"
	"github.com/chainscan/chainscan/internal/remote"
	"github.com/chainscan/chainscan/internal/workerpool"
	"github.com/spf13/cobra"
)

// newScanCmd implements scan_pointer_chain / scan_pointer_chain_to_text
// (§6.3): resolve the target, scan its pointer table, run the inverse
// BFS toward the given target addresses, and write the result either as
// a binary chain file (default) or straight to text (--text).
func newScanCmd() *cobra.Command {
	var force32, force64, text bool
	var targets []string
	var modules []string
	var depth int
	var offset uint64
	var perLevelLimit int
	var out string

	cmd := &cobra.Command{
		Use:   "scan <pid-or-name> --target <hex-addr>...",
		Short: "Search for pointer chains reaching target addresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs, err := parseHexAddrs(targets)
			if err != nil {
				return err
			}

			t, err := resolveTarget(args[0], force32, force64)
			if err != nil {
				return err
			}
			selModules := filterModules(t.modules, modules)
			selected := procfs.Select(t.regions, procfs.AllKinds)

			reader := remote.NewProcessReader(t.pid)
			defer reader.Close()

			pool := workerpool.New(workerpool.DefaultWorkers())
			defer pool.Close()

			log := logger()
			table, err := pointerscan.Scan(reader, t.regions, selected, pool, pointerscan.Options{
				PointerSize: t.info.PointerSize,
			})
			if err != nil {
				return err
			}
			defer table.Close()
			log.Info("pointer scan complete", "candidates", table.Len())

			res, err := chainsearch.Run(table, selModules, pool, chainsearch.Options{
				Targets:       addrs,
				Depth:         depth,
				OffsetWindow:  offset,
				PerLevelLimit: perLevelLimit,
			})
			if err != nil {
				return err
			}
			for level, dirs := range res.Dirs {
				chainlog.LevelProgress(log, level, countSinksAtLevel(res.Ranges, level), dirs.Len())
			}

			tree := chainsearch.BuildTree(res.Dirs, res.Ranges)
			for _, r := range res.Ranges {
				n, err := chainfile.RenderChainsToText(io.Discard, []chainsearch.Range{r}, tree)
				if err != nil {
					return err
				}
				chainlog.ModuleChainCount(log, r.Module.Name, r.Module.Index, r.Level, n)
			}

			if text {
				total, err := chainfile.RenderChainsToText(cmd.OutOrStdout(), res.Ranges, tree)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d chains\n", total)
				return nil
			}

			if out == "" {
				out = "scan_1.bin"
			}
			total, err := chainfile.Write(out, t.info.PointerSize, res.Ranges, tree)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d chains written to %s\n", total, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force32, "32", false, "force 32-bit pointer width")
	cmd.Flags().BoolVar(&force64, "64", false, "force 64-bit pointer width")
	cmd.Flags().StringSliceVar(&targets, "target", nil, "target address in hex, repeatable")
	cmd.Flags().StringSliceVar(&modules, "module", nil, "restrict sinks to these module basenames")
	cmd.Flags().IntVar(&depth, "depth", 5, "maximum number of pointer hops")
	cmd.Flags().Uint64Var(&offset, "offset", 0, "offset window for each hop")
	cmd.Flags().IntVar(&perLevelLimit, "per-level-limit", 0, "cap survivors per level (0 = unlimited)")
	cmd.Flags().BoolVar(&text, "text", false, "render directly to text instead of writing a binary chain file")
	cmd.Flags().StringVar(&out, "out", "", "output path (binary mode only; default scan_1.bin)")
	cmd.MarkFlagRequired("target")
	return cmd
}

func parseHexAddrs(raw []string) ([]uint64, error) {
	out := make([]uint64, len(raw))
	for i, s := range raw {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		v, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("chainscan: bad --target address %q: %w", raw[i], err)
		}
		out[i] = v
	}
	return out, nil
}

func countSinksAtLevel(ranges []chainsearch.Range, level int) int {
	n := 0
	for _, r := range ranges {
		if r.Level == level {
			n++
		}
	}
	return n
}
