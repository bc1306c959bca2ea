// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chainscan/chainscan/internal/chainfile"
	"github.com/chainscan/chainscan/internal/chainsearch"
	"github.com/chainscan/chainscan/internal/chainsession"
	"github.com/chainscan/chainscan/internal/pointerscan"
	"github.com/chainscan/chainscan/internal/procfs"
	"github.com/chainscan/chainscan/internal/remote"
	"github.com/chainscan/chainscan/internal/workerpool"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// newReplCmd implements the interactive menu the original C++ tool's
// cmd_parser exposed: pick a process, optionally restrict to one
// module, run a scan, format a file, or compare two files, with the
// last process/module remembered across launches via chainsession.
func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive menu for scanning and comparing pointer chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd)
		},
	}
}

type replState struct {
	target *target
	module string
}

func runRepl(cmd *cobra.Command) error {
	rl, err := readline.New("chainscan> ")
	if err != nil {
		return fmt.Errorf("chainscan: start readline: %w", err)
	}
	defer rl.Close()

	saved, err := chainsession.Load()
	if err != nil {
		return err
	}
	st := &replState{module: saved.SelectedModule}
	if saved.ProcessName != "" {
		if t, err := resolveTarget(saved.ProcessName, false, false); err == nil {
			st.target = t
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "commands: process <pid-or-name>, module <name|all>, scan <hex-addr> [depth] [offset], format <file>, compare <a> <b>, quit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chainscan: readline: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := dispatchReplCommand(cmd, st, fields); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}
}

var errQuit = errors.New("quit")

func dispatchReplCommand(cmd *cobra.Command, st *replState, fields []string) error {
	switch fields[0] {
	case "quit", "exit":
		return errQuit
	case "process":
		if len(fields) < 2 {
			return fmt.Errorf("usage: process <pid-or-name>")
		}
		t, err := resolveTarget(fields[1], false, false)
		if err != nil {
			return err
		}
		st.target = t
		return chainsession.Save(chainsession.State{ProcessName: fields[1], SelectedModule: st.module})
	case "module":
		if len(fields) < 2 {
			return fmt.Errorf("usage: module <name|all>")
		}
		st.module = fields[1]
		if st.module == "all" {
			st.module = ""
		}
		name := ""
		if st.target != nil {
			name = strconv.Itoa(st.target.pid)
		}
		return chainsession.Save(chainsession.State{ProcessName: name, SelectedModule: st.module})
	case "scan":
		return replScan(cmd, st, fields[1:])
	case "format":
		if len(fields) < 2 {
			return fmt.Errorf("usage: format <file>")
		}
		total, err := chainfile.FormatBinToText(fields[1], cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d chains\n", total)
		return nil
	case "compare":
		if len(fields) < 3 {
			return fmt.Errorf("usage: compare <a> <b>")
		}
		res, err := chainfile.Compare(fields[1], fields[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "lhs_total=%d rhs_total=%d unchanged=%d\n", res.LhsTotal, res.RhsTotal, res.Unchanged)
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func replScan(cmd *cobra.Command, st *replState, args []string) error {
	if st.target == nil {
		return fmt.Errorf("no process selected; run 'process <pid-or-name>' first")
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: scan <hex-addr> [depth] [offset]")
	}
	addrs, err := parseHexAddrs(args[0:1])
	if err != nil {
		return err
	}
	depth := 5
	if len(args) > 1 {
		depth, err = strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad depth %q: %w", args[1], err)
		}
	}
	var offset uint64
	if len(args) > 2 {
		offset, err = strconv.ParseUint(args[2], 0, 64)
		if err != nil {
			return fmt.Errorf("bad offset %q: %w", args[2], err)
		}
	}

	var moduleFilter []string
	if st.module != "" {
		moduleFilter = []string{st.module}
	}
	selModules := filterModules(st.target.modules, moduleFilter)
	selected := procfs.Select(st.target.regions, procfs.AllKinds)

	reader := remote.NewProcessReader(st.target.pid)
	defer reader.Close()
	pool := workerpool.New(workerpool.DefaultWorkers())
	defer pool.Close()

	table, err := pointerscan.Scan(reader, st.target.regions, selected, pool, pointerscan.Options{
		PointerSize: st.target.info.PointerSize,
	})
	if err != nil {
		return err
	}
	defer table.Close()

	res, err := chainsearch.Run(table, selModules, pool, chainsearch.Options{
		Targets: addrs, Depth: depth, OffsetWindow: offset,
	})
	if err != nil {
		return err
	}
	tree := chainsearch.BuildTree(res.Dirs, res.Ranges)

	dir, err := chainsession.Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("chainscan: create %s: %w", dir, err)
	}
	out, err := chainsession.NextOutputPath(dir, "scan", ".bin")
	if err != nil {
		return err
	}
	total, err := chainfile.Write(out, st.target.info.PointerSize, res.Ranges, tree)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d chains written to %s\n", total, out)
	return nil
}
