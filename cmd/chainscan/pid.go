// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chainscan/chainscan/internal/chainerr"
)

// pidFromArg resolves arg to a PID: a numeric string is used directly,
// anything else is treated as a process name and resolved by scanning
// /proc/*/cmdline for an exact argv[0] basename match.
//
// Grounded on memtool::base::get_pid in the original tool, which shells
// out to `pidof`; scanning /proc/*/cmdline in-process avoids the popen
// call and extra fork a CLI tool doesn't need (SPEC_FULL.md §4.10).
func pidFromArg(arg string) (int, error) {
	if pid, err := strconv.Atoi(arg); err == nil {
		return pid, nil
	}
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("chainscan: read /proc: %w: %w", chainerr.ErrIO, err)
	}
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		cmdline, err := os.ReadFile(filepath.Join("/proc", e.Name(), "cmdline"))
		if err != nil {
			continue
		}
		end := bytes.IndexByte(cmdline, 0)
		if end < 0 {
			end = len(cmdline)
		}
		argv0 := string(cmdline[:end])
		if argv0 == arg || filepath.Base(argv0) == arg {
			return pid, nil
		}
	}
	return 0, fmt.Errorf("chainscan: %w: no process matching %q", chainerr.ErrInvalidArgument, arg)
}
