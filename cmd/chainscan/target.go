// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/chainscan/chainscan/internal/arch"
	"github.com/chainscan/chainscan/internal/procfs"
)

// target bundles everything the pointers/scan subcommands need to know
// about the process being inspected.
type target struct {
	pid     int
	info    arch.Info
	regions []procfs.Region
	modules []procfs.Module
}

func resolveTarget(processArg string, force32, force64 bool) (*target, error) {
	pid, err := pidFromArg(processArg)
	if err != nil {
		return nil, err
	}
	info, err := resolveArch(pid, force32, force64)
	if err != nil {
		return nil, err
	}
	regions, err := procfs.ParseMaps(pid)
	if err != nil {
		return nil, fmt.Errorf("chainscan: parse maps for pid %d: %w", pid, err)
	}
	modules := procfs.DeriveModules(regions)
	return &target{pid: pid, info: info, regions: regions, modules: modules}, nil
}

// filterModules restricts t.modules to the basenames in names (the
// --module flag), preserving order and disambiguation indices. An empty
// names list means "all modules", matching the original's default
// g_selected_module == nil behavior (SPEC_FULL.md §6.4).
func filterModules(modules []procfs.Module, names []string) []procfs.Module {
	if len(names) == 0 {
		return modules
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []procfs.Module
	for _, m := range modules {
		if want[m.Name] {
			out = append(out, m)
		}
	}
	return out
}
