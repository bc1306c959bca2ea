// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procfs

import "strings"

// DeriveModules walks regions in order and emits one Module per CodeApp
// or DataApp region (the static anchors pointer chains terminate at),
// plus one ":bss"-suffixed Module per Bss region whose immediate
// predecessor was such a module — mirroring
// memtool::extend::parse_process_module exactly, including the
// 1-based-per-basename disambiguation counter.
func DeriveModules(regions []Region) []Module {
	var modules []Module
	counts := make(map[string]int)

	var prev Region
	havePrev := false
	for _, r := range regions {
		switch {
		case r.Kind == CodeApp || r.Kind == DataApp:
			name := basename(r.Name)
			counts[name]++
			modules = append(modules, Module{
				Start: r.Start,
				End:   r.End,
				Kind:  r.Kind,
				Name:  name,
				Index: counts[name],
			})
		case r.Kind == Bss && havePrev && (prev.Kind == CodeApp || prev.Kind == DataApp):
			name := basename(prev.Name) + ":bss"
			counts[name]++
			modules = append(modules, Module{
				Start: r.Start,
				End:   r.End,
				Kind:  r.Kind,
				Name:  name,
				Index: counts[name],
			})
		}
		prev, havePrev = r, true
	}
	return modules
}

func basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Select returns the subset of regions whose Kind is in mask, as
// set_mem_ranges does for the scanner and the BFS's anchor list.
func Select(regions []Region, mask KindMask) []Region {
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		if mask.Has(r.Kind) {
			out = append(out, r)
		}
	}
	return out
}

// Bounds returns the lowest start and highest end among regions, used
// to quickly reject scan candidates outside the mapped address space
// (the "min/sub" fast-reject in output_pointer_to_file).
func Bounds(regions []Region) (min, max uint64) {
	if len(regions) == 0 {
		return 0, 0
	}
	min, max = regions[0].Start, regions[0].End
	for _, r := range regions[1:] {
		if r.Start < min {
			min = r.Start
		}
		if r.End > max {
			max = r.End
		}
	}
	return min, max
}

// Contains reports whether addr falls inside any region in an
// ascending-by-Start slice, via binary search (invariant I3).
func Contains(regionsSortedByStart []Region, addr uint64) bool {
	lo, hi := 0, len(regionsSortedByStart)
	for lo < hi {
		mid := (lo + hi) / 2
		if regionsSortedByStart[mid].End <= addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(regionsSortedByStart) && regionsSortedByStart[lo].Contains(addr)
}
