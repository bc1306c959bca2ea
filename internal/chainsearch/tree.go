// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainsearch

import "github.com/chainscan/chainscan/internal/spillqueue"

// BuildTree compacts a raw Result into a Tree: every frontier entry that
// is not reachable from any sink (directly, or transitively through a
// further frontier entry that is itself reachable) is dropped, and the
// Start/End window of every surviving entry is rewritten to index the
// compacted array one level down. The per-entry chain count needed for
// Tree.Counts is accumulated during the same top-down pass.
//
// Grounded on chainer::scan<T>::build_pointer_dirs_tree / filter_suit_dir
// / merge_pointer_dirs / stat_pointer_dir_count in the original tool:
// the "mark reachability top-down, then compact with an index-shift
// table" structure is the same; this operates over slices rather than
// the original's in-place vector erase/shift, since the compacted tree
// is bounded by surviving-chain count, not process size (see
// DESIGN.md).
func BuildTree(dirs []*spillqueue.Queue[Dir], ranges []Range) *Tree {
	if len(dirs) == 0 || len(ranges) == 0 {
		return &Tree{}
	}
	maxLevel := len(dirs) - 1

	// weight[L][i] is the number of surviving chains that pass through
	// dirs[L][i]; it is nonzero exactly for entries that survive
	// compaction.
	weight := make([][]uint64, len(dirs))
	for l := range dirs {
		weight[l] = make([]uint64, dirs[l].Len())
	}

	rangesByLevel := make([][]Range, len(dirs))
	for _, r := range ranges {
		if r.Level <= maxLevel {
			rangesByLevel[r.Level] = append(rangesByLevel[r.Level], r)
		}
	}

	// Seed weights from sinks (each Dir in a Range's Results is exactly
	// one complete chain) and propagate the window it references into
	// the level below.
	for l := maxLevel; l >= 0; l-- {
		for _, r := range rangesByLevel[l] {
			if r.Level == 0 {
				continue
			}
			addWindowWeight(weight[l-1], r.Results.Slice(), 1)
		}
		if l == 0 {
			continue
		}
		// Entries of dirs[l] that carry weight (reached from above)
		// propagate that same weight into their own window at l-1.
		slice := dirs[l].Slice()
		for i, w := range weight[l] {
			if w == 0 {
				continue
			}
			d := slice[i]
			addWindowWeightRange(weight[l-1], int(d.Start), int(d.End), w)
		}
	}

	// Compact: keep only entries with nonzero weight, remapping indices.
	shift := make([][]int32, len(dirs)) // shift[L][oldIdx] = newIdx, or -1
	contents := make([][]Dir, len(dirs))
	counts := make([][]uint64, len(dirs))

	for l := 0; l <= maxLevel; l++ {
		slice := dirs[l].Slice()
		sh := make([]int32, len(slice))
		var kept []Dir
		var cnt []uint64
		running := uint64(0)
		for i, d := range slice {
			w := weight[l][i]
			if w == 0 {
				sh[i] = -1
				continue
			}
			remapped := d
			if l > 0 {
				remapped.Start, remapped.End = remapWindow(shift[l-1], d.Start, d.End)
			}
			kept = append(kept, remapped)
			cnt = append(cnt, running)
			running += w
			sh[i] = int32(len(kept) - 1)
		}
		cnt = append(cnt, running)
		shift[l] = sh
		contents[l] = kept
		counts[l] = cnt
	}

	// Rewrite every surviving range's Results windows to index the
	// compacted array one level down.
	for i := range ranges {
		r := &ranges[i]
		if r.Level == 0 {
			continue
		}
		slice := r.Results.Slice()
		for j := range slice {
			d := &slice[j]
			d.Start, d.End = remapWindow(shift[r.Level-1], d.Start, d.End)
		}
	}

	return &Tree{Counts: counts, Contents: contents}
}

// TotalChains returns the number of distinct root-to-sink paths the BFS
// found, satisfying P3 (Counts[L][b]-Counts[L][a] equals the chain count
// through Content[L][a:b]): the sum of every level-0 sink's direct hits
// plus the chain weight flowing through the compacted level-0 content.
func TotalChains(ranges []Range, tree *Tree) uint64 {
	var total uint64
	for _, r := range ranges {
		if r.Level == 0 {
			total += uint64(r.Results.Len())
		}
	}
	if len(tree.Counts) > 0 {
		c := tree.Counts[0]
		if len(c) > 0 {
			total += c[len(c)-1]
		}
	}
	return total
}

// addWindowWeight adds delta to weight[d.Start:d.End] for every d.
func addWindowWeight(weight []uint64, ds []Dir, delta uint64) {
	for _, d := range ds {
		addWindowWeightRange(weight, int(d.Start), int(d.End), delta)
	}
}

func addWindowWeightRange(weight []uint64, start, end int, delta uint64) {
	if end > len(weight) {
		end = len(weight)
	}
	for i := start; i < end; i++ {
		weight[i] += delta
	}
}

// remapWindow rewrites a [start, end) window of original indices into
// the corresponding window of compacted indices, using shift (built so
// that every index inside a live window has shift[i] >= 0).
func remapWindow(shift []int32, start, end uint32) (uint32, uint32) {
	lo, hi := -1, -1
	for i := start; i < end; i++ {
		s := shift[i]
		if s < 0 {
			continue
		}
		if lo == -1 {
			lo = int(s)
		}
		hi = int(s) + 1
	}
	if lo == -1 {
		return 0, 0
	}
	return uint32(lo), uint32(hi)
}
