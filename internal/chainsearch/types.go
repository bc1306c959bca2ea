// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chainsearch implements the inverse-pointer breadth-first
// search (C5) and the directory-tree compaction pass (C6) that turns
// its layered output into a serialisable tree.
//
// Grounded on chainer::scan<T> (cscan.hpp) in the original tool: the
// level-by-level frontier/sink split (filter_pointer_ranges), the
// previous-level index association (create_assoc_dir_index) are ported
// algorithm-for-algorithm, with spillqueue.Queue standing in for
// utils::mapqueue and workerpool.Pool standing in for utils::threadpool.
// The tree compaction (build_pointer_dirs_tree) is done differently: by
// top-down reachability weights and an index-shift table (tree.go), not
// by interval merging.
package chainsearch

import (
	"github.com/chainscan/chainscan/internal/pointerscan"
	"github.com/chainscan/chainscan/internal/procfs"
	"github.com/chainscan/chainscan/internal/spillqueue"
)

// Dir is one vertex in the (eventually compacted) directory tree: it
// groups references to a contiguous slice [Start, End) of the previous
// level's deduplicated content.
type Dir struct {
	Address uint64
	Value   uint64
	Start   uint32
	End     uint32
}

// Range is a sink: the BFS reached a static module at Level, and
// Results holds the Dir entries (addresses inside that module) that
// terminate there.
type Range struct {
	Level   int
	Module  procfs.Module
	Results *spillqueue.Queue[Dir]
}

// Tree is the output of the directory tree builder (C6): Counts[L] is
// the prefix-sum chain count for Content[L] (length len(Content[L])+1,
// Counts[L][0] == 0), and Content[L] holds, for level L, only the dirs
// that survive compaction (i.e. are actually reachable from some sink),
// with Start/End already remapped to index the compacted Content[L-1].
//
// Unlike the BFS frontiers and the global pointer table, the compacted
// tree is bounded by the number of surviving chains, not by the size of
// the process being scanned, so it lives in ordinary slices rather than
// spill queues — see DESIGN.md.
type Tree struct {
	Counts   [][]uint64
	Contents [][]Dir
}

// Pointer re-exports pointerscan.Pointer so callers of this package
// don't need to import pointerscan just to pass the global table in.
type Pointer = pointerscan.Pointer
