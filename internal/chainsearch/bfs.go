// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainsearch

import (
	"fmt"
	"sort"

	"github.com/chainscan/chainscan/internal/procfs"
	"github.com/chainscan/chainscan/internal/spillqueue"
	"github.com/chainscan/chainscan/internal/workerpool"
)

// searchBlockSize mirrors the block size chainer::search<T>::get_results
// splits the global pointer table into before handing blocks to the
// thread pool.
const searchBlockSize = 10000

// assocBlockSize mirrors the block size used by create_assoc_dir_index.
const assocBlockSize = 10000

// Options configures one inverse-pointer BFS run.
type Options struct {
	Targets       []uint64 // addresses the chains must terminate at (level 0)
	Depth         int      // maximum number of hops, i.e. highest level searched
	OffsetWindow  uint64   // a candidate matches if 0 <= frontier-value <= OffsetWindow
	PerLevelLimit int      // 0 means unlimited; otherwise caps survivors per level (plim)
}

// Result is everything the BFS produced: the per-level frontier arrays
// (kept alive so Run's caller can pass them into BuildTree) and the
// sinks discovered at every level.
type Result struct {
	Dirs   []*spillqueue.Queue[Dir] // Dirs[L], L in [0, highestLevelReached]
	Ranges []Range
}

// Run performs the inverse-pointer breadth-first search: starting from
// Targets at level 0, it repeatedly looks up, in pointerTable, locations
// whose value lands within OffsetWindow of an address in the previous
// level's frontier, up to Depth levels. Any candidate (at any level)
// whose own address falls inside a static module in modules becomes a
// sink (a Range); anything left over becomes the next level's frontier.
//
// Grounded on chainer::scan<T>::scan_pointer_chain in the original tool.
func Run(pointerTable *spillqueue.Queue[Pointer], modules []procfs.Module, pool *workerpool.Pool, opts Options) (*Result, error) {
	if len(opts.Targets) == 0 {
		return &Result{}, nil
	}

	res := &Result{}
	curr := level0Pointers(opts.Targets)

	for level := 0; ; level++ {
		sinks, frontier, err := filterPointerRanges(curr, level, modules)
		if err != nil {
			return nil, err
		}
		res.Ranges = append(res.Ranges, sinks...)

		dirs := spillqueue.New[Dir]()
		if err := dirs.AppendAll(frontier); err != nil {
			return nil, fmt.Errorf("chainsearch: level %d: %w", level, err)
		}
		if level > 0 {
			if err := createAssocDirIndex(res.Dirs[level-1], dirs, opts.OffsetWindow, pool); err != nil {
				return nil, fmt.Errorf("chainsearch: level %d: %w", level, err)
			}
		}
		res.Dirs = append(res.Dirs, dirs)

		if level >= opts.Depth || dirs.Len() == 0 {
			break
		}

		next, err := searchPointer(dirs, pointerTable, opts.OffsetWindow, pool, opts.PerLevelLimit)
		if err != nil {
			return nil, fmt.Errorf("chainsearch: level %d: %w", level, err)
		}
		if len(next) == 0 {
			break
		}
		sort.Slice(next, func(i, j int) bool { return next[i].Address < next[j].Address })
		curr = next
	}

	// Sinks found at level L > 0 reference dirs[L-1] by value (the
	// value read from them lies within the offset window below some
	// level L-1 frontier entry); associate them now that every
	// level's frontier is final.
	for i := range res.Ranges {
		r := &res.Ranges[i]
		if r.Level == 0 {
			continue
		}
		if err := createAssocDirIndex(res.Dirs[r.Level-1], r.Results, opts.OffsetWindow, pool); err != nil {
			return nil, fmt.Errorf("chainsearch: associate range at level %d: %w", r.Level, err)
		}
	}

	return res, nil
}

// level0Pointers converts raw target addresses into the same (address,
// value) shape the rest of the pipeline works with; value is unused at
// level 0 (there is no "previous level" it could refer back into).
func level0Pointers(targets []uint64) []Pointer {
	out := make([]Pointer, len(targets))
	for i, t := range targets {
		out[i] = Pointer{Address: t, Value: 0}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// filterPointerRanges partitions curr (sorted ascending by Address) into
// sinks — one Range per module that any entry's Address falls inside —
// and a continuing frontier of Dir records for everything else.
//
// Grounded on chainer::scan<T>::filter_pointer_ranges.
func filterPointerRanges(curr []Pointer, level int, modules []procfs.Module) ([]Range, []Dir, error) {
	var sinks []Range
	frontier := make([]Dir, 0, len(curr))

	hit := make([]bool, len(curr))
	for _, m := range modules {
		lo := sort.Search(len(curr), func(i int) bool { return curr[i].Address >= m.Start })
		hi := sort.Search(len(curr), func(i int) bool { return curr[i].Address >= m.End })
		if lo >= hi {
			continue
		}
		q := spillqueue.New[Dir]()
		if err := q.Reserve(hi - lo); err != nil {
			return nil, nil, err
		}
		for i := lo; i < hi; i++ {
			hit[i] = true
			if err := q.PushBack(Dir{Address: curr[i].Address, Value: curr[i].Value, Start: 0, End: 1}); err != nil {
				return nil, nil, err
			}
		}
		sinks = append(sinks, Range{Level: level, Module: m, Results: q})
	}

	for i, p := range curr {
		if !hit[i] {
			frontier = append(frontier, Dir{Address: p.Address, Value: p.Value, Start: 0, End: 1})
		}
	}
	return sinks, frontier, nil
}

// searchPointer scans pointerTable in parallel blocks of searchBlockSize
// for entries whose Value lands within [d.Address-offset, d.Address] for
// some d in frontier (sorted ascending by Address), returning the
// matching table entries as the next level's raw candidates. If limit >
// 0, the result is capped there (the spec leaves "which ones get
// dropped" unspecified when a level overflows plim).
//
// Grounded on chainer::search<T>::get_results.
func searchPointer(frontier *spillqueue.Queue[Dir], pointerTable *spillqueue.Queue[Pointer], offset uint64, pool *workerpool.Pool, limit int) ([]Pointer, error) {
	n := pointerTable.Len()
	if n == 0 || frontier.Len() == 0 {
		return nil, nil
	}
	table := pointerTable.Slice()
	dirs := frontier.Slice()

	nBlocks := (n + searchBlockSize - 1) / searchBlockSize
	partials := make([][]Pointer, nBlocks)

	for b := 0; b < nBlocks; b++ {
		b := b
		start := b * searchBlockSize
		end := start + searchBlockSize
		if end > n {
			end = n
		}
		pool.Submit(func() {
			var local []Pointer
			for _, p := range table[start:end] {
				v := p.Value
				lo := sort.Search(len(dirs), func(i int) bool { return dirs[i].Address >= v })
				if lo >= len(dirs) {
					continue
				}
				if dirs[lo].Address-v > offset {
					continue
				}
				local = append(local, p)
			}
			partials[b] = local
		})
	}
	pool.Wait()

	total := 0
	for _, p := range partials {
		total += len(p)
	}
	if limit > 0 && total > limit {
		total = limit
	}

	out := make([]Pointer, 0, total)
	for _, p := range partials {
		if len(out) >= total {
			break
		}
		room := total - len(out)
		if room >= len(p) {
			out = append(out, p...)
		} else {
			out = append(out, p[:room]...)
		}
	}
	return out, nil
}

// createAssocDirIndex sets, for every entry of curr, the [Start, End)
// slice of prev (sorted ascending by Address) whose Address lies within
// [entry.Value, entry.Value+offset] — the window of previous-level
// frontier entries this entry's value could be chaining to.
//
// Grounded on chainer::scan<T>::create_assoc_dir_index.
func createAssocDirIndex(prev, curr *spillqueue.Queue[Dir], offset uint64, pool *workerpool.Pool) error {
	n := curr.Len()
	if n == 0 {
		return nil
	}
	prevSlice := prev.Slice()
	currSlice := curr.Slice()

	nBlocks := (n + assocBlockSize - 1) / assocBlockSize
	for b := 0; b < nBlocks; b++ {
		start := b * assocBlockSize
		end := start + assocBlockSize
		if end > n {
			end = n
		}
		pool.Submit(func() {
			for i := start; i < end; i++ {
				d := &currSlice[i]
				v := d.Value
				lo := sort.Search(len(prevSlice), func(j int) bool { return prevSlice[j].Address >= v })
				hi := sort.Search(len(prevSlice), func(j int) bool { return prevSlice[j].Address > v+offset })
				d.Start = uint32(lo)
				d.End = uint32(hi)
			}
		})
	}
	pool.Wait()
	return nil
}
