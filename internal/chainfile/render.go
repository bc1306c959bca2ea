// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/chainscan/chainscan/internal/chainsearch"
)

// leveled is the shape the renderer needs, satisfied by either a freshly
// built chainsearch.Result/Tree pair or a ChainInfo just read back from
// disk — letting RenderChainsToText and FormatBinToText share one
// DFS implementation.
type leveled struct {
	symbols  []SymbolEntry
	contents [][]Dir
}

func fromTree(ranges []chainsearch.Range, tree *chainsearch.Tree) leveled {
	symbols := make([]SymbolEntry, len(ranges))
	for i, r := range ranges {
		symbols[i] = SymbolEntry{
			Start: r.Module.Start,
			Name:  r.Module.Name,
			Count: int32(r.Module.Index),
			Level: int32(r.Level),
			Dirs:  r.Results.Slice(),
		}
	}
	return leveled{symbols: symbols, contents: tree.Contents}
}

func fromChainInfo(info *ChainInfo) leveled {
	contents := make([][]Dir, len(info.LevelBlocks))
	for _, b := range info.LevelBlocks {
		if int(b.Level) >= 0 && int(b.Level) < len(contents) {
			contents[b.Level] = b.Dirs
		}
	}
	return leveled{symbols: info.Symbols, contents: contents}
}

// renderFrame is one entry of the explicit DFS stack used in place of
// the original's recursive lambda (Design Notes §9): level is the frame
// being expanded, dir is its Dir record, and offsets holds every off_i
// rendered so far on the path from the sink down to this frame.
type renderFrame struct {
	level   int
	dir     Dir
	offsets []uint64
}

// chainRecord is one flattened, complete chain: the module it sinks at
// and the full offset list (rootOffset first, then off_1..off_{L-1}).
type chainRecord struct {
	module  string
	index   int32
	offsets []uint64
}

// walkChains depth-first traverses l and invokes emit once per complete
// chain — the shared core of text rendering (render.go) and chain
// comparison (compare.go), so both read the tree the same way.
func walkChains(l leveled, emit func(chainRecord)) error {
	for _, s := range l.symbols {
		for _, d := range s.Dirs {
			rootOffset := d.Address - s.Start
			if err := walkOne(s.Name, s.Count, rootOffset, int(s.Level), d, l.contents, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkOne(name string, index int32, rootOffset uint64, level int, d Dir, contents [][]Dir, emit func(chainRecord)) error {
	if level == 0 {
		emit(chainRecord{module: name, index: index, offsets: []uint64{rootOffset}})
		return nil
	}
	stack := []renderFrame{{level: level, dir: d}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.level == 1 {
			if int(f.dir.End) > len(contents[0]) || f.dir.Start > f.dir.End {
				continue
			}
			for c := f.dir.Start; c < f.dir.End; c++ {
				leaf := contents[0][c]
				off := leaf.Address - f.dir.Value
				full := make([]uint64, 0, len(f.offsets)+2)
				full = append(full, rootOffset)
				full = append(full, f.offsets...)
				if off != 0 {
					full = append(full, off)
				}
				emit(chainRecord{module: name, index: index, offsets: full})
			}
			continue
		}

		childLevel := f.level - 1
		if childLevel < 0 || childLevel >= len(contents) {
			continue
		}
		children := contents[childLevel]
		if int(f.dir.End) > len(children) || f.dir.Start > f.dir.End {
			continue
		}
		for c := int(f.dir.End) - 1; c >= int(f.dir.Start); c-- {
			child := children[c]
			off := child.Address - f.dir.Value
			next := make([]uint64, len(f.offsets)+1)
			copy(next, f.offsets)
			next[len(f.offsets)] = off
			stack = append(stack, renderFrame{level: childLevel, dir: child, offsets: next})
		}
	}
	return nil
}

// renderText walks l depth-first and writes one line per complete chain,
// returning the number of lines written.
//
// Grounded on chainer::search<T>::output_chain_to_txt in the original
// tool: same "module[idx] + 0xroot -> + 0xoff..." line shape; the final
// level-1-to-level-0 landing offset (dereferenced value to the matched
// target address) is appended like any other hop, but only when
// nonzero — an exact hit needs no "+0x0" noise (spec.md §8 scenarios 2
// and 3 render identically except for this one term).
func renderText(w io.Writer, l leveled) (uint64, error) {
	bw := bufio.NewWriter(w)
	var total uint64
	var writeErr error

	err := walkChains(l, func(rec chainRecord) {
		if writeErr != nil {
			return
		}
		name := fmt.Sprintf("%s[%d]", rec.module, rec.index)
		if len(rec.offsets) == 0 {
			return
		}
		if _, err := fmt.Fprintf(bw, "%s + 0x%x", name, rec.offsets[0]); err != nil {
			writeErr = err
			return
		}
		for _, off := range rec.offsets[1:] {
			if _, err := fmt.Fprintf(bw, " -> + 0x%x", off); err != nil {
				writeErr = err
				return
			}
		}
		if _, err := bw.Write([]byte{'\n'}); err != nil {
			writeErr = err
			return
		}
		total++
	})
	if err != nil {
		return total, err
	}
	if writeErr != nil {
		return total, writeErr
	}
	if err := bw.Flush(); err != nil {
		return total, err
	}
	return total, nil
}

// RenderChainsToText writes the text rendering of a freshly built
// BFS result directly, without going through a binary file — the
// ScanPointerChainToText contract of §6.3.
func RenderChainsToText(w io.Writer, ranges []chainsearch.Range, tree *chainsearch.Tree) (uint64, error) {
	return renderText(w, fromTree(ranges, tree))
}

// FormatBinToText reads a chain file written by Write and renders it as
// text, the FormatBinToText contract of §6.3.
func FormatBinToText(inPath string, w io.Writer) (uint64, error) {
	info, err := Read(inPath)
	if err != nil {
		return 0, err
	}
	defer info.Close()
	return renderText(w, fromChainInfo(info))
}
