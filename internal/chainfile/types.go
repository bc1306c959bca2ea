// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chainfile implements the chain binary file codec (C7) and the
// chain comparator (C8).
//
// Grounded on the wire format in spec.md §6.1 and on the teacher's
// debug/elf-style raw struct (de)serialization via encoding/binary
// (core/mapping.go, dwarf/read.go read fixed-size headers the same
// way) rather than a self-describing format: the layout is externally
// specified byte-for-byte, so a schema codec (protobuf, gob) would add
// a dependency without buying anything — see DESIGN.md.
package chainfile

import "github.com/chainscan/chainscan/internal/chainsearch"

// Dir is the on-disk/in-memory directory record; identical in shape to
// chainsearch.Dir; the alias keeps chainfile's exported API from
// forcing every caller to also import chainsearch just for this type.
type Dir = chainsearch.Dir

const (
	signPrefix    = ".bin from chainer"
	signFieldLen  = 128
	nameFieldLen  = 64
	headerLen     = 152
	wireVersion   = 101
	symbolFixedSz = 4 + 4 + 4 + 4 // range, count, pointer_count, level (start is word-sized and name is nameFieldLen bytes, sized separately)
	levelFixedSz  = 4 + 4 + 4     // module_count, count, level
)

// Header is the 152-byte file header.
type Header struct {
	Sign        string // must begin with signPrefix
	ModuleCount int32
	Version     int32
	Size        int32 // sizeof(word): 4 or 8
	Level       int32 // number of LevelBlocks, also max depth (exclusive)
}

// SymbolEntry describes one sink: a static module that a chain search
// terminated at, at a specific level, plus the Dir records (addresses
// inside that module) that reached it.
type SymbolEntry struct {
	Start        uint64
	Name         string // may end in ":bss"
	Range        int32  // kind bitmask
	Count        int32  // 1-based disambiguator
	PointerCount int32
	Level        int32
	Dirs         []Dir
}

// LevelBlock holds one BFS level's compacted, deduplicated content.
type LevelBlock struct {
	ModuleCount int32 // informational only
	Count       uint32
	Level       int32
	Dirs        []Dir
}

// ChainInfo is a fully-read chain file: a header, its SymbolEntries, and
// its LevelBlocks, recovered either via a zero-copy mmap view (64-bit
// word size, matching chainsearch.Dir's native layout exactly) or via a
// decode-and-widen copy (32-bit word size).
type ChainInfo struct {
	Header      Header
	Symbols     []SymbolEntry
	LevelBlocks []LevelBlock

	close func() error
}

// Close releases any backing mapping. Safe to call on a ChainInfo built
// without one.
func (c *ChainInfo) Close() error {
	if c.close != nil {
		return c.close()
	}
	return nil
}

func dirWireSize(ptrSize int) int { return 2*ptrSize + 8 }
