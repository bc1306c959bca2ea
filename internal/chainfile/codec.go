// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/chainscan/chainscan/internal/chainerr"
	"github.com/chainscan/chainscan/internal/chainsearch"
	"github.com/chainscan/chainscan/internal/procfs"
	"golang.org/x/sys/unix"
)

// Write serialises ranges/tree to path in the wire format of §6.1. If
// there are no chains at all, nothing is written and (0, nil) is
// returned, matching "empty-result cases return success with count 0
// and do not write an output file".
func Write(path string, ptrSize int, ranges []chainsearch.Range, tree *chainsearch.Tree) (uint64, error) {
	total := chainsearch.TotalChains(ranges, tree)
	if len(ranges) == 0 || total == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	if err := writeHeader(&buf, Header{
		Sign:        signPrefix,
		ModuleCount: int32(len(ranges)),
		Version:     wireVersion,
		Size:        int32(ptrSize),
		Level:       int32(len(tree.Contents)),
	}); err != nil {
		return 0, fmt.Errorf("chainfile: write header: %w: %w", chainerr.ErrIO, err)
	}

	for _, r := range ranges {
		dirs := r.Results.Slice()
		entry := SymbolEntry{
			Start:        r.Module.Start,
			Name:         r.Module.Name,
			Range:        moduleKindMask(r.Module),
			Count:        int32(r.Module.Index),
			PointerCount: int32(len(dirs)),
			Level:        int32(r.Level),
			Dirs:         dirs,
		}
		if err := writeSymbolEntry(&buf, entry, ptrSize); err != nil {
			return 0, fmt.Errorf("chainfile: write symbol %q: %w: %w", entry.Name, chainerr.ErrIO, err)
		}
	}

	for level, content := range tree.Contents {
		block := LevelBlock{Count: uint32(len(content)), Level: int32(level), Dirs: content}
		if err := writeLevelBlock(&buf, block, ptrSize); err != nil {
			return 0, fmt.Errorf("chainfile: write level %d: %w: %w", level, chainerr.ErrIO, err)
		}
	}

	// Write to a temp file then rename, so a failure never leaves a
	// truncated/partial chain file at path (§7: "output file is
	// truncated on any write path failure" — here we simply never let
	// a half-written file become visible at all).
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("chainfile: write %s: %w: %w", path, chainerr.ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("chainfile: rename into place %s: %w: %w", path, chainerr.ErrIO, err)
	}
	return total, nil
}

func moduleKindMask(m procfs.Module) int32 { return int32(m.Kind) }

func writeHeader(w io.Writer, h Header) error {
	var sign [signFieldLen]byte
	copy(sign[:], h.Sign)
	if err := binary.Write(w, binary.LittleEndian, sign); err != nil {
		return err
	}
	for _, v := range []int32{h.ModuleCount, h.Version, h.Size, h.Level} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	// Pad to the declared 152-byte header size.
	pad := make([]byte, headerLen-signFieldLen-4*4)
	_, err := w.Write(pad)
	return err
}

func writeSymbolEntry(w io.Writer, e SymbolEntry, ptrSize int) error {
	if err := writeWord(w, e.Start, ptrSize); err != nil {
		return err
	}
	var name [nameFieldLen]byte
	copy(name[:], e.Name)
	if err := binary.Write(w, binary.LittleEndian, name); err != nil {
		return err
	}
	for _, v := range []int32{e.Range, e.Count, e.PointerCount, e.Level} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, d := range e.Dirs {
		if err := writeDir(w, d, ptrSize); err != nil {
			return err
		}
	}
	return nil
}

func writeLevelBlock(w io.Writer, b LevelBlock, ptrSize int) error {
	for _, v := range []int32{b.ModuleCount} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, b.Count); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, b.Level); err != nil {
		return err
	}
	for _, d := range b.Dirs {
		if err := writeDir(w, d, ptrSize); err != nil {
			return err
		}
	}
	return nil
}

func writeWord(w io.Writer, v uint64, ptrSize int) error {
	buf := make([]byte, ptrSize)
	if ptrSize == 8 {
		binary.LittleEndian.PutUint64(buf, v)
	} else {
		binary.LittleEndian.PutUint32(buf, uint32(v))
	}
	_, err := w.Write(buf)
	return err
}

func writeDir(w io.Writer, d Dir, ptrSize int) error {
	if err := writeWord(w, d.Address, ptrSize); err != nil {
		return err
	}
	if err := writeWord(w, d.Value, ptrSize); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, d.Start); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, d.End)
}

// Read mmaps path read-write and decodes it into a ChainInfo. When the
// declared word size is 8, Dir arrays are zero-copy views straight into
// the mapping (chainsearch.Dir has the identical 24-byte layout); when
// it is 4, each Dir is decoded and widened into a freshly allocated
// slice, since the 16-byte 32-bit wire layout does not match the
// in-memory struct.
func Read(path string) (*ChainInfo, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("chainfile: open %s: %w: %w", path, chainerr.ErrIO, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("chainfile: stat %s: %w: %w", path, chainerr.ErrIO, err)
	}
	size := int(st.Size())
	if size < headerLen {
		f.Close()
		return nil, fmt.Errorf("chainfile: %s: %w: file shorter than header", path, chainerr.ErrMalformed)
	}
	mapping, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("chainfile: mmap %s: %w: %w", path, chainerr.ErrIO, err)
	}

	info, err := decode(mapping)
	if err != nil {
		unix.Munmap(mapping)
		f.Close()
		return nil, err
	}
	info.close = func() error {
		err1 := unix.Munmap(mapping)
		err2 := f.Close()
		if err1 != nil {
			return err1
		}
		return err2
	}
	return info, nil
}

func decode(mapping []byte) (*ChainInfo, error) {
	h, off, err := decodeHeader(mapping)
	if err != nil {
		return nil, err
	}
	if h.ModuleCount < 0 || h.Level < 0 {
		return nil, fmt.Errorf("chainfile: %w: negative module_count or level", chainerr.ErrMalformed)
	}
	ptrSize := int(h.Size)
	if ptrSize != 4 && ptrSize != 8 {
		return nil, fmt.Errorf("chainfile: %w: unsupported word size %d", chainerr.ErrMalformed, ptrSize)
	}

	minLen := headerLen + int(h.ModuleCount)*(ptrSize+nameFieldLen+symbolFixedSz) + int(h.Level)*levelFixedSz
	if len(mapping) < minLen {
		return nil, fmt.Errorf("chainfile: %w: file shorter than declared contents", chainerr.ErrMalformed)
	}

	symbols := make([]SymbolEntry, h.ModuleCount)
	for i := range symbols {
		e, n, err := decodeSymbolEntry(mapping[off:], ptrSize)
		if err != nil {
			return nil, err
		}
		symbols[i] = e
		off += n
	}

	blocks := make([]LevelBlock, h.Level)
	for i := range blocks {
		b, n, err := decodeLevelBlock(mapping[off:], ptrSize)
		if err != nil {
			return nil, err
		}
		blocks[i] = b
		off += n
	}

	return &ChainInfo{Header: h, Symbols: symbols, LevelBlocks: blocks}, nil
}

func decodeHeader(b []byte) (Header, int, error) {
	if len(b) < headerLen {
		return Header{}, 0, fmt.Errorf("chainfile: %w: short header", chainerr.ErrMalformed)
	}
	sign := cString(b[0:signFieldLen])
	if len(sign) < len(signPrefix) || sign[:len(signPrefix)] != signPrefix {
		return Header{}, 0, fmt.Errorf("chainfile: %w: bad signature %q", chainerr.ErrMalformed, sign)
	}
	off := signFieldLen
	moduleCount := int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	version := int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	size := int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	level := int32(binary.LittleEndian.Uint32(b[off:]))
	return Header{Sign: sign, ModuleCount: moduleCount, Version: version, Size: size, Level: level}, headerLen, nil
}

func decodeSymbolEntry(b []byte, ptrSize int) (SymbolEntry, int, error) {
	off := 0
	start := readWord(b[off:], ptrSize)
	off += ptrSize
	name := cString(b[off : off+nameFieldLen])
	off += nameFieldLen
	rangeBits := int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	count := int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	pointerCount := int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	level := int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	if pointerCount < 0 {
		return SymbolEntry{}, 0, fmt.Errorf("chainfile: %w: negative pointer_count", chainerr.ErrMalformed)
	}
	dirs, n, err := decodeDirs(b[off:], int(pointerCount), ptrSize)
	if err != nil {
		return SymbolEntry{}, 0, err
	}
	off += n
	return SymbolEntry{Start: start, Name: name, Range: rangeBits, Count: count, PointerCount: pointerCount, Level: level, Dirs: dirs}, off, nil
}

func decodeLevelBlock(b []byte, ptrSize int) (LevelBlock, int, error) {
	off := 0
	moduleCount := int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	count := binary.LittleEndian.Uint32(b[off:])
	off += 4
	level := int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	dirs, n, err := decodeDirs(b[off:], int(count), ptrSize)
	if err != nil {
		return LevelBlock{}, 0, err
	}
	off += n
	return LevelBlock{ModuleCount: moduleCount, Count: count, Level: level, Dirs: dirs}, off, nil
}

// decodeDirs returns a view over n Dir records starting at b[0]. For
// ptrSize 8 this is a true zero-copy cast of the mapping; for ptrSize 4
// each record is decoded and widened into a newly allocated slice.
func decodeDirs(b []byte, n int, ptrSize int) ([]Dir, int, error) {
	wireSize := dirWireSize(ptrSize)
	need := n * wireSize
	if n < 0 || len(b) < need {
		return nil, 0, fmt.Errorf("chainfile: %w: dir array truncated", chainerr.ErrMalformed)
	}
	if n == 0 {
		return nil, 0, nil
	}
	if ptrSize == 8 {
		return unsafe.Slice((*Dir)(unsafe.Pointer(&b[0])), n), need, nil
	}
	out := make([]Dir, n)
	for i := range out {
		rec := b[i*wireSize:]
		out[i] = Dir{
			Address: uint64(readWord(rec, ptrSize)),
			Value:   uint64(readWord(rec[ptrSize:], ptrSize)),
			Start:   binary.LittleEndian.Uint32(rec[2*ptrSize:]),
			End:     binary.LittleEndian.Uint32(rec[2*ptrSize+4:]),
		}
	}
	return out, need, nil
}

func readWord(b []byte, ptrSize int) uint64 {
	if ptrSize == 8 {
		return binary.LittleEndian.Uint64(b)
	}
	return uint64(binary.LittleEndian.Uint32(b))
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
