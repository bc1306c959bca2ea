// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pointerscan implements the remote pointer scanner (C4): it
// reads every selected region of a traced process, extracts every
// word-aligned value whose low bits point into any mapped region, and
// produces a single ascending-by-address table of (address, value)
// records.
//
// Grounded on chainer::search<T>::get_pointers / filter_pointer_to_fmmap
// / output_pointer_to_file in the original tool: per-region buffers
// pulled from a BufferPool, regions processed in parallel through the
// thread pool, results concatenated back into address order. The merge
// copies each chunk's records into one output spill queue with
// AppendAll; it does not hand a file over through the queue's Adopt.
package pointerscan

import (
	"fmt"
	"sync"

	"github.com/chainscan/chainscan/internal/procfs"
	"github.com/chainscan/chainscan/internal/remote"
	"github.com/chainscan/chainscan/internal/spillqueue"
	"github.com/chainscan/chainscan/internal/workerpool"
)

// Pointer is one (address, value) record: address is a location inside
// the target process, value is the word read from it.
type Pointer struct {
	Address uint64
	Value   uint64
}

// Options configures a scan.
type Options struct {
	PointerSize int // 4 or 8
	BufferSize  int // bytes per read buffer, default 1 MiB
	NumBuffers  int // concurrent read buffers, default pool worker count
}

func (o Options) withDefaults(workers int) Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 1 << 20
	}
	if o.NumBuffers <= 0 {
		o.NumBuffers = workers
	}
	if o.PointerSize != 4 && o.PointerSize != 8 {
		o.PointerSize = 8
	}
	return o
}

// chunk is one unit of scan work: a byte range of one region.
type chunk struct {
	region procfs.Region
	start  uint64
	length int
}

// Scan reads every region in `selected` (assumed sorted ascending by
// Start, as ParseMaps guarantees) from reader, and returns a spill
// queue of Pointer records sorted ascending by Address with no
// duplicates (P2). `allRegions` is the full, ascending region list used
// to test whether a candidate value lands inside any mapped region —
// it need not equal `selected`.
func Scan(reader remote.Reader, allRegions, selected []procfs.Region, pool *workerpool.Pool, opts Options) (*spillqueue.Queue[Pointer], error) {
	opts = opts.withDefaults(workerpool.DefaultWorkers())
	if len(selected) == 0 {
		return spillqueue.New[Pointer](), nil
	}

	chunks := planChunks(selected, opts.BufferSize)
	partials := make([]*spillqueue.Queue[Pointer], len(chunks))
	bufPool := NewBufferPool(opts.NumBuffers, opts.BufferSize)

	var firstErr error
	var errMu sync.Mutex
	recordErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for i, c := range chunks {
		i, c := i, c
		pool.Submit(func() {
			buf := bufPool.Acquire()
			defer bufPool.Release(buf)

			q, err := scanChunk(reader, c, buf[:c.length], allRegions, opts.PointerSize)
			if err != nil {
				recordErr(err)
				return
			}
			partials[i] = q
		})
	}
	pool.Wait()

	if firstErr != nil {
		for _, q := range partials {
			if q != nil {
				q.Close()
			}
		}
		return nil, fmt.Errorf("pointerscan: %w", firstErr)
	}

	total := 0
	for _, q := range partials {
		total += q.Len()
	}
	out := spillqueue.New[Pointer]()
	if err := out.Reserve(total); err != nil {
		return nil, fmt.Errorf("pointerscan: reserve output: %w", err)
	}
	for _, q := range partials {
		if q.Len() > 0 {
			if err := out.AppendAll(q.Slice()); err != nil {
				return nil, fmt.Errorf("pointerscan: merge chunk: %w", err)
			}
		}
		q.Close()
	}
	return out, nil
}

func planChunks(selected []procfs.Region, bufSize int) []chunk {
	var chunks []chunk
	for _, r := range selected {
		remaining := r.Size()
		off := r.Start
		for remaining > 0 {
			n := uint64(bufSize)
			if n > remaining {
				n = remaining
			}
			chunks = append(chunks, chunk{region: r, start: off, length: int(n)})
			off += n
			remaining -= n
		}
	}
	return chunks
}

// scanChunk reads one chunk and extracts candidate pointers, mirroring
// output_pointer_to_file's low-bits mask + bounds-reject + binary-search
// sequence. Regions are disjoint, so no chunk can produce a duplicate
// address.
func scanChunk(reader remote.Reader, c chunk, buf []byte, allRegions []procfs.Region, ptrSize int) (*spillqueue.Queue[Pointer], error) {
	if err := reader.ReadAt(c.start, buf); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	mask := uint64(0xffffffff)
	if ptrSize == 8 {
		mask = 0x0000ffffffffffff
	}

	min, max := procfs.Bounds(allRegions)
	span := max - min

	out := spillqueue.New[Pointer]()
	n := len(buf) / ptrSize
	if err := out.Reserve(n); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		off := i * ptrSize
		var raw uint64
		if ptrSize == 8 {
			raw = leUint64(buf[off : off+8])
		} else {
			raw = uint64(leUint32(buf[off : off+4]))
		}
		value := raw & mask
		if value < min || value-min > span {
			continue
		}
		if !procfs.Contains(allRegions, value) {
			continue
		}
		addr := c.start + uint64(off)
		if err := out.PushBack(Pointer{Address: addr, Value: value}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	return uint64(leUint32(b[0:4])) | uint64(leUint32(b[4:8]))<<32
}
