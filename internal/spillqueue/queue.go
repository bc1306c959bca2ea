// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spillqueue implements an append-only, random-access container
// backed by anonymous shared memory, so that the tens of millions of
// intermediate pointer/directory records a chain search can produce
// don't have to live on the Go heap.
//
// Adapted from utils::mapqueue<T> in the original chainer tool: same
// geometric growth policy, same reserve/adopt/swap/shrink contract, same
// "grow by remapping a fresh region and copying the live prefix" model —
// but using Go's mmap wrapper (golang.org/x/sys/unix, already a teacher
// dependency) over an unlinked tempfile instead of raw mmap/ashmem calls.
// Android's ashmem path from the original isn't reachable from a
// standalone Go binary without cgo, so every platform uses the tempfile
// path; see DESIGN.md.
package spillqueue

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/chainscan/chainscan/internal/chainerr"
	"golang.org/x/sys/unix"
)

// Queue is an append-only, indexable sequence of T backed by a memory
// mapping. T must be a fixed-size, pointer-free struct (the elements are
// copied with memmove-equivalent semantics across mmap regions and,
// when adopted, across process-independent files).
type Queue[T any] struct {
	file     *os.File
	mapping  []byte
	data     []T
	size     int
	capacity int
}

// New returns an empty queue with no backing storage allocated yet.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

func elemSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Len returns the number of live elements.
func (q *Queue[T]) Len() int { return q.size }

// Cap returns the current capacity.
func (q *Queue[T]) Cap() int { return q.capacity }

// Empty reports whether the queue has no live elements.
func (q *Queue[T]) Empty() bool { return q.size == 0 }

// At returns a pointer to element i, which aliases the backing mapping;
// callers must not retain it past a Reserve/PushBack/Shrink/Swap call.
func (q *Queue[T]) At(i int) *T { return &q.data[i] }

// Slice returns the live prefix of the backing storage as a slice. Like
// At, the returned slice aliases the mapping and is invalidated by any
// mutating call.
func (q *Queue[T]) Slice() []T { return q.data[:q.size] }

func (q *Queue[T]) Front() *T { return &q.data[0] }
func (q *Queue[T]) Back() *T  { return &q.data[q.size-1] }

// growCapacity mirrors utils::mapqueue<T>::grow_capacity: cap' = max(n,
// cap + cap/2, 8).
func growCapacity(cap, n int) int {
	next := cap + cap/2
	if cap == 0 {
		next = 0
	}
	if next < 8 {
		next = 8
	}
	if n > next {
		next = n
	}
	return next
}

// Reserve ensures capacity >= n, growing geometrically. It either fully
// succeeds (the new capacity becomes visible) or leaves the queue
// completely unchanged — reserve never partially succeeds.
func (q *Queue[T]) Reserve(n int) error {
	if n <= q.capacity {
		return nil
	}
	newCap := growCapacity(q.capacity, n)
	size := elemSize[T]() * newCap
	if size == 0 {
		size = 1
	}

	f, err := os.CreateTemp("", "chainscan-spill-*")
	if err != nil {
		return fmt.Errorf("spillqueue: create backing file: %w: %w", chainerr.ErrIO, err)
	}
	// Unlink at once; the open descriptor and the mapping keep the
	// storage alive until closeBacking.
	os.Remove(f.Name())
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("spillqueue: truncate backing file: %w: %w", chainerr.ErrIO, err)
	}
	mapping, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("spillqueue: mmap backing file: %w: %w", chainerr.ErrOutOfMemory, err)
	}

	newData := unsafe.Slice((*T)(unsafe.Pointer(&mapping[0])), newCap)
	if q.size > 0 {
		copy(newData, q.data[:q.size])
	}

	q.closeBacking()
	q.file = f
	q.mapping = mapping
	q.data = newData
	q.capacity = newCap
	return nil
}

// PushBack appends v, growing the backing storage if necessary.
func (q *Queue[T]) PushBack(v T) error {
	if q.size == q.capacity {
		if err := q.Reserve(q.size + 1); err != nil {
			return err
		}
	}
	q.data[q.size] = v
	q.size++
	return nil
}

// EmplaceBack is an alias for PushBack kept for parity with the
// original's emplace_back call sites; Go has no placement-new distinct
// from assignment for value types.
func (q *Queue[T]) EmplaceBack(v T) error { return q.PushBack(v) }

// AppendAll appends every element of src in order, reserving once up
// front rather than growing incrementally — the bulk-copy analogue of
// utils::cat_file_to_another's buffered file concatenation, used when
// merging per-chunk/per-level partial results back into one queue.
func (q *Queue[T]) AppendAll(src []T) error {
	if len(src) == 0 {
		return nil
	}
	if q.size+len(src) > q.capacity {
		if err := q.Reserve(q.size + len(src)); err != nil {
			return err
		}
	}
	copy(q.data[q.size:q.size+len(src)], src)
	q.size += len(src)
	return nil
}

// Clear resets the logical size but keeps the backing storage.
func (q *Queue[T]) Clear() { q.size = 0 }

// Shrink releases the backing storage entirely.
func (q *Queue[T]) Shrink() {
	q.closeBacking()
	q.data = nil
	q.size = 0
	q.capacity = 0
}

func (q *Queue[T]) closeBacking() {
	if q.mapping != nil {
		unix.Munmap(q.mapping)
		q.mapping = nil
	}
	if q.file != nil {
		name := q.file.Name()
		q.file.Close()
		os.Remove(name)
		q.file = nil
	}
}

// Adopt re-points the queue at an already-populated file, mapping it
// read-write and setting size/capacity from the file size. The pointer
// scanner does not use it: it merges per-chunk output with AppendAll.
func (q *Queue[T]) Adopt(f *os.File) error {
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("spillqueue: stat adopted file: %w", err)
	}
	size := int(st.Size())
	q.closeBacking()
	if size == 0 {
		q.file = f
		q.data = nil
		q.size = 0
		q.capacity = 0
		return nil
	}
	mapping, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("spillqueue: mmap adopted file: %w", err)
	}
	n := size / elemSize[T]()
	q.file = f
	q.mapping = mapping
	q.data = unsafe.Slice((*T)(unsafe.Pointer(&mapping[0])), n)
	q.size = n
	q.capacity = n
	return nil
}

// Swap exchanges the contents of q and other in O(1).
func (q *Queue[T]) Swap(other *Queue[T]) {
	*q, *other = *other, *q
}

// Close releases backing storage; safe to call multiple times.
func (q *Queue[T]) Close() { q.Shrink() }
