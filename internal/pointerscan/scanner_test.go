// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pointerscan

import (
	"encoding/binary"
	"testing"

	"github.com/chainscan/chainscan/internal/procfs"
	"github.com/chainscan/chainscan/internal/remote"
	"github.com/chainscan/chainscan/internal/workerpool"
	"github.com/stretchr/testify/require"
)

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestScanFindsInBoundsPointersOnly(t *testing.T) {
	const base = 0x10000
	const target = 0x20000

	data := make([]byte, 64)
	binary.LittleEndian.PutUint64(data[0:8], target)  // in-bounds pointer
	binary.LittleEndian.PutUint64(data[8:16], 0xdead) // out of bounds, dropped
	binary.LittleEndian.PutUint64(data[16:24], target+8)

	reader := remote.NewFakeReader()
	reader.Put(base, data)

	regions := []procfs.Region{
		{Start: base, End: base + 64, Kind: procfs.Heap},
		{Start: target, End: target + 0x1000, Kind: procfs.CodeApp},
	}

	pool := workerpool.New(2)
	defer pool.Close()

	q, err := Scan(reader, regions, regions[:1], pool, Options{PointerSize: 8, BufferSize: 64})
	require.NoError(t, err)
	defer q.Close()

	require.Equal(t, 2, q.Len())
	require.Equal(t, uint64(base), q.At(0).Address)
	require.Equal(t, uint64(target), q.At(0).Value)
	require.Equal(t, uint64(base+16), q.At(1).Address)
	require.Equal(t, uint64(target+8), q.At(1).Value)
}

func TestScanEmptySelectionReturnsEmptyQueue(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Close()
	q, err := Scan(remote.NewFakeReader(), nil, nil, pool, Options{PointerSize: 8})
	require.NoError(t, err)
	defer q.Close()
	require.Equal(t, 0, q.Len())
}
