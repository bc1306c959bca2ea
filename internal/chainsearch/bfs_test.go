// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainsearch

import (
	"testing"

	"github.com/chainscan/chainscan/internal/procfs"
	"github.com/chainscan/chainscan/internal/spillqueue"
	"github.com/chainscan/chainscan/internal/workerpool"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T, entries ...Pointer) *spillqueue.Queue[Pointer] {
	t.Helper()
	q := spillqueue.New[Pointer]()
	require.NoError(t, q.AppendAll(entries))
	return q
}

func TestRunEmptyTargetsReturnsEmptyResult(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Close()
	res, err := Run(spillqueue.New[Pointer](), nil, pool, Options{})
	require.NoError(t, err)
	require.Nil(t, res.Dirs)
	require.Nil(t, res.Ranges)
}

func TestRunDirectHitAtDepthZero(t *testing.T) {
	const target = 0x20000
	modules := []procfs.Module{{Start: 0x1fff0, End: 0x20010, Kind: procfs.DataApp, Name: "lib.so", Index: 1}}

	pool := workerpool.New(2)
	defer pool.Close()

	res, err := Run(newTable(t), modules, pool, Options{Targets: []uint64{target}, Depth: 0, OffsetWindow: 8})
	require.NoError(t, err)
	require.Len(t, res.Ranges, 1)
	require.Equal(t, 0, res.Ranges[0].Level)
	require.Equal(t, "lib.so", res.Ranges[0].Module.Name)
	require.Equal(t, 1, res.Ranges[0].Results.Len())
	require.Equal(t, uint64(target), res.Ranges[0].Results.At(0).Address)

	tree := BuildTree(res.Dirs, res.Ranges)
	require.EqualValues(t, 1, TotalChains(res.Ranges, tree))
}

func TestRunOneHopWithinOffsetWindowReachesModule(t *testing.T) {
	const target = 0x20000
	const window = 8
	module := procfs.Module{Start: 0x9000, End: 0x9100, Kind: procfs.DataApp, Name: "lib.so", Index: 1}

	table := newTable(t,
		Pointer{Address: 0x9050, Value: target - 4}, // inside module, within window -> sink
		Pointer{Address: 0x9200, Value: target - 20}, // outside window -> dropped
		Pointer{Address: 0xa000, Value: target - 6},  // within window, outside any module -> dead-end frontier
	)

	pool := workerpool.New(2)
	defer pool.Close()

	res, err := Run(table, []procfs.Module{module}, pool, Options{
		Targets: []uint64{target}, Depth: 1, OffsetWindow: window,
	})
	require.NoError(t, err)
	require.Len(t, res.Dirs, 2)

	require.Len(t, res.Ranges, 1)
	sink := res.Ranges[0]
	require.Equal(t, 1, sink.Level)
	require.Equal(t, "lib.so", sink.Module.Name)
	require.Equal(t, 1, sink.Results.Len())
	require.Equal(t, uint64(0x9050), sink.Results.At(0).Address)
	require.Equal(t, uint64(target-4), sink.Results.At(0).Value)

	// The outside-window candidate at 0x9200 was rejected by the table
	// scan; only the in-window, non-module candidate (0xa000) survives as a
	// dead-end frontier entry at level 1.
	require.Equal(t, 1, res.Dirs[1].Len())
	require.Equal(t, uint64(0xa000), res.Dirs[1].At(0).Address)

	tree := BuildTree(res.Dirs, res.Ranges)
	require.EqualValues(t, 1, TotalChains(res.Ranges, tree))
	require.Len(t, tree.Contents[0], 1)
	require.Equal(t, uint64(target), tree.Contents[0][0].Address)
	// The dead-end frontier entry at level 1 never survives compaction.
	require.Len(t, tree.Contents[1], 0)
}

func TestRunNoMatchesReturnsZeroChains(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Close()

	table := newTable(t, Pointer{Address: 0x1000, Value: 0xdead})
	res, err := Run(table, nil, pool, Options{Targets: []uint64{0x20000}, Depth: 2, OffsetWindow: 4})
	require.NoError(t, err)
	require.Len(t, res.Ranges, 0)

	tree := BuildTree(res.Dirs, res.Ranges)
	require.EqualValues(t, 0, TotalChains(res.Ranges, tree))
}
