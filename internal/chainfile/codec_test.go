// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/chainscan/chainscan/internal/chainsearch"
	"github.com/chainscan/chainscan/internal/procfs"
	"github.com/chainscan/chainscan/internal/spillqueue"
	"github.com/chainscan/chainscan/internal/workerpool"
	"github.com/stretchr/testify/require"
)

// buildOneHopResult mirrors the scan scenario in spec §8.3: a module
// `lib.so` containing a pointer at offset 0x100 whose value is 0x10
// short of the target, found with depth=2, offset=0x20.
func buildOneHopResult(t *testing.T) ([]chainsearch.Range, *chainsearch.Tree) {
	t.Helper()
	const target = 0xCAFE0010
	const base = 0x70000000
	module := procfs.Module{Start: base, End: base + 0x1000, Kind: procfs.CodeApp, Name: "lib.so", Index: 1}

	table := spillqueue.New[chainsearch.Pointer]()
	require.NoError(t, table.AppendAll([]chainsearch.Pointer{
		{Address: base + 0x100, Value: 0xCAFE0000},
	}))

	pool := workerpool.New(2)
	defer pool.Close()

	res, err := chainsearch.Run(table, []procfs.Module{module}, pool, chainsearch.Options{
		Targets: []uint64{target}, Depth: 2, OffsetWindow: 0x20,
	})
	require.NoError(t, err)
	tree := chainsearch.BuildTree(res.Dirs, res.Ranges)
	return res.Ranges, tree
}

func TestRenderChainsToTextMatchesScenario(t *testing.T) {
	ranges, tree := buildOneHopResult(t)
	var buf bytes.Buffer
	total, err := RenderChainsToText(&buf, ranges, tree)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "lib.so[1] + 0x100 -> + 0x10\n", buf.String())
}

// TestRenderChainsToTextExactHitOmitsZeroOffset mirrors spec §8.2: an
// exact match (offset window 0) renders with no trailing "+0x0" noise.
func TestRenderChainsToTextExactHitOmitsZeroOffset(t *testing.T) {
	const target = 0xDEADBEEF
	const base = 0x70000000
	module := procfs.Module{Start: base, End: base + 0x1000, Kind: procfs.CodeApp, Name: "lib.so", Index: 1}

	table := spillqueue.New[chainsearch.Pointer]()
	require.NoError(t, table.AppendAll([]chainsearch.Pointer{
		{Address: base + 0x100, Value: target},
	}))

	pool := workerpool.New(2)
	defer pool.Close()

	res, err := chainsearch.Run(table, []procfs.Module{module}, pool, chainsearch.Options{
		Targets: []uint64{target}, Depth: 1, OffsetWindow: 0,
	})
	require.NoError(t, err)
	tree := chainsearch.BuildTree(res.Dirs, res.Ranges)

	var buf bytes.Buffer
	total, err := RenderChainsToText(&buf, res.Ranges, tree)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "lib.so[1] + 0x100\n", buf.String())
}

// TestRenderChainsToTextOffsetWindowExcludes mirrors spec §8.4: shrinking
// the offset window below the actual gap drops the chain entirely.
func TestRenderChainsToTextOffsetWindowExcludes(t *testing.T) {
	const target = 0xCAFE0010
	const base = 0x70000000
	module := procfs.Module{Start: base, End: base + 0x1000, Kind: procfs.CodeApp, Name: "lib.so", Index: 1}

	table := spillqueue.New[chainsearch.Pointer]()
	require.NoError(t, table.AppendAll([]chainsearch.Pointer{
		{Address: base + 0x100, Value: 0xCAFE0000},
	}))

	pool := workerpool.New(2)
	defer pool.Close()

	res, err := chainsearch.Run(table, []procfs.Module{module}, pool, chainsearch.Options{
		Targets: []uint64{target}, Depth: 2, OffsetWindow: 0x0F,
	})
	require.NoError(t, err)
	tree := chainsearch.BuildTree(res.Dirs, res.Ranges)
	require.EqualValues(t, 0, chainsearch.TotalChains(res.Ranges, tree))

	var buf bytes.Buffer
	total, err := RenderChainsToText(&buf, res.Ranges, tree)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, buf.String())
}

func TestWriteReadRenderRoundTrip(t *testing.T) {
	ranges, tree := buildOneHopResult(t)

	var want bytes.Buffer
	_, err := RenderChainsToText(&want, ranges, tree)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "scan_1.bin")
	total, err := Write(path, 8, ranges, tree)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	var got bytes.Buffer
	total2, err := FormatBinToText(path, &got)
	require.NoError(t, err)
	require.EqualValues(t, 1, total2)
	require.Equal(t, want.String(), got.String())
}

func TestWriteEmptyResultWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	total, err := Write(path, 8, nil, &chainsearch.Tree{})
	require.NoError(t, err)
	require.Zero(t, total)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestReadRejectsShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte("too short"), 0o644))
	_, err := Read(path)
	require.Error(t, err)
}
