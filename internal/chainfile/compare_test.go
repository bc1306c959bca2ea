// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeChainText(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chains.txt")
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sharedALines(n int) []string {
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		lines[i] = fmt.Sprintf("A[1] + 0x%x -> + 0x%x", i, i+1)
	}
	return lines
}

func TestCompareSharedChainsAcrossDivergentFiles(t *testing.T) {
	shared := sharedALines(100)

	lhsLines := append(append([]string{}, shared...), "B[1] + 0x10", "B[1] + 0x20")
	rhsLines := append(append([]string{}, shared...), "C[1] + 0x30")

	lhs := writeChainText(t, lhsLines)
	rhs := writeChainText(t, rhsLines)

	res, err := Compare(lhs, rhs)
	require.NoError(t, err)
	require.EqualValues(t, len(lhsLines), res.LhsTotal)
	require.EqualValues(t, len(rhsLines), res.RhsTotal)
	require.EqualValues(t, 100, res.Unchanged)
	require.Len(t, res.Modules, 1)
	require.Equal(t, "A", res.Modules[0].Module)
	require.EqualValues(t, 1, res.Modules[0].Index)
	require.Len(t, res.Modules[0].Shared, 100)
}

func TestCompareIsSymmetric(t *testing.T) {
	shared := sharedALines(10)
	lhs := writeChainText(t, append(append([]string{}, shared...), "B[1] + 0x1"))
	rhs := writeChainText(t, append(append([]string{}, shared...), "C[2] + 0x2"))

	fwd, err := Compare(lhs, rhs)
	require.NoError(t, err)
	back, err := Compare(rhs, lhs)
	require.NoError(t, err)
	require.Equal(t, fwd.Unchanged, back.Unchanged)
}

func TestCompareSelfEqualsTotalChainCount(t *testing.T) {
	lines := append(sharedALines(5), "B[1] + 0x1", "B[1] + 0x1")
	path := writeChainText(t, lines)

	res, err := Compare(path, path)
	require.NoError(t, err)
	require.EqualValues(t, len(lines), res.Unchanged)
}

func TestCompareRejectsUnparseableText(t *testing.T) {
	path := writeChainText(t, []string{"not a chain line at all"})
	_, err := Compare(path, path)
	require.Error(t, err)
}
