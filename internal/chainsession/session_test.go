// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainsession

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWithNoSavedSessionReturnsZeroValue(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	s, err := Load()
	require.NoError(t, err)
	require.Equal(t, State{}, s)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	want := State{ProcessName: "com.example.app", SelectedModule: "libnative.so"}
	require.NoError(t, Save(want))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSaveOverwritesPreviousSession(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, Save(State{ProcessName: "first"}))
	require.NoError(t, Save(State{ProcessName: "second"}))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, "second", got.ProcessName)
}

func TestNextOutputPathSkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan_1.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan_2.txt"), []byte("x"), 0o644))

	path, err := NextOutputPath(dir, "scan", ".txt")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "scan_3.txt"), path)
}

func TestNextOutputPathStartsAtOneForEmptyDir(t *testing.T) {
	dir := t.TempDir()
	path, err := NextOutputPath(dir, "scan", ".txt")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "scan_1.txt"), path)
}
