// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPidFromArgNumericPassesThrough(t *testing.T) {
	pid, err := pidFromArg("4242")
	require.NoError(t, err)
	require.Equal(t, 4242, pid)
}

func TestPidFromArgResolvesOwnProcessByName(t *testing.T) {
	self := os.Getpid()
	cmdline, err := os.ReadFile("/proc/self/cmdline")
	require.NoError(t, err)
	if len(cmdline) == 0 {
		t.Skip("cmdline unavailable in this sandbox")
	}

	end := 0
	for end < len(cmdline) && cmdline[end] != 0 {
		end++
	}
	argv0 := string(cmdline[:end])
	base := argv0
	if i := len(argv0) - 1; i >= 0 {
		for j := i; j >= 0; j-- {
			if argv0[j] == '/' {
				base = argv0[j+1:]
				break
			}
		}
	}

	pid, err := pidFromArg(base)
	require.NoError(t, err)
	require.Equal(t, self, pid)
}

func TestPidFromArgUnknownNameErrors(t *testing.T) {
	_, err := pidFromArg("definitely-not-a-real-process-" + strconv.Itoa(os.Getpid()))
	require.Error(t, err)
}
