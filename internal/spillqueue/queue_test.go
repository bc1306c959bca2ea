// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spillqueue

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type rec struct {
	A, B uint64
}

func TestPushBackAndGrow(t *testing.T) {
	q := New[rec]()
	defer q.Close()

	for i := 0; i < 1000; i++ {
		require.NoError(t, q.PushBack(rec{A: uint64(i), B: uint64(i * 2)}))
	}
	require.Equal(t, 1000, q.Len())
	require.GreaterOrEqual(t, q.Cap(), 1000)
	for i := 0; i < 1000; i++ {
		require.Equal(t, uint64(i), q.At(i).A)
		require.Equal(t, uint64(i*2), q.At(i).B)
	}
}

func TestClearKeepsCapacity(t *testing.T) {
	q := New[rec]()
	defer q.Close()
	require.NoError(t, q.Reserve(64))
	for i := 0; i < 10; i++ {
		require.NoError(t, q.PushBack(rec{A: uint64(i)}))
	}
	cap := q.Cap()
	q.Clear()
	require.Equal(t, 0, q.Len())
	require.Equal(t, cap, q.Cap())
}

func TestShrinkReleasesStorage(t *testing.T) {
	q := New[rec]()
	require.NoError(t, q.PushBack(rec{A: 1}))
	q.Shrink()
	require.Equal(t, 0, q.Len())
	require.Equal(t, 0, q.Cap())
}

func TestAdoptExistingFile(t *testing.T) {
	f, err := os.CreateTemp("", "adopt-*")
	require.NoError(t, err)
	defer os.Remove(f.Name())

	want := []rec{{A: 1, B: 2}, {A: 3, B: 4}, {A: 5, B: 6}}
	for _, r := range want {
		require.NoError(t, writeRec(f, r))
	}

	q := New[rec]()
	defer q.Close()
	require.NoError(t, q.Adopt(f))
	require.Equal(t, len(want), q.Len())
	for i, r := range want {
		require.Equal(t, r, *q.At(i))
	}
}

func TestSwapExchangesContents(t *testing.T) {
	a := New[rec]()
	b := New[rec]()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.PushBack(rec{A: 1}))
	require.NoError(t, b.PushBack(rec{A: 2}))
	require.NoError(t, b.PushBack(rec{A: 3}))

	a.Swap(b)
	require.Equal(t, 2, a.Len())
	require.Equal(t, 1, b.Len())
	require.Equal(t, uint64(1), b.At(0).A)
}

func writeRec(f *os.File, r rec) error {
	buf := make([]byte, 16)
	putUint64(buf[0:8], r.A)
	putUint64(buf[8:16], r.B)
	_, err := f.Write(buf)
	return err
}

func putUint64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
}
