// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workerpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitBlocksUntilQueueAndInFlightAreEmpty(t *testing.T) {
	p := New(4)
	defer p.Close()

	var count int64
	for i := 0; i < 200; i++ {
		p.Submit(func() {
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&count, 1)
		})
	}
	p.Wait()
	require.EqualValues(t, 200, atomic.LoadInt64(&count))
}

func TestPanicTasksDoNotPropagate(t *testing.T) {
	p := New(2)
	defer p.Close()

	var ran int64
	p.Submit(func() { panic("boom") })
	p.Submit(func() { atomic.AddInt64(&ran, 1) })
	p.Wait()
	require.EqualValues(t, 1, atomic.LoadInt64(&ran))
}

func TestDefaultWorkersIsPositive(t *testing.T) {
	require.Greater(t, DefaultWorkers(), 0)
}
