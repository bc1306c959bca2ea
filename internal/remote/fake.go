// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remote

import "fmt"

// FakeReader is an in-memory Reader used by tests to stand in for a
// traced process, avoiding any real ptrace/process_vm_readv calls.
type FakeReader struct {
	// Regions maps a region's start address to its raw bytes.
	Regions map[uint64][]byte
}

func NewFakeReader() *FakeReader {
	return &FakeReader{Regions: make(map[uint64][]byte)}
}

// Put installs data as the contents of the region starting at addr,
// replacing any region previously installed at that address.
func (f *FakeReader) Put(addr uint64, data []byte) {
	f.Regions[addr] = data
}

func (f *FakeReader) ReadAt(addr uint64, buf []byte) error {
	for base, data := range f.Regions {
		if addr >= base && addr+uint64(len(buf)) <= base+uint64(len(data)) {
			copy(buf, data[addr-base:addr-base+uint64(len(buf))])
			return nil
		}
	}
	return fmt.Errorf("%w: fake reader has no data at %#x", ErrRemoteRead, addr)
}
