// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/chainscan/chainscan/internal/arch"
	"github.com/chainscan/chainscan/internal/chainerr"
)

// resolveArch picks the target's pointer width: an explicit --32/--64
// flag wins, otherwise it's detected from the ELF class byte of
// /proc/<pid>/exe (EI_CLASS at offset 4: 1 = ELFCLASS32, 2 = ELFCLASS64).
func resolveArch(pid int, force32, force64 bool) (arch.Info, error) {
	switch {
	case force32:
		return arch.ARM, nil
	case force64:
		return arch.ARM64, nil
	}

	f, err := os.Open(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return arch.Info{}, fmt.Errorf("chainscan: open /proc/%d/exe: %w: %w", pid, chainerr.ErrIO, err)
	}
	defer f.Close()

	var ident [5]byte
	if _, err := f.ReadAt(ident[:], 0); err != nil {
		return arch.Info{}, fmt.Errorf("chainscan: read ELF header: %w: %w", chainerr.ErrIO, err)
	}
	if ident[0] != 0x7f || ident[1] != 'E' || ident[2] != 'L' || ident[3] != 'F' {
		return arch.Info{}, fmt.Errorf("chainscan: %w: /proc/%d/exe is not an ELF binary", chainerr.ErrMalformed, pid)
	}
	switch ident[4] {
	case 1:
		return arch.ARM, nil
	case 2:
		return arch.ARM64, nil
	default:
		return arch.Info{}, fmt.Errorf("chainscan: %w: unknown ELF class %d", chainerr.ErrMalformed, ident[4])
	}
}
