// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch describes the pointer width and byte order of a traced
// process. chainscan needs this to know how many bytes make up one
// candidate pointer word when scanning memory, and to pick the wire
// width recorded in a chain file's header.
package arch

import (
	"encoding/binary"
	"fmt"
)

// Info describes the architecture of a traced process, as far as the
// chain scanner cares: how wide a pointer word is and how it's encoded.
type Info struct {
	// Name is a short label used in log output ("arm64", "arm").
	Name string
	// PointerSize is the size of a pointer in the inferior, in bytes (4 or 8).
	PointerSize int
	// ByteOrder is the byte order of words in the inferior.
	ByteOrder binary.ByteOrder
}

// PointerMask returns the bitmask applied to a raw word read from the
// inferior before it is treated as a candidate pointer value. On 64-bit
// ARM targets the top 16 bits may carry pointer tagging/canonical bits
// that must be stripped before comparing against mapped-region bounds.
func (a Info) PointerMask() uint64 {
	if a.PointerSize == 4 {
		return 0xffffffff
	}
	return 0x0000ffffffffffff
}

var ARM64 = Info{
	Name:        "arm64",
	PointerSize: 8,
	ByteOrder:   binary.LittleEndian,
}

var ARM = Info{
	Name:        "arm",
	PointerSize: 4,
	ByteOrder:   binary.LittleEndian,
}

var AMD64 = Info{
	Name:        "amd64",
	PointerSize: 8,
	ByteOrder:   binary.LittleEndian,
}

var I386 = Info{
	Name:        "386",
	PointerSize: 4,
	ByteOrder:   binary.LittleEndian,
}

// ByName resolves one of the built-in Info values by name ("arm64",
// "arm", "amd64" or "386").
func ByName(name string) (Info, error) {
	switch name {
	case "arm64":
		return ARM64, nil
	case "arm":
		return ARM, nil
	case "amd64":
		return AMD64, nil
	case "386":
		return I386, nil
	default:
		return Info{}, fmt.Errorf("arch: unknown architecture %q", name)
	}
}
