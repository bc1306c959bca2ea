// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chainerr defines the error taxonomy shared by every stage of
// the scan pipeline, so callers can classify a failure with errors.Is
// regardless of which package produced it — mirroring the teacher's
// plain fmt.Errorf style (internal/core/process.go wraps a small set of
// sentinel errors the same way) rather than a typed exception hierarchy.
package chainerr

import "errors"

var (
	// ErrIO covers file, mmap, and tempfile failures.
	ErrIO = errors.New("chainscan: io error")

	// ErrRemoteRead covers a failed or partial read of a traced
	// process's address space, including the target dying mid-scan.
	ErrRemoteRead = errors.New("chainscan: remote read error")

	// ErrMalformed covers a bad chain-file header, short file,
	// signature mismatch, or size mismatch.
	ErrMalformed = errors.New("chainscan: malformed chain file")

	// ErrOutOfMemory covers a spill queue reserve/grow failure.
	ErrOutOfMemory = errors.New("chainscan: out of memory")

	// ErrInvalidArgument covers a negative depth, zero buffer size, or
	// similar caller mistake rejected before any work starts.
	ErrInvalidArgument = errors.New("chainscan: invalid argument")
)
