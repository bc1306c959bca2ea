// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainfile

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/chainscan/chainscan/internal/chainerr"
)

// ModuleDiff is one module's worth of comparison output: the offset
// sequences that appear in both inputs, each counted as many times as
// it survives in the lesser of the two multiplicities (so comparing a
// file against itself reproduces every chain exactly once).
type ModuleDiff struct {
	Module string
	Index  int32
	Shared [][]uint64
}

// CompareResult is the output of Compare.
type CompareResult struct {
	LhsTotal  uint64
	RhsTotal  uint64
	Unchanged uint64
	Modules   []ModuleDiff
}

// moduleKey mirrors chain_module_key in the original tool: a module is
// identified by name *and* disambiguation index, since two modules can
// share a basename (scenario 5).
func moduleKey(name string, index int32) string {
	return fmt.Sprintf("%s#%d", name, index)
}

func offsetsKey(offsets []uint64) string {
	parts := make([]string, len(offsets))
	for i, o := range offsets {
		parts[i] = strconv.FormatUint(o, 16)
	}
	return strings.Join(parts, ",")
}

// Compare implements the §4.8/§6.3 comparator: parse both inputs (binary
// or text, auto-detected), flatten each to (module, offsets) chains, and
// report the multiset intersection per module.
//
// Grounded on chainer::diff_chain_result in the original tool (flatten
// to module-keyed offset-sequence bags, then intersect).
func Compare(lhsPath, rhsPath string) (CompareResult, error) {
	lhs, err := parseChainFile(lhsPath)
	if err != nil {
		return CompareResult{}, fmt.Errorf("chainfile: compare lhs: %w", err)
	}
	rhs, err := parseChainFile(rhsPath)
	if err != nil {
		return CompareResult{}, fmt.Errorf("chainfile: compare rhs: %w", err)
	}
	return compareRecords(lhs, rhs), nil
}

type bag map[string]map[string]chainBucket

type chainBucket struct {
	offsets []uint64
	count   int
}

func group(records []chainRecord) bag {
	b := make(bag)
	for _, r := range records {
		mk := moduleKey(r.module, r.index)
		if b[mk] == nil {
			b[mk] = make(map[string]chainBucket)
		}
		ok := offsetsKey(r.offsets)
		entry := b[mk][ok]
		entry.offsets = r.offsets
		entry.count++
		b[mk][ok] = entry
	}
	return b
}

func compareRecords(lhsRecords, rhsRecords []chainRecord) CompareResult {
	lhsBag := group(lhsRecords)
	rhsBag := group(rhsRecords)

	res := CompareResult{LhsTotal: uint64(len(lhsRecords)), RhsTotal: uint64(len(rhsRecords))}

	for mk, lhsOffsets := range lhsBag {
		rhsOffsets, ok := rhsBag[mk]
		if !ok {
			continue
		}
		var shared [][]uint64
		for ok2, lb := range lhsOffsets {
			rb, ok3 := rhsOffsets[ok2]
			if !ok3 {
				continue
			}
			n := lb.count
			if rb.count < n {
				n = rb.count
			}
			for i := 0; i < n; i++ {
				shared = append(shared, lb.offsets)
				res.Unchanged++
			}
		}
		if len(shared) > 0 {
			name, index := splitModuleKey(mk)
			res.Modules = append(res.Modules, ModuleDiff{Module: name, Index: index, Shared: shared})
		}
	}
	return res
}

func splitModuleKey(mk string) (string, int32) {
	i := strings.LastIndexByte(mk, '#')
	if i < 0 {
		return mk, 0
	}
	idx, _ := strconv.Atoi(mk[i+1:])
	return mk[:i], int32(idx)
}

// parseChainFile auto-detects binary vs. text input and flattens it to
// chainRecords.
func parseChainFile(path string) ([]chainRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", chainerr.ErrIO, path, err)
	}
	sig := make([]byte, len(signPrefix))
	n, _ := f.Read(sig)
	f.Close()

	if n == len(signPrefix) && string(sig) == signPrefix {
		info, err := Read(path)
		if err != nil {
			return nil, err
		}
		defer info.Close()
		var records []chainRecord
		if err := walkChains(fromChainInfo(info), func(r chainRecord) { records = append(records, r) }); err != nil {
			return nil, err
		}
		return records, nil
	}
	return parseChainText(path)
}

var chainLineRe = regexp.MustCompile(`^(\S+)\[(\d+)\]\s*\+\s*0x([0-9a-fA-F]+)((?:\s*->\s*\+\s*0x[0-9a-fA-F]+)*)\s*$`)
var chainHopRe = regexp.MustCompile(`\+\s*0x([0-9a-fA-F]+)`)

// parseChainText parses the rendered text format back into chainRecords,
// the comparator's second input mode (§4.8).
func parseChainText(path string) ([]chainRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", chainerr.ErrIO, path, err)
	}
	defer f.Close()

	var records []chainRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		m := chainLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("chainfile: %w: unparseable line %q", chainerr.ErrMalformed, line)
		}
		index, _ := strconv.Atoi(m[2])
		root, err := strconv.ParseUint(m[3], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("chainfile: %w: bad offset in %q", chainerr.ErrMalformed, line)
		}
		offsets := []uint64{root}
		for _, hop := range chainHopRe.FindAllStringSubmatch(m[4], -1) {
			v, err := strconv.ParseUint(hop[1], 16, 64)
			if err != nil {
				return nil, fmt.Errorf("chainfile: %w: bad hop offset in %q", chainerr.ErrMalformed, line)
			}
			offsets = append(offsets, v)
		}
		records = append(records, chainRecord{module: m[1], index: int32(index), offsets: offsets})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", chainerr.ErrIO, path, err)
	}
	return records, nil
}
